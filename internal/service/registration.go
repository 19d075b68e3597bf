package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

// RegistrationService handles registration submission and the admin status
// transitions that keep tour inventory in step with approvals.
type RegistrationService struct {
	registrations RegistrationStore
	tours         *TourService
	admins        AdminEmailStore
	notifier      Notifier
	metrics       *metrics.Metrics
	log           *zap.Logger
}

// NewRegistrationService constructs a RegistrationService with its dependencies.
func NewRegistrationService(
	registrations RegistrationStore,
	tours *TourService,
	admins AdminEmailStore,
	notifier Notifier,
	m *metrics.Metrics,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		registrations: registrations,
		tours:         tours,
		admins:        admins,
		notifier:      notifier,
		metrics:       m,
		log:           log,
	}
}

// Create validates a public booking and stores it as pending. It does not
// consume a seat; seats are taken on approval.
func (s *RegistrationService) Create(ctx context.Context, req model.CreateRegistrationRequest) (*model.CreateRegistrationResponse, error) {
	req.TourID = strings.TrimSpace(req.TourID)
	p := &req.Participant
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.PassportFirstName = strings.TrimSpace(p.PassportFirstName)
	p.PassportLastName = strings.TrimSpace(p.PassportLastName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.DatePreference != "" && !req.DatePreference.ValidPreference() {
		return nil, fmt.Errorf("%w: unknown date_preference %q", model.ErrInvalidInput, req.DatePreference)
	}
	if !p.PassportConfirmed {
		return nil, fmt.Errorf("%w: passport details must be confirmed", model.ErrInvalidInput)
	}
	birthDate, err := parseDate("birth_date", p.BirthDate)
	if err != nil {
		return nil, err
	}

	reg, err := s.registrations.Create(ctx, req.TourID, req.DatePreference, model.Participant{
		FirstName:             p.FirstName,
		LastName:              p.LastName,
		PassportFirstName:     p.PassportFirstName,
		PassportLastName:      p.PassportLastName,
		Phone:                 p.Phone,
		Email:                 p.Email,
		BirthDate:             birthDate,
		PassportConfirmed:     p.PassportConfirmed,
		InsuranceAcknowledged: p.InsuranceAcknowledged,
		AdditionalLuggage:     p.AdditionalLuggage,
		SingleRoomUpgrade:     p.SingleRoomUpgrade,
	})
	if err != nil {
		// Surface domain errors directly so handlers can set correct HTTP status.
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidState) {
			return nil, err
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	s.metrics.IncrementRegistrationsCreated()
	s.log.Info("registration created",
		zap.String("registration_id", reg.ID),
		zap.Int("order_number", reg.OrderNumber),
		zap.String("tour_id", reg.TourID),
		zap.String("date_preference", string(reg.DatePreference)))

	if tour, err := s.tours.lookup(ctx, reg.TourID); err != nil {
		s.log.Error("load tour for notification",
			zap.String("registration_id", reg.ID),
			zap.Error(err))
	} else {
		s.notifier.RegistrationCreated(reg, tour, s.recipients(ctx))
	}

	return &model.CreateRegistrationResponse{
		Success:      true,
		OrderNumber:  reg.OrderNumber,
		Registration: reg,
	}, nil
}

// List returns every registration, newest first, joined with its tour.
func (s *RegistrationService) List(ctx context.Context) ([]model.RegistrationDetails, error) {
	regs, err := s.registrations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	tours, err := s.tours.toursByID(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]model.RegistrationDetails, 0, len(regs))
	for _, r := range regs {
		details = append(details, model.RegistrationDetails{Registration: r, Tour: tours[r.TourID]})
	}
	return details, nil
}

// Get returns one registration with its participant.
func (s *RegistrationService) Get(ctx context.Context, id string) (*model.Registration, error) {
	if err := requireID("registration", id); err != nil {
		return nil, err
	}
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// Approve moves a pending or rejected registration to approved and takes a
// seat. Approving an approved registration changes nothing.
func (s *RegistrationService) Approve(ctx context.Context, id string) (*model.TransitionResult, error) {
	return s.transition(ctx, id, model.ActionApprove, "")
}

// AssignDateAndApprove confirms the travel window and approves. On an already
// approved registration it only reassigns the date.
func (s *RegistrationService) AssignDateAndApprove(ctx context.Context, id string, date model.DateOption) (*model.TransitionResult, error) {
	if !date.Assignable() {
		return nil, fmt.Errorf("%w: assigned_date must be %s or %s", model.ErrInvalidInput, model.DateMay4to6, model.DateMay25to27)
	}
	return s.transition(ctx, id, model.ActionAssignDate, date)
}

// Reject moves a registration to rejected, returning its seat if it held one.
func (s *RegistrationService) Reject(ctx context.Context, id string) (*model.TransitionResult, error) {
	return s.transition(ctx, id, model.ActionReject, "")
}

// Cancel withdraws an approved registration and returns its seat.
func (s *RegistrationService) Cancel(ctx context.Context, id string) (*model.TransitionResult, error) {
	return s.transition(ctx, id, model.ActionCancel, "")
}

func (s *RegistrationService) transition(ctx context.Context, id string, action model.Action, date model.DateOption) (*model.TransitionResult, error) {
	if err := requireID("registration", id); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "registration."+string(action),
		trace.WithAttributes(
			attribute.String("registration.id", id),
			attribute.String("registration.action", string(action)),
		))
	defer span.End()

	start := time.Now()
	res, err := s.registrations.Transition(ctx, id, action, date)
	s.metrics.ObserveTransition(action, res, err, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn("transition refused",
			zap.String("registration_id", id),
			zap.String("action", string(action)),
			zap.Error(err))
		if errors.Is(err, model.ErrNotFound) ||
			errors.Is(err, model.ErrInvalidState) ||
			errors.Is(err, model.ErrCapacity) {
			return nil, err
		}
		return nil, fmt.Errorf("%s registration: %w", action, err)
	}

	span.SetAttributes(
		attribute.String("registration.from", string(res.From)),
		attribute.String("registration.to", string(res.Registration.Status)),
		attribute.Int("tour.seat_delta", res.SeatDelta),
		attribute.Bool("registration.noop", res.Noop),
	)
	if res.Noop {
		s.log.Info("transition is a no-op",
			zap.String("registration_id", id),
			zap.String("action", string(action)),
			zap.String("status", string(res.Registration.Status)))
		return res, nil
	}

	s.tours.Invalidate()
	s.log.Info("registration status changed",
		zap.String("registration_id", id),
		zap.Int("order_number", res.Registration.OrderNumber),
		zap.String("action", string(action)),
		zap.String("from", string(res.From)),
		zap.String("to", string(res.Registration.Status)),
		zap.Int("seat_delta", res.SeatDelta),
		zap.Int("available_spots", res.Tour.AvailableSpots))

	s.notifier.StatusChanged(action, res, s.recipients(ctx))
	return res, nil
}

// recipients returns the active admin addresses. Failures only cost the
// admin copy of an email, so they are logged and an empty list is returned.
func (s *RegistrationService) recipients(ctx context.Context) []model.AdminEmail {
	admins, err := s.admins.ListActive(ctx)
	if err != nil {
		s.log.Error("list admin emails", zap.Error(err))
		return nil
	}
	return admins
}
