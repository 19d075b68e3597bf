package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

// AdminService manages admin notification recipients and the daily summary.
type AdminService struct {
	emails   AdminEmailStore
	tours    *TourService
	notifier Notifier
	log      *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(emails AdminEmailStore, tours *TourService, notifier Notifier, log *zap.Logger) *AdminService {
	return &AdminService{emails: emails, tours: tours, notifier: notifier, log: log}
}

// ListEmails returns the active admin recipients.
func (s *AdminService) ListEmails(ctx context.Context) ([]model.AdminEmail, error) {
	emails, err := s.emails.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admin emails: %w", err)
	}
	return emails, nil
}

// AddEmail registers a recipient. Addresses are compared case-insensitively.
func (s *AdminService) AddEmail(ctx context.Context, req model.AdminEmailRequest) (*model.AdminEmail, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	email, err := s.emails.Create(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("add admin email: %w", err)
	}
	s.log.Info("admin email added", zap.String("email", email.Email))
	return email, nil
}

// RemoveEmail deactivates a recipient.
func (s *AdminService) RemoveEmail(ctx context.Context, id string) error {
	if err := requireID("admin email", id); err != nil {
		return err
	}
	if err := s.emails.Deactivate(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		return fmt.Errorf("remove admin email: %w", err)
	}
	s.log.Info("admin email removed", zap.String("admin_email_id", id))
	return nil
}

// SendDailySummary mails per-tour statistics to every active admin. It is
// skipped, returning false, when there is no active tour, no pending
// registration or no recipient.
func (s *AdminService) SendDailySummary(ctx context.Context) (bool, error) {
	stats, err := s.tours.InventoryStats(ctx)
	if err != nil {
		return false, err
	}
	if len(stats) == 0 {
		s.log.Info("daily summary skipped", zap.String("reason", "no active tours"))
		return false, nil
	}

	pending := 0
	for _, st := range stats {
		pending += st.Pending
	}
	if pending == 0 {
		s.log.Info("daily summary skipped", zap.String("reason", "no pending registrations"))
		return false, nil
	}

	admins, err := s.emails.ListActive(ctx)
	if err != nil {
		return false, fmt.Errorf("list admin emails: %w", err)
	}
	if len(admins) == 0 {
		s.log.Warn("daily summary skipped", zap.String("reason", "no admin recipients"))
		return false, nil
	}

	s.notifier.DailySummary(pending, stats, admins)
	s.log.Info("daily summary queued",
		zap.Int("pending", pending),
		zap.Int("tours", len(stats)),
		zap.Int("recipients", len(admins)))
	return true, nil
}
