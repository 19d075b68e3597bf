package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

// firstOrderNumber matches the start of the PostgreSQL order sequence.
const firstOrderNumber = 1000

// Memory is an in-process store backing the storage.driver=memory mode and
// unit tests. One mutex guards all tables, so a transition's read, compute and
// write happen as a single step, the same guarantee the PostgreSQL row locks give.
type Memory struct {
	mu            sync.Mutex
	tours         map[string]*model.Tour
	registrations map[string]*model.Registration
	participants  map[string]*model.Participant // keyed by registration ID
	adminEmails   map[string]*model.AdminEmail
	nextOrder     int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tours:         make(map[string]*model.Tour),
		registrations: make(map[string]*model.Registration),
		participants:  make(map[string]*model.Participant),
		adminEmails:   make(map[string]*model.AdminEmail),
		nextOrder:     firstOrderNumber,
	}
}

// Tours returns the tour view of the store.
func (m *Memory) Tours() *MemoryTours { return &MemoryTours{m: m} }

// Registrations returns the registration view of the store.
func (m *Memory) Registrations() *MemoryRegistrations { return &MemoryRegistrations{m: m} }

// AdminEmails returns the admin email view of the store.
func (m *Memory) AdminEmails() *MemoryAdminEmails { return &MemoryAdminEmails{m: m} }

// ─── Tours ────────────────────────────────────────────────────────────────────

// MemoryTours mirrors TourRepository.
type MemoryTours struct{ m *Memory }

func (s *MemoryTours) Create(_ context.Context, tour model.Tour) (*model.Tour, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	now := time.Now().UTC()
	tour.ID = uuid.New().String()
	tour.AvailableSpots = tour.Capacity
	tour.CreatedAt = now
	tour.UpdatedAt = now
	stored := tour
	s.m.tours[tour.ID] = &stored
	return &tour, nil
}

func (s *MemoryTours) List(_ context.Context, activeOnly bool) ([]model.Tour, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	var out []model.Tour
	for _, t := range s.m.tours {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryTours) GetByID(_ context.Context, id string) (*model.Tour, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	t, ok := s.m.tours[id]
	if !ok {
		return nil, fmt.Errorf("tour %s: %w", id, model.ErrNotFound)
	}
	out := *t
	return &out, nil
}

func (s *MemoryTours) Update(_ context.Context, id string, patch model.TourPatch) (*model.Tour, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	t, ok := s.m.tours[id]
	if !ok {
		return nil, fmt.Errorf("tour %s: %w", id, model.ErrNotFound)
	}
	updated := *t
	if patch.Capacity != nil && *patch.Capacity != updated.Capacity {
		if err := resizeTour(&updated, *patch.Capacity, s.m.approvedLocked(id)); err != nil {
			return nil, err
		}
	}
	if err := applyTourPatch(&updated, patch); err != nil {
		return nil, err
	}
	updated.UpdatedAt = time.Now().UTC()
	*t = updated
	return &updated, nil
}

func (m *Memory) approvedLocked(tourID string) int {
	n := 0
	for _, r := range m.registrations {
		if r.TourID == tourID && r.Status == model.StatusApproved {
			n++
		}
	}
	return n
}

// ─── Registrations ────────────────────────────────────────────────────────────

// MemoryRegistrations mirrors RegistrationRepository.
type MemoryRegistrations struct{ m *Memory }

func (s *MemoryRegistrations) Create(_ context.Context, tourID string, preference model.DateOption, p model.Participant) (*model.Registration, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	tour, ok := s.m.tours[tourID]
	if !ok {
		return nil, fmt.Errorf("tour %s: %w", tourID, model.ErrNotFound)
	}
	if !tour.IsActive {
		return nil, fmt.Errorf("%w: tour %s is closed for registration", model.ErrInvalidState, tourID)
	}

	now := time.Now().UTC()
	reg := &model.Registration{
		ID:             uuid.New().String(),
		TourID:         tourID,
		OrderNumber:    s.m.nextOrder,
		Status:         model.StatusPending,
		DatePreference: preference,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.m.nextOrder++

	p.ID = uuid.New().String()
	p.RegistrationID = reg.ID
	p.CreatedAt = now

	s.m.registrations[reg.ID] = reg
	s.m.participants[reg.ID] = &p
	return s.m.copyRegistrationLocked(reg), nil
}

func (s *MemoryRegistrations) GetByID(_ context.Context, id string) (*model.Registration, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	reg, ok := s.m.registrations[id]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", id, model.ErrNotFound)
	}
	return s.m.copyRegistrationLocked(reg), nil
}

func (s *MemoryRegistrations) List(_ context.Context) ([]model.Registration, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	out := make([]model.Registration, 0, len(s.m.registrations))
	for _, reg := range s.m.registrations {
		out = append(out, *s.m.copyRegistrationLocked(reg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber > out[j].OrderNumber })
	return out, nil
}

func (s *MemoryRegistrations) CountByTour(_ context.Context) (map[string]model.StatusCounts, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	out := make(map[string]model.StatusCounts)
	for _, reg := range s.m.registrations {
		c := out[reg.TourID]
		c.Add(reg.Status)
		out[reg.TourID] = c
	}
	return out, nil
}

func (s *MemoryRegistrations) Transition(_ context.Context, id string, action model.Action, date model.DateOption) (*model.TransitionResult, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	reg, ok := s.m.registrations[id]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", id, model.ErrNotFound)
	}
	tour, ok := s.m.tours[reg.TourID]
	if !ok {
		return nil, fmt.Errorf("tour %s: %w", reg.TourID, model.ErrNotFound)
	}

	change, err := model.Transition(reg.Status, action)
	if err != nil {
		return nil, err
	}
	spots, err := model.ApplySeatDelta(tour.AvailableSpots, tour.Capacity, change.SeatDelta)
	if err != nil {
		return nil, fmt.Errorf("tour %s: %w", tour.ID, err)
	}

	assigned := reg.AssignedDate
	if action == model.ActionAssignDate {
		assigned = date
	}
	result := &model.TransitionResult{
		From:      reg.Status,
		SeatDelta: change.SeatDelta,
		Noop:      change.Noop() && assigned == reg.AssignedDate,
	}

	if !result.Noop {
		now := time.Now().UTC()
		if change.SeatDelta != 0 {
			tour.AvailableSpots = spots
			tour.UpdatedAt = now
		}
		reg.Status = change.To
		reg.AssignedDate = assigned
		reg.UpdatedAt = now
	}

	t := *tour
	result.Tour = &t
	result.Registration = s.m.copyRegistrationLocked(reg)
	return result, nil
}

func (m *Memory) copyRegistrationLocked(reg *model.Registration) *model.Registration {
	out := *reg
	if p, ok := m.participants[reg.ID]; ok {
		pc := *p
		out.Participant = &pc
	}
	return &out
}

// ─── Admin emails ─────────────────────────────────────────────────────────────

// MemoryAdminEmails mirrors AdminEmailRepository.
type MemoryAdminEmails struct{ m *Memory }

func (s *MemoryAdminEmails) ListActive(_ context.Context) ([]model.AdminEmail, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	var out []model.AdminEmail
	for _, a := range s.m.adminEmails {
		if a.IsActive {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryAdminEmails) Create(_ context.Context, email string) (*model.AdminEmail, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, a := range s.m.adminEmails {
		if !strings.EqualFold(a.Email, email) {
			continue
		}
		if a.IsActive {
			return nil, fmt.Errorf("admin email %s: %w", email, model.ErrAlreadyExists)
		}
		a.IsActive = true
		out := *a
		return &out, nil
	}

	a := &model.AdminEmail{
		ID:        uuid.New().String(),
		Email:     email,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	s.m.adminEmails[a.ID] = a
	out := *a
	return &out, nil
}

func (s *MemoryAdminEmails) Deactivate(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	a, ok := s.m.adminEmails[id]
	if !ok || !a.IsActive {
		return fmt.Errorf("admin email %s: %w", id, model.ErrNotFound)
	}
	a.IsActive = false
	return nil
}
