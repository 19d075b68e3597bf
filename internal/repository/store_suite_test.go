package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

type tourStore interface {
	Create(ctx context.Context, tour model.Tour) (*model.Tour, error)
	List(ctx context.Context, activeOnly bool) ([]model.Tour, error)
	GetByID(ctx context.Context, id string) (*model.Tour, error)
	Update(ctx context.Context, id string, patch model.TourPatch) (*model.Tour, error)
}

type registrationStore interface {
	Create(ctx context.Context, tourID string, preference model.DateOption, p model.Participant) (*model.Registration, error)
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	List(ctx context.Context) ([]model.Registration, error)
	CountByTour(ctx context.Context) (map[string]model.StatusCounts, error)
	Transition(ctx context.Context, id string, action model.Action, date model.DateOption) (*model.TransitionResult, error)
}

type adminEmailStore interface {
	ListActive(ctx context.Context) ([]model.AdminEmail, error)
	Create(ctx context.Context, email string) (*model.AdminEmail, error)
	Deactivate(ctx context.Context, id string) error
}

// storeSuite holds behaviour every store backend must share. Backends embed
// it and set reset, which must hand back empty stores.
type storeSuite struct {
	suite.Suite
	ctx    context.Context
	tours  tourStore
	regs   registrationStore
	admins adminEmailStore
	reset  func() (tourStore, registrationStore, adminEmailStore)
}

func (s *storeSuite) SetupTest() {
	s.ctx = context.Background()
	s.tours, s.regs, s.admins = s.reset()
}

func (s *storeSuite) newTour(capacity int) *model.Tour {
	tour, err := s.tours.Create(s.ctx, model.Tour{
		Title:     "Yerevan",
		StartDate: time.Date(2026, 6, 28, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Capacity:  capacity,
		IsActive:  true,
	})
	s.Require().NoError(err)
	return tour
}

func (s *storeSuite) newRegistration(tourID string) *model.Registration {
	reg, err := s.regs.Create(s.ctx, tourID, model.NoPreference, model.Participant{
		FirstName:         "Ana",
		LastName:          "Levi",
		PassportFirstName: "ANA",
		PassportLastName:  "LEVI",
		Phone:             "0501234567",
		Email:             "ana@example.com",
		BirthDate:         time.Date(1980, 3, 1, 0, 0, 0, 0, time.UTC),
		PassportConfirmed: true,
	})
	s.Require().NoError(err)
	return reg
}

func (s *storeSuite) spots(tourID string) int {
	tour, err := s.tours.GetByID(s.ctx, tourID)
	s.Require().NoError(err)
	return tour.AvailableSpots
}

func (s *storeSuite) apply(id string, action model.Action) *model.TransitionResult {
	res, err := s.regs.Transition(s.ctx, id, action, "")
	s.Require().NoError(err)
	return res
}

// TestTours verifies creation, lookups and the active filter.
func (s *storeSuite) TestTours() {
	s.Run("create starts with every seat free", func() {
		tour := s.newTour(32)
		s.NotEmpty(tour.ID)
		s.Equal(32, tour.AvailableSpots)

		found, err := s.tours.GetByID(s.ctx, tour.ID)
		s.Require().NoError(err)
		s.Equal("Yerevan", found.Title)
		s.Equal(32, found.Capacity)
	})

	s.Run("list hides inactive tours when asked", func() {
		hidden := s.newTour(10)
		inactive := false
		_, err := s.tours.Update(s.ctx, hidden.ID, model.TourPatch{IsActive: &inactive})
		s.Require().NoError(err)

		active, err := s.tours.List(s.ctx, true)
		s.Require().NoError(err)
		for _, t := range active {
			s.NotEqual(hidden.ID, t.ID)
		}

		all, err := s.tours.List(s.ctx, false)
		s.Require().NoError(err)
		s.Len(all, len(active)+1)
	})

	s.Run("unknown tour", func() {
		_, err := s.tours.GetByID(s.ctx, "missing")
		s.Require().ErrorIs(err, model.ErrNotFound)

		title := "x"
		_, err = s.tours.Update(s.ctx, "missing", model.TourPatch{Title: &title})
		s.Require().ErrorIs(err, model.ErrNotFound)
	})
}

// TestCapacityEdit verifies a capacity change keeps approved seats booked.
func (s *storeSuite) TestCapacityEdit() {
	tour := s.newTour(5)
	for i := 0; i < 3; i++ {
		reg := s.newRegistration(tour.ID)
		s.apply(reg.ID, model.ActionApprove)
	}
	s.Equal(2, s.spots(tour.ID))

	s.Run("below approved count is refused", func() {
		capacity := 2
		_, err := s.tours.Update(s.ctx, tour.ID, model.TourPatch{Capacity: &capacity})
		s.Require().ErrorIs(err, model.ErrCapacity)
		s.Equal(2, s.spots(tour.ID))
	})

	s.Run("growth frees seats", func() {
		capacity := 10
		updated, err := s.tours.Update(s.ctx, tour.ID, model.TourPatch{Capacity: &capacity})
		s.Require().NoError(err)
		s.Equal(10, updated.Capacity)
		s.Equal(7, updated.AvailableSpots)
	})

	s.Run("shrink to exactly the approved count", func() {
		capacity := 3
		updated, err := s.tours.Update(s.ctx, tour.ID, model.TourPatch{Capacity: &capacity})
		s.Require().NoError(err)
		s.Equal(0, updated.AvailableSpots)
	})
}

// TestCreateRegistration verifies submission rules and order numbering.
func (s *storeSuite) TestDateEditKeepsOrder() {
	tour := s.newTour(5)
	date := func(month time.Month, day int) *time.Time {
		t := time.Date(2026, month, day, 0, 0, 0, 0, time.UTC)
		return &t
	}

	s.Run("start moved past the stored end", func() {
		_, err := s.tours.Update(s.ctx, tour.ID, model.TourPatch{StartDate: date(time.August, 15)})
		s.Require().ErrorIs(err, model.ErrInvalidInput)
	})

	s.Run("end moved before the stored start", func() {
		_, err := s.tours.Update(s.ctx, tour.ID, model.TourPatch{EndDate: date(time.June, 1)})
		s.Require().ErrorIs(err, model.ErrInvalidInput)
	})

	s.Run("rejected capacity change is not applied", func() {
		capacity := 9
		_, err := s.tours.Update(s.ctx, tour.ID, model.TourPatch{Capacity: &capacity, EndDate: date(time.June, 1)})
		s.Require().ErrorIs(err, model.ErrInvalidInput)
	})

	got, err := s.tours.GetByID(s.ctx, tour.ID)
	s.Require().NoError(err)
	s.True(got.StartDate.Equal(*date(time.June, 28)))
	s.True(got.EndDate.Equal(*date(time.July, 1)))
	s.Equal(5, got.Capacity)

	updated, err := s.tours.Update(s.ctx, tour.ID, model.TourPatch{StartDate: date(time.July, 1)})
	s.Require().NoError(err)
	s.True(updated.StartDate.Equal(updated.EndDate), "a single-day tour is allowed")
}

func (s *storeSuite) TestCreateRegistration() {
	tour := s.newTour(32)

	s.Run("pending with participant and sequential order numbers", func() {
		first := s.newRegistration(tour.ID)
		second := s.newRegistration(tour.ID)

		s.Equal(model.StatusPending, first.Status)
		s.Equal(1000, first.OrderNumber)
		s.Equal(1001, second.OrderNumber)
		s.Require().NotNil(first.Participant)
		s.Equal("ana@example.com", first.Participant.Email)
		s.Equal(32, s.spots(tour.ID), "submission must not consume a seat")

		found, err := s.regs.GetByID(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal(model.NoPreference, found.DatePreference)
		s.Require().NotNil(found.Participant)
		s.Equal("Levi", found.Participant.LastName)
	})

	s.Run("list is newest first", func() {
		regs, err := s.regs.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(regs, 2)
		s.Greater(regs[0].OrderNumber, regs[1].OrderNumber)
		s.NotNil(regs[0].Participant)
	})

	s.Run("unknown tour", func() {
		_, err := s.regs.Create(s.ctx, "missing", "", model.Participant{})
		s.Require().ErrorIs(err, model.ErrNotFound)
	})

	s.Run("inactive tour", func() {
		closed := s.newTour(5)
		inactive := false
		_, err := s.tours.Update(s.ctx, closed.ID, model.TourPatch{IsActive: &inactive})
		s.Require().NoError(err)

		_, err = s.regs.Create(s.ctx, closed.ID, "", model.Participant{})
		s.Require().ErrorIs(err, model.ErrInvalidState)
	})
}

// TestApproveRejectRoundTrip verifies approve, reject, approve restores inventory.
func (s *storeSuite) TestApproveRejectRoundTrip() {
	tour := s.newTour(32)
	reg := s.newRegistration(tour.ID)

	res := s.apply(reg.ID, model.ActionApprove)
	s.Equal(model.StatusPending, res.From)
	s.Equal(model.StatusApproved, res.Registration.Status)
	s.Equal(-1, res.SeatDelta)
	s.Equal(31, res.Tour.AvailableSpots)
	s.False(res.Noop)

	res = s.apply(reg.ID, model.ActionReject)
	s.Equal(model.StatusRejected, res.Registration.Status)
	s.Equal(32, res.Tour.AvailableSpots)

	res = s.apply(reg.ID, model.ActionApprove)
	s.Equal(model.StatusApproved, res.Registration.Status)
	s.Equal(31, res.Tour.AvailableSpots)
	s.Equal(31, s.spots(tour.ID))
}

// TestNoops verifies repeated approvals and rejections change nothing.
func (s *storeSuite) TestNoops() {
	tour := s.newTour(32)
	reg := s.newRegistration(tour.ID)

	s.apply(reg.ID, model.ActionApprove)
	res := s.apply(reg.ID, model.ActionApprove)
	s.True(res.Noop)
	s.Equal(0, res.SeatDelta)
	s.Equal(31, s.spots(tour.ID))

	s.apply(reg.ID, model.ActionReject)
	res = s.apply(reg.ID, model.ActionReject)
	s.True(res.Noop)
	s.Equal(32, s.spots(tour.ID))
}

// TestCancel verifies cancel only applies to approved registrations.
func (s *storeSuite) TestCancel() {
	tour := s.newTour(32)
	reg := s.newRegistration(tour.ID)

	s.Run("pending is refused", func() {
		_, err := s.regs.Transition(s.ctx, reg.ID, model.ActionCancel, "")
		s.Require().ErrorIs(err, model.ErrInvalidState)
		s.Equal(32, s.spots(tour.ID))

		found, err := s.regs.GetByID(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.Equal(model.StatusPending, found.Status)
	})

	s.Run("approved frees the seat", func() {
		s.apply(reg.ID, model.ActionApprove)
		res := s.apply(reg.ID, model.ActionCancel)
		s.Equal(model.StatusRejected, res.Registration.Status)
		s.Equal(1, res.SeatDelta)
		s.Equal(32, s.spots(tour.ID))
	})

	s.Run("rejected is refused", func() {
		_, err := s.regs.Transition(s.ctx, reg.ID, model.ActionCancel, "")
		s.Require().ErrorIs(err, model.ErrInvalidState)
	})
}

// TestAssignDate verifies assign-date-and-approve on every status.
func (s *storeSuite) TestAssignDate() {
	tour := s.newTour(32)
	reg := s.newRegistration(tour.ID)

	res, err := s.regs.Transition(s.ctx, reg.ID, model.ActionAssignDate, model.DateMay4to6)
	s.Require().NoError(err)
	s.Equal(model.StatusApproved, res.Registration.Status)
	s.Equal(model.DateMay4to6, res.Registration.AssignedDate)
	s.Equal(model.NoPreference, res.Registration.DatePreference)
	s.Equal(-1, res.SeatDelta)
	s.Equal(31, s.spots(tour.ID))

	s.Run("reassigning an approved registration keeps the seat", func() {
		res, err := s.regs.Transition(s.ctx, reg.ID, model.ActionAssignDate, model.DateMay25to27)
		s.Require().NoError(err)
		s.False(res.Noop)
		s.Equal(0, res.SeatDelta)
		s.Equal(model.DateMay25to27, res.Registration.AssignedDate)
		s.Equal(31, s.spots(tour.ID))
	})

	s.Run("same date again is a no-op", func() {
		res, err := s.regs.Transition(s.ctx, reg.ID, model.ActionAssignDate, model.DateMay25to27)
		s.Require().NoError(err)
		s.True(res.Noop)
	})

	s.Run("assigned date survives a rejection", func() {
		res := s.apply(reg.ID, model.ActionReject)
		s.Equal(model.DateMay25to27, res.Registration.AssignedDate)
		s.Equal(32, s.spots(tour.ID))
	})
}

// TestCapacityExample walks a 32-seat tour through the documented example.
func (s *storeSuite) TestCapacityExample() {
	tour := s.newTour(32)
	reg := s.newRegistration(tour.ID)

	s.Equal(31, s.apply(reg.ID, model.ActionApprove).Tour.AvailableSpots)
	s.Equal(32, s.apply(reg.ID, model.ActionReject).Tour.AvailableSpots)
	s.Equal(31, s.apply(reg.ID, model.ActionApprove).Tour.AvailableSpots)
}

// TestFullTour verifies approvals stop at zero seats.
func (s *storeSuite) TestFullTour() {
	tour := s.newTour(1)
	first := s.newRegistration(tour.ID)
	second := s.newRegistration(tour.ID)

	s.apply(first.ID, model.ActionApprove)
	_, err := s.regs.Transition(s.ctx, second.ID, model.ActionApprove, "")
	s.Require().ErrorIs(err, model.ErrCapacity)

	found, err := s.regs.GetByID(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(model.StatusPending, found.Status, "a refused approval must not change status")
	s.Equal(0, s.spots(tour.ID))
}

// TestTransitionNotFound verifies unknown registrations are reported.
func (s *storeSuite) TestTransitionNotFound() {
	_, err := s.regs.Transition(s.ctx, "missing", model.ActionApprove, "")
	s.Require().ErrorIs(err, model.ErrNotFound)

	_, err = s.regs.GetByID(s.ctx, "missing")
	s.Require().ErrorIs(err, model.ErrNotFound)
}

// TestConcurrentApprovals verifies concurrent approvals never oversell seats.
func (s *storeSuite) TestConcurrentApprovals() {
	s.Run("two approvals for the last seat", func() {
		tour := s.newTour(1)
		ids := []string{s.newRegistration(tour.ID).ID, s.newRegistration(tour.ID).ID}
		ok, full := s.approveConcurrently(ids)
		s.Equal(int32(1), ok, "exactly one approval should succeed")
		s.Equal(int32(1), full, "the other should get a capacity error")
		s.Equal(0, s.spots(tour.ID))
	})

	s.Run("many approvals for a few seats", func() {
		const seats, registrations = 3, 12
		tour := s.newTour(seats)
		ids := make([]string, registrations)
		for i := range ids {
			ids[i] = s.newRegistration(tour.ID).ID
		}
		ok, full := s.approveConcurrently(ids)
		s.Equal(int32(seats), ok)
		s.Equal(int32(registrations-seats), full)
		s.Equal(0, s.spots(tour.ID))

		counts, err := s.regs.CountByTour(s.ctx)
		s.Require().NoError(err)
		s.Equal(seats, counts[tour.ID].Approved)
		s.Equal(registrations-seats, counts[tour.ID].Pending)
	})

	s.Run("approve and reject racing on one registration", func() {
		tour := s.newTour(5)
		reg := s.newRegistration(tour.ID)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			action := model.ActionApprove
			if i%2 == 1 {
				action = model.ActionReject
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.regs.Transition(s.ctx, reg.ID, action, "")
			}()
		}
		wg.Wait()

		found, err := s.regs.GetByID(s.ctx, reg.ID)
		s.Require().NoError(err)
		want := 5
		if found.Status == model.StatusApproved {
			want = 4
		}
		s.Equal(want, s.spots(tour.ID))
	})
}

func (s *storeSuite) approveConcurrently(ids []string) (ok, full int32) {
	var wg sync.WaitGroup
	var okCount, fullCount atomic.Int32
	start := make(chan struct{})
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.regs.Transition(s.ctx, id, model.ActionApprove, "")
			switch {
			case err == nil:
				okCount.Add(1)
			case errors.Is(err, model.ErrCapacity):
				fullCount.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	return okCount.Load(), fullCount.Load()
}

// TestCountByTour verifies per-tour status tallies.
func (s *storeSuite) TestCountByTour() {
	a := s.newTour(10)
	b := s.newTour(10)

	s.newRegistration(a.ID)
	approved := s.newRegistration(a.ID)
	rejected := s.newRegistration(a.ID)
	s.newRegistration(b.ID)
	s.apply(approved.ID, model.ActionApprove)
	s.apply(rejected.ID, model.ActionReject)

	counts, err := s.regs.CountByTour(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.StatusCounts{Pending: 1, Approved: 1, Rejected: 1}, counts[a.ID])
	s.Equal(model.StatusCounts{Pending: 1}, counts[b.ID])
}

// TestAdminEmails verifies recipient uniqueness and soft removal.
func (s *storeSuite) TestAdminEmails() {
	first, err := s.admins.Create(s.ctx, "ops@example.com")
	s.Require().NoError(err)
	s.True(first.IsActive)

	_, err = s.admins.Create(s.ctx, "ops@example.com")
	s.Require().ErrorIs(err, model.ErrAlreadyExists)

	_, err = s.admins.Create(s.ctx, "desk@example.com")
	s.Require().NoError(err)

	active, err := s.admins.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Len(active, 2)

	s.Require().NoError(s.admins.Deactivate(s.ctx, first.ID))
	active, err = s.admins.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal("desk@example.com", active[0].Email)

	s.Run("removing twice reports not found", func() {
		s.Require().ErrorIs(s.admins.Deactivate(s.ctx, first.ID), model.ErrNotFound)
		s.Require().ErrorIs(s.admins.Deactivate(s.ctx, "missing"), model.ErrNotFound)
	})

	s.Run("re-adding a removed address reactivates it", func() {
		again, err := s.admins.Create(s.ctx, "ops@example.com")
		s.Require().NoError(err)
		s.Equal(first.ID, again.ID)
		s.True(again.IsActive)
	})
}

// TestAdminEmailsCaseInsensitive verifies addresses differing only in case
// are the same recipient in every store.
func (s *storeSuite) TestAdminEmailsCaseInsensitive() {
	first, err := s.admins.Create(s.ctx, "Ops@Example.com")
	s.Require().NoError(err)

	_, err = s.admins.Create(s.ctx, "ops@example.com")
	s.Require().ErrorIs(err, model.ErrAlreadyExists)

	s.Require().NoError(s.admins.Deactivate(s.ctx, first.ID))
	again, err := s.admins.Create(s.ctx, "OPS@EXAMPLE.COM")
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID)

	active, err := s.admins.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Len(active, 1)
}
