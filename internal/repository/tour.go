package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

// TourRepository handles persistence for tours.
type TourRepository struct {
	db *pgxpool.Pool
}

// NewTourRepository constructs a TourRepository.
func NewTourRepository(db *pgxpool.Pool) *TourRepository {
	return &TourRepository{db: db}
}

// Create inserts a new tour with a generated UUID and every seat available.
func (r *TourRepository) Create(ctx context.Context, tour model.Tour) (*model.Tour, error) {
	now := time.Now().UTC()
	tour.ID = uuid.New().String()
	tour.AvailableSpots = tour.Capacity
	tour.CreatedAt = now
	tour.UpdatedAt = now

	_, err := r.db.Exec(ctx,
		`INSERT INTO tours (`+tourColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		tour.ID, tour.Title, tour.Description, tour.StartDate, tour.EndDate, tour.FlightDetails, tour.LuggageDetails,
		tour.HotelDetails, tour.Itinerary, tour.Price, tour.Capacity, tour.AvailableSpots, tour.IsActive,
		tour.CreatedAt, tour.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert tour: %w", err)
	}
	return &tour, nil
}

// List returns tours ordered by start date. activeOnly hides inactive tours.
func (r *TourRepository) List(ctx context.Context, activeOnly bool) ([]model.Tour, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tourColumns+`
		 FROM tours
		 WHERE is_active OR NOT $1
		 ORDER BY start_date ASC, created_at ASC`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	defer rows.Close()

	var tours []model.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tour: %w", err)
		}
		tours = append(tours, *t)
	}
	return tours, rows.Err()
}

// GetByID returns a single tour or model.ErrNotFound.
func (r *TourRepository) GetByID(ctx context.Context, id string) (*model.Tour, error) {
	t, err := scanTour(r.db.QueryRow(ctx, `SELECT `+tourColumns+` FROM tours WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tour %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("get tour: %w", err)
	}
	return t, nil
}

// Update applies a partial update. A capacity change recomputes
// available_spots from the approved count while holding the tour row lock, so
// the inventory invariant survives concurrent transitions.
func (r *TourRepository) Update(ctx context.Context, id string, patch model.TourPatch) (*model.Tour, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback is a no-op once Commit succeeded.
	defer func() { _ = tx.Rollback(ctx) }()

	tour, err := scanTour(tx.QueryRow(ctx, `SELECT `+tourColumns+` FROM tours WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tour %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("lock tour row: %w", err)
	}

	if patch.Capacity != nil && *patch.Capacity != tour.Capacity {
		var approved int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM registrations WHERE tour_id = $1 AND status = $2`,
			id, string(model.StatusApproved),
		).Scan(&approved)
		if err != nil {
			return nil, fmt.Errorf("count approved: %w", err)
		}
		if err := resizeTour(tour, *patch.Capacity, approved); err != nil {
			return nil, err
		}
	}
	if err := applyTourPatch(tour, patch); err != nil {
		return nil, err
	}
	tour.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx,
		`UPDATE tours SET title = $2, description = $3, start_date = $4, end_date = $5, flight_details = $6,
		 luggage_details = $7, hotel_details = $8, itinerary = $9, price = $10, capacity = $11,
		 available_spots = $12, is_active = $13, updated_at = $14
		 WHERE id = $1`,
		tour.ID, tour.Title, tour.Description, tour.StartDate, tour.EndDate, tour.FlightDetails,
		tour.LuggageDetails, tour.HotelDetails, tour.Itinerary, tour.Price, tour.Capacity,
		tour.AvailableSpots, tour.IsActive, tour.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update tour: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return tour, nil
}

// resizeTour sets a new capacity, keeping available = capacity - approved.
func resizeTour(tour *model.Tour, capacity, approved int) error {
	if capacity < approved {
		return fmt.Errorf("%w: capacity %d is below %d approved registrations", model.ErrCapacity, capacity, approved)
	}
	tour.Capacity = capacity
	tour.AvailableSpots = capacity - approved
	return nil
}

// applyTourPatch copies every non-nil field except capacity, which resizeTour
// owns. The merged dates must still be in order.
func applyTourPatch(tour *model.Tour, patch model.TourPatch) error {
	if patch.Title != nil {
		tour.Title = *patch.Title
	}
	if patch.Description != nil {
		tour.Description = *patch.Description
	}
	if patch.StartDate != nil {
		tour.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		tour.EndDate = *patch.EndDate
	}
	if patch.FlightDetails != nil {
		tour.FlightDetails = *patch.FlightDetails
	}
	if patch.LuggageDetails != nil {
		tour.LuggageDetails = *patch.LuggageDetails
	}
	if patch.HotelDetails != nil {
		tour.HotelDetails = *patch.HotelDetails
	}
	if patch.Itinerary != nil {
		tour.Itinerary = *patch.Itinerary
	}
	if patch.Price != nil {
		tour.Price = *patch.Price
	}
	if patch.IsActive != nil {
		tour.IsActive = *patch.IsActive
	}
	if tour.EndDate.Before(tour.StartDate) {
		return fmt.Errorf("%w: end_date %s is before start_date %s", model.ErrInvalidInput,
			tour.EndDate.Format(time.DateOnly), tour.StartDate.Format(time.DateOnly))
	}
	return nil
}
