package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

// DefaultCapacity is used when a tour is created without a capacity.
const DefaultCapacity = 32

const activeToursKey = "tours:active"

// StatusCounter reports registration counts per tour.
type StatusCounter interface {
	CountByTour(ctx context.Context) (map[string]model.StatusCounts, error)
}

// TourService orchestrates tour management and the public tour catalogue.
type TourService struct {
	tours   TourStore
	counts  StatusCounter
	cache   *cache.Cache
	metrics *metrics.Metrics
	log     *zap.Logger

	// gen counts invalidations so a read that raced with a write is not cached.
	mu  sync.Mutex
	gen uint64
}

// NewTourService constructs a TourService. A cacheTTL of zero disables the
// public listing cache.
func NewTourService(
	tours TourStore,
	counts StatusCounter,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	log *zap.Logger,
) *TourService {
	s := &TourService{tours: tours, counts: counts, metrics: m, log: log}
	if cacheTTL > 0 {
		s.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return s
}

// Invalidate drops every cached tour. Called after any write that touches
// a tour row, including status transitions.
func (s *TourService) Invalidate() {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cache.Flush()
}

func (s *TourService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fill caches v under key unless Invalidate ran since gen was taken.
func (s *TourService) fill(key string, v any, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.cache.Set(key, v, cache.DefaultExpiration)
	}
}

// CreateTour validates the request and delegates to the store.
func (s *TourService) CreateTour(ctx context.Context, req model.CreateTourRequest) (*model.Tour, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date is before start_date", model.ErrInvalidInput)
	}
	if req.Capacity == 0 {
		req.Capacity = DefaultCapacity
	}

	tour, err := s.tours.Create(ctx, model.Tour{
		Title:          req.Title,
		Description:    req.Description,
		StartDate:      start,
		EndDate:        end,
		FlightDetails:  req.FlightDetails,
		LuggageDetails: req.LuggageDetails,
		HotelDetails:   req.HotelDetails,
		Itinerary:      req.Itinerary,
		Price:          req.Price,
		Capacity:       req.Capacity,
		IsActive:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("create tour: %w", err)
	}

	s.Invalidate()
	s.metrics.SetAvailableSpots(tour)
	s.log.Info("tour created",
		zap.String("tour_id", tour.ID),
		zap.String("title", tour.Title),
		zap.Int("capacity", tour.Capacity))
	return tour, nil
}

// UpdateTour applies a partial update. A capacity change is rejected with
// model.ErrCapacity when it would drop below the number of approved seats, and
// a date change with model.ErrInvalidInput when the resulting end date would
// precede the start date.
func (s *TourService) UpdateTour(ctx context.Context, id string, req model.UpdateTourRequest) (*model.Tour, error) {
	if err := requireID("tour", id); err != nil {
		return nil, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	patch := model.TourPatch{
		Title:          req.Title,
		Description:    req.Description,
		FlightDetails:  req.FlightDetails,
		LuggageDetails: req.LuggageDetails,
		HotelDetails:   req.HotelDetails,
		Itinerary:      req.Itinerary,
		Price:          req.Price,
		Capacity:       req.Capacity,
		IsActive:       req.IsActive,
	}
	if req.StartDate != nil {
		t, err := parseDate("start_date", *req.StartDate)
		if err != nil {
			return nil, err
		}
		patch.StartDate = &t
	}
	if req.EndDate != nil {
		t, err := parseDate("end_date", *req.EndDate)
		if err != nil {
			return nil, err
		}
		patch.EndDate = &t
	}

	tour, err := s.tours.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrCapacity) || errors.Is(err, model.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("update tour: %w", err)
	}

	s.Invalidate()
	s.metrics.SetAvailableSpots(tour)
	s.log.Info("tour updated",
		zap.String("tour_id", tour.ID),
		zap.Int("capacity", tour.Capacity),
		zap.Int("available_spots", tour.AvailableSpots),
		zap.Bool("is_active", tour.IsActive))
	return tour, nil
}

// ListTours returns the active tours shown to the public, through the cache.
func (s *TourService) ListTours(ctx context.Context) ([]model.Tour, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(activeToursKey); ok {
			return append([]model.Tour(nil), v.([]model.Tour)...), nil
		}
	}
	gen := s.generation()
	tours, err := s.tours.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	if s.cache != nil {
		s.fill(activeToursKey, append([]model.Tour(nil), tours...), gen)
	}
	return tours, nil
}

// ListAllTours returns every tour, inactive ones included, bypassing the cache.
func (s *TourService) ListAllTours(ctx context.Context) ([]model.Tour, error) {
	tours, err := s.tours.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	return tours, nil
}

// GetTour returns a single tour for the public catalogue. Inactive tours are
// reported as not found.
func (s *TourService) GetTour(ctx context.Context, id string) (*model.Tour, error) {
	if err := requireID("tour", id); err != nil {
		return nil, err
	}
	key := "tour:" + id
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			t := v.(model.Tour)
			return &t, nil
		}
	}

	gen := s.generation()
	tour, err := s.tours.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get tour: %w", err)
	}
	if !tour.IsActive {
		return nil, fmt.Errorf("%w: tour %s is not active", model.ErrNotFound, id)
	}
	if s.cache != nil {
		s.fill(key, *tour, gen)
	}
	return tour, nil
}

// InventoryStats returns per-tour status counts and seat figures for every
// active tour.
func (s *TourService) InventoryStats(ctx context.Context) ([]model.TourStats, error) {
	tours, err := s.tours.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	counts, err := s.counts.CountByTour(ctx)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}

	stats := make([]model.TourStats, 0, len(tours))
	for _, t := range tours {
		stats = append(stats, model.TourStats{
			Tour:           t,
			StatusCounts:   counts[t.ID],
			AvailableSpots: t.AvailableSpots,
			Capacity:       t.Capacity,
		})
		s.metrics.SetAvailableSpots(&t)
	}
	return stats, nil
}

// toursByID indexes every tour, for joining registrations to their tour.
func (s *TourService) toursByID(ctx context.Context) (map[string]*model.Tour, error) {
	tours, err := s.tours.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	byID := make(map[string]*model.Tour, len(tours))
	for i := range tours {
		byID[tours[i].ID] = &tours[i]
	}
	return byID, nil
}

// lookup fetches a tour regardless of its active flag, bypassing the cache.
func (s *TourService) lookup(ctx context.Context, id string) (*model.Tour, error) {
	return s.tours.GetByID(ctx, id)
}
