package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
	"github.com/Shivanand-hulikatti/tour-registration/internal/service"
)

// TourHandler serves the public catalogue and admin tour management.
type TourHandler struct {
	svc *service.TourService
	log *zap.Logger
}

// NewTourHandler constructs a TourHandler.
func NewTourHandler(svc *service.TourService, log *zap.Logger) *TourHandler {
	return &TourHandler{svc: svc, log: log}
}

// ListTours handles GET /tours
// Returns the active tours ordered by start date.
func (h *TourHandler) ListTours(w http.ResponseWriter, r *http.Request) {
	tours, err := h.svc.ListTours(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(tours))
}

// GetTour handles GET /tours/{id}
func (h *TourHandler) GetTour(w http.ResponseWriter, r *http.Request) {
	tour, err := h.svc.GetTour(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

// ListAllTours handles GET /admin/tours
// Includes inactive tours.
func (h *TourHandler) ListAllTours(w http.ResponseWriter, r *http.Request) {
	tours, err := h.svc.ListAllTours(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(tours))
}

// CreateTour handles POST /admin/tours
func (h *TourHandler) CreateTour(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTourRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	tour, err := h.svc.CreateTour(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, tour)
}

// UpdateTour handles PATCH /admin/tours/{id}
// A capacity below the number of approved seats is refused with 409.
func (h *TourHandler) UpdateTour(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateTourRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	tour, err := h.svc.UpdateTour(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

// Stats handles GET /admin/stats
func (h *TourHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.InventoryStats(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(stats))
}
