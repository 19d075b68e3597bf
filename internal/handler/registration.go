package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
	"github.com/Shivanand-hulikatti/tour-registration/internal/service"
)

// RegistrationHandler serves public booking and the admin status actions.
type RegistrationHandler struct {
	svc *service.RegistrationService
	log *zap.Logger
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, log: log}
}

// Create handles POST /registrations
// Stores a pending registration and returns its order number.
func (h *RegistrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /admin/registrations
func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(regs))
}

// Get handles GET /admin/registrations/{id}
func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// Approve handles POST /admin/registrations/{id}/approve
func (h *RegistrationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Approve)
}

// Reject handles POST /admin/registrations/{id}/reject
func (h *RegistrationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Reject)
}

// Cancel handles POST /admin/registrations/{id}/cancel
func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

// AssignDate handles POST /admin/registrations/{id}/assign-date
// Body: {"assigned_date": "may_4_6" | "may_25_27"}.
func (h *RegistrationHandler) AssignDate(w http.ResponseWriter, r *http.Request) {
	var req model.AssignDateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	h.transition(w, r, func(ctx context.Context, id string) (*model.TransitionResult, error) {
		return h.svc.AssignDateAndApprove(ctx, id, req.AssignedDate)
	})
}

func (h *RegistrationHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id string) (*model.TransitionResult, error),
) {
	res, err := apply(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
