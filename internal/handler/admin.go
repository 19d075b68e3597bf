package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/auth"
	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
	"github.com/Shivanand-hulikatti/tour-registration/internal/service"
)

// AdminHandler serves admin login, recipient management and the daily summary.
type AdminHandler struct {
	svc  *service.AdminService
	auth *auth.Service
	log  *zap.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc *service.AdminService, authSvc *auth.Service, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, auth: authSvc, log: log}
}

// Login handles POST /admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	token, expiresAt, err := h.auth.Login(req.Password)
	if err != nil {
		h.log.Warn("admin login failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, model.LoginResponse{Token: token, ExpiresAt: expiresAt})
}

// ListEmails handles GET /admin/emails
func (h *AdminHandler) ListEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.svc.ListEmails(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(emails))
}

// AddEmail handles POST /admin/emails
func (h *AdminHandler) AddEmail(w http.ResponseWriter, r *http.Request) {
	var req model.AdminEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	email, err := h.svc.AddEmail(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, email)
}

// RemoveEmail handles DELETE /admin/emails/{id}
func (h *AdminHandler) RemoveEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveEmail(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DailySummary handles POST /admin/daily-summary
// Reports {"sent": false} when there was nothing to summarise.
func (h *AdminHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	sent, err := h.svc.SendDailySummary(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": sent})
}
