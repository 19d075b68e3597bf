package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/auth"
	"github.com/Shivanand-hulikatti/tour-registration/internal/handler"
	"github.com/Shivanand-hulikatti/tour-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
	"github.com/Shivanand-hulikatti/tour-registration/internal/notify"
	"github.com/Shivanand-hulikatti/tour-registration/internal/repository"
	"github.com/Shivanand-hulikatti/tour-registration/internal/service"
)

const adminPassword = "s3cret-dashboard"

// outbox collects notifier output instead of sending it.
type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *outbox) Enqueue(msg notify.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
}

func (o *outbox) kinds() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.msgs))
	for _, m := range o.msgs {
		out = append(out, m.Kind)
	}
	return out
}

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	outbox *outbox
	token  string
	tour   model.Tour
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	log := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	mem := repository.NewMemory()
	s.outbox = &outbox{}
	notifier, err := notify.NewNotifier(s.outbox, "contact@example.com", log)
	s.Require().NoError(err)

	tours := service.NewTourService(mem.Tours(), mem.Registrations(), 0, m, log)
	hash, err := auth.HashPassword(adminPassword)
	s.Require().NoError(err)

	s.router = handler.NewRouter(handler.RouterConfig{
		Tours:         tours,
		Registrations: service.NewRegistrationService(mem.Registrations(), tours, mem.AdminEmails(), notifier, m, log),
		Admin:         service.NewAdminService(mem.AdminEmails(), tours, notifier, log),
		Auth:          auth.NewService(hash, "0123456789abcdef0123456789abcdef", "tourreg", time.Hour),
		Metrics:       m,
		Gatherer:      reg,
		CORSOrigin:    "https://tours.example.com",
		Log:           log,
	})

	s.token = s.login()
	rec := s.do(http.MethodPost, "/admin/tours", s.token, model.CreateTourRequest{
		Title:     "Armenia Tour",
		StartDate: "2026-06-28",
		EndDate:   "2026-07-01",
		Capacity:  2,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.decode(rec, &s.tour)
}

func (s *HandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		s.Require().NoError(json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (s *HandlerSuite) login() string {
	rec := s.do(http.MethodPost, "/admin/login", "", model.LoginRequest{Password: adminPassword})
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp model.LoginResponse
	s.decode(rec, &resp)
	s.Require().NotEmpty(resp.Token)
	return resp.Token
}

func registrationBody(tourID string) map[string]any {
	return map[string]any{
		"tour_id":         tourID,
		"date_preference": "no_preference",
		"participant": map[string]any{
			"first_name":          "Dana",
			"last_name":           "Cohen",
			"passport_first_name": "DANA",
			"passport_last_name":  "COHEN",
			"phone":               "0521234567",
			"email":               "dana@example.com",
			"birth_date":          "1975-09-14",
			"passport_confirmed":  true,
		},
	}
}

func (s *HandlerSuite) register() *model.Registration {
	rec := s.do(http.MethodPost, "/registrations", "", registrationBody(s.tour.ID))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp model.CreateRegistrationResponse
	s.decode(rec, &resp)
	return resp.Registration
}

func (s *HandlerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ok"}`, rec.Body.String())
}

func (s *HandlerSuite) TestPublicTours() {
	rec := s.do(http.MethodGet, "/tours", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var tours []model.Tour
	s.decode(rec, &tours)
	s.Require().Len(tours, 1)
	s.Equal(2, tours[0].AvailableSpots)

	rec = s.do(http.MethodGet, "/tours/"+s.tour.ID, "", nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/tours/missing", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	inactive := false
	rec = s.do(http.MethodPatch, "/admin/tours/"+s.tour.ID, s.token, model.UpdateTourRequest{IsActive: &inactive})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/tours", "", nil)
	s.JSONEq(`[]`, rec.Body.String())
	rec = s.do(http.MethodGet, "/tours/"+s.tour.ID, "", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/admin/tours", s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var all []model.Tour
	s.decode(rec, &all)
	s.Len(all, 1, "the admin listing includes inactive tours")
}

func (s *HandlerSuite) TestCreateRegistration() {
	reg := s.register()
	s.Equal(1000, reg.OrderNumber)
	s.Equal(model.StatusPending, reg.Status)
	s.ElementsMatch([]string{notify.KindCustomerConfirmation}, s.outbox.kinds(), "no admin recipients yet")

	s.Run("malformed body", func() {
		rec := s.do(http.MethodPost, "/registrations", "", `{"tour_id":`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
	s.Run("unknown field", func() {
		body := registrationBody(s.tour.ID)
		body["coupon"] = "FREE"
		rec := s.do(http.MethodPost, "/registrations", "", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
	s.Run("passport not confirmed", func() {
		body := registrationBody(s.tour.ID)
		body["participant"].(map[string]any)["passport_confirmed"] = false
		rec := s.do(http.MethodPost, "/registrations", "", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
	s.Run("unknown tour", func() {
		rec := s.do(http.MethodPost, "/registrations", "", registrationBody("missing"))
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestAdminRoutesRequireToken() {
	for _, path := range []string{"/admin/registrations", "/admin/stats", "/admin/emails", "/admin/tours"} {
		rec := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code, path)
		s.JSONEq(`{"error":"unauthorized"}`, rec.Body.String())
	}

	rec := s.do(http.MethodPost, "/admin/login", "", model.LoginRequest{Password: "wrong"})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestStatusActions() {
	first := s.register()
	second := s.register()
	third := s.register()
	base := "/admin/registrations/"

	rec := s.do(http.MethodPost, base+first.ID+"/approve", s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var res model.TransitionResult
	s.decode(rec, &res)
	s.Equal(model.StatusApproved, res.Registration.Status)
	s.Equal(-1, res.SeatDelta)
	s.Equal(1, res.Tour.AvailableSpots)

	rec = s.do(http.MethodPost, base+first.ID+"/approve", s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	res = model.TransitionResult{}
	s.decode(rec, &res)
	s.True(res.Noop)

	rec = s.do(http.MethodPost, base+second.ID+"/assign-date", s.token, map[string]string{"assigned_date": "may_4_6"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	res = model.TransitionResult{}
	s.decode(rec, &res)
	s.Equal(model.DateMay4to6, res.Registration.AssignedDate)
	s.Equal(0, res.Tour.AvailableSpots)

	rec = s.do(http.MethodPost, base+third.ID+"/approve", s.token, nil)
	s.Equal(http.StatusConflict, rec.Code, "tour is full")

	rec = s.do(http.MethodPost, base+third.ID+"/cancel", s.token, nil)
	s.Equal(http.StatusConflict, rec.Code, "pending registrations cannot be cancelled")

	rec = s.do(http.MethodPost, base+third.ID+"/assign-date", s.token, map[string]string{"assigned_date": "no_preference"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, base+first.ID+"/cancel", s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, base+third.ID+"/approve", s.token, nil)
	s.Equal(http.StatusOK, rec.Code, "cancelling freed a seat")

	rec = s.do(http.MethodPost, base+"missing/reject", s.token, nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, base+second.ID, s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var got model.Registration
	s.decode(rec, &got)
	s.Equal(model.StatusApproved, got.Status)

	rec = s.do(http.MethodGet, base, s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list []model.RegistrationDetails
	s.decode(rec, &list)
	s.Len(list, 3)
}

func (s *HandlerSuite) TestCapacityEdit() {
	a, b := s.register(), s.register()
	for _, reg := range []*model.Registration{a, b} {
		rec := s.do(http.MethodPost, "/admin/registrations/"+reg.ID+"/approve", s.token, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
	}

	one := 1
	rec := s.do(http.MethodPatch, "/admin/tours/"+s.tour.ID, s.token, model.UpdateTourRequest{Capacity: &one})
	s.Equal(http.StatusConflict, rec.Code)

	five := 5
	rec = s.do(http.MethodPatch, "/admin/tours/"+s.tour.ID, s.token, model.UpdateTourRequest{Capacity: &five})
	s.Require().Equal(http.StatusOK, rec.Code)
	var tour model.Tour
	s.decode(rec, &tour)
	s.Equal(3, tour.AvailableSpots)

	rec = s.do(http.MethodGet, "/admin/stats", s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var stats []model.TourStats
	s.decode(rec, &stats)
	s.Require().Len(stats, 1)
	s.Equal(2, stats[0].StatusCounts.Approved)
}

func (s *HandlerSuite) TestAdminEmailsAndSummary() {
	rec := s.do(http.MethodPost, "/admin/daily-summary", s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"sent":false}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/admin/emails", s.token, model.AdminEmailRequest{Email: "Ops@Example.com"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var email model.AdminEmail
	s.decode(rec, &email)
	s.Equal("ops@example.com", email.Email)

	rec = s.do(http.MethodPost, "/admin/emails", s.token, model.AdminEmailRequest{Email: "ops@example.com"})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/admin/emails", s.token, model.AdminEmailRequest{Email: "not-an-email"})
	s.Equal(http.StatusBadRequest, rec.Code)

	s.register()
	rec = s.do(http.MethodPost, "/admin/daily-summary", s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"sent":true}`, rec.Body.String())
	s.Contains(s.outbox.kinds(), notify.KindAdminDailySummary)

	rec = s.do(http.MethodDelete, "/admin/emails/"+email.ID, s.token, nil)
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/admin/emails", s.token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`[]`, rec.Body.String())
}

func (s *HandlerSuite) TestCORSPreflight() {
	rec := s.do(http.MethodOptions, "/registrations", "", nil)
	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal("https://tours.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	s.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func (s *HandlerSuite) TestMetricsEndpoint() {
	s.register()
	rec := s.do(http.MethodGet, "/metrics", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	s.True(strings.Contains(body, "tourreg_registrations_created_total 1"), body)
	s.Contains(body, `route="/registrations"`)
}
