// Package metrics holds the Prometheus instruments of the service.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

// Metrics provides observability for registrations, inventory and email.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RegistrationsCreated prometheus.Counter
	Transitions          *prometheus.CounterVec
	TransitionDuration   prometheus.Histogram
	AvailableSpots       *prometheus.GaugeVec
	Emails               *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "tourreg_registrations_created_total",
			Help: "Total number of registrations submitted",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tourreg_transitions_total",
			Help: "Registration status transitions by action and outcome",
		}, []string{"action", "result"}),
		TransitionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tourreg_transition_duration_seconds",
			Help:    "Duration of registration status transitions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		AvailableSpots: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tourreg_tour_available_spots",
			Help: "Seats still available per tour, as of the last write seen by this process",
		}, []string{"tour_id"}),
		Emails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tourreg_emails_total",
			Help: "Outbound emails by template and outcome (sent, failed, dropped)",
		}, []string{"kind", "result"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tourreg_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// IncrementRegistrationsCreated records a successful submission.
func (m *Metrics) IncrementRegistrationsCreated() {
	if m == nil {
		return
	}
	m.RegistrationsCreated.Inc()
}

// ObserveTransition records the outcome and duration of a transition.
// Call with time.Now() taken at the start of the operation.
func (m *Metrics) ObserveTransition(action model.Action, res *model.TransitionResult, err error, start time.Time) {
	if m == nil {
		return
	}
	m.TransitionDuration.Observe(time.Since(start).Seconds())
	m.Transitions.WithLabelValues(string(action), transitionResult(res, err)).Inc()
	if res != nil && res.Tour != nil {
		m.SetAvailableSpots(res.Tour)
	}
}

func transitionResult(res *model.TransitionResult, err error) string {
	switch {
	case err == nil && res != nil && res.Noop:
		return "noop"
	case err == nil:
		return "applied"
	case errors.Is(err, model.ErrCapacity):
		return "capacity"
	case errors.Is(err, model.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// SetAvailableSpots publishes the seat count of a tour.
func (m *Metrics) SetAvailableSpots(t *model.Tour) {
	if m == nil {
		return
	}
	m.AvailableSpots.WithLabelValues(t.ID).Set(float64(t.AvailableSpots))
}

// IncrementEmail counts one email outcome.
func (m *Metrics) IncrementEmail(kind, result string) {
	if m == nil {
		return
	}
	m.Emails.WithLabelValues(kind, result).Inc()
}

// ObserveHTTP records the latency of one request.
func (m *Metrics) ObserveHTTP(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}
