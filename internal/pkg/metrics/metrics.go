package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
)

const namespace = "tazaqala"

// Metrics holds Prometheus metrics for the report lifecycle.
// All methods are safe on a nil receiver.
type Metrics struct {
	Registry           *prometheus.Registry
	Transitions        *prometheus.CounterVec
	TransitionFailures *prometheus.CounterVec
	Triage             *prometheus.CounterVec
	TriageDuration     *prometheus.HistogramVec
	Redemptions        *prometheus.CounterVec
	PointsAwarded      *prometheus.CounterVec
}

// New creates a metrics instance on its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reports",
				Name:      "transitions_total",
				Help:      "Report status transitions",
			},
			[]string{"from", "to"},
		),
		TransitionFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reports",
				Name:      "transition_failures_total",
				Help:      "Rejected report operations by error code",
			},
			[]string{"event", "code"},
		),
		Triage: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "moderation",
				Name:      "analyses_total",
				Help:      "Photo analyses by backend and resulting status",
			},
			[]string{"backend", "status"},
		),
		TriageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "moderation",
				Name:      "analysis_duration_seconds",
				Help:      "Photo analysis duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		Redemptions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rewards",
				Name:      "redemptions_total",
				Help:      "Reward redemption attempts by outcome",
			},
			[]string{"outcome"},
		),
		PointsAwarded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "points",
				Name:      "awarded_total",
				Help:      "Points credited (positive) or penalised (negative magnitude) by reason",
			},
			[]string{"reason"},
		),
	}
}

// ObserveAnalysis records one moderation gateway call
func (m *Metrics) ObserveAnalysis(backend, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Triage.WithLabelValues(backend, status).Inc()
	m.TriageDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// Transition records a committed status change
func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	if from == "" {
		from = "none"
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

// Failure records a rejected operation
func (m *Metrics) Failure(event string, err error) {
	if m == nil || err == nil {
		return
	}
	m.TransitionFailures.WithLabelValues(event, apperr.Code(err)).Inc()
}

// Redemption records a redemption attempt; err == nil means success
func (m *Metrics) Redemption(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = apperr.Code(err)
	}
	m.Redemptions.WithLabelValues(outcome).Inc()
}

// Points records a ledger credit or penalty
func (m *Metrics) Points(reason string, delta int) {
	if m == nil || delta == 0 {
		return
	}
	if delta < 0 {
		delta = -delta
	}
	m.PointsAwarded.WithLabelValues(reason).Add(float64(delta))
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
