package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition("pending", "in_progress")
		m.Failure("reject", apperr.ErrForbidden)
		m.ObserveAnalysis("heuristic", "needs_review", time.Second)
		m.Redemption(nil)
		m.Points("report", 10)
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.Transition("", "pending")
	m.Transition("pending", "in_progress")
	m.Failure("approve_cleanup", fmt.Errorf("wrap: %w", apperr.ErrInvalidTransition))
	m.Redemption(nil)
	m.Redemption(apperr.ErrRewardUnavailable)
	m.Points("fake_penalty", -10)
	m.ObserveAnalysis("heuristic", "auto_confirmed", 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("none", "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionFailures.WithLabelValues("approve_cleanup", "invalid_transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Redemptions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Redemptions.WithLabelValues("reward_unavailable")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.PointsAwarded.WithLabelValues("fake_penalty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Triage.WithLabelValues("heuristic", "auto_confirmed")))

	m.Failure("noop", nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TransitionFailures.WithLabelValues("noop", "internal_error")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.Transition("pending", "rejected")

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "tazaqala_reports_transitions_total")
}
