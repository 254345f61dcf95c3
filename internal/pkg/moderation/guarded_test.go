package moderation

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/TazaQala/app/models"
)

type stubGateway struct {
	res   Result
	err   error
	delay time.Duration
	panic bool
}

func (s *stubGateway) Name() string { return "stub" }

func (s *stubGateway) Analyze(ctx context.Context, _ string) (Result, error) {
	if s.panic {
		panic("kaboom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return s.res, s.err
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (o *recordingObserver) ObserveAnalysis(_, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func TestPolicyClassify(t *testing.T) {
	p := Policy{AutoConfirm: 0.85, Reject: 0.5}

	assert.Equal(t, models.AIStatusAutoConfirmed, p.Classify(0.85, true))
	assert.Equal(t, models.AIStatusNeedsReview, p.Classify(0.95, false))
	assert.Equal(t, models.AIStatusNeedsReview, p.Classify(0.5, true))
	assert.Equal(t, models.AIStatusRejected, p.Classify(0.49, true))
}

func TestGuardedPassesValidResult(t *testing.T) {
	want := Result{Confidence: 0.9, Status: models.AIStatusAutoConfirmed, Category: models.CategoryPlastic}
	obs := &recordingObserver{}
	g := NewGuarded(&stubGateway{res: want}, time.Second, obs)

	got := g.Analyze(context.Background(), "a.jpg")

	assert.Equal(t, want, got)
	assert.Equal(t, []string{models.AIStatusAutoConfirmed}, obs.statuses)
}

func TestGuardedFallsBackToNeedsReview(t *testing.T) {
	tests := []struct {
		name string
		gw   *stubGateway
	}{
		{"error", &stubGateway{err: errors.New("backend down")}},
		{"timeout", &stubGateway{delay: time.Second, res: Result{Confidence: 0.9, Status: models.AIStatusAutoConfirmed}}},
		{"confidence above one", &stubGateway{res: Result{Confidence: 1.5, Status: models.AIStatusAutoConfirmed}}},
		{"negative confidence", &stubGateway{res: Result{Confidence: -0.1, Status: models.AIStatusRejected}}},
		{"nan confidence", &stubGateway{res: Result{Confidence: math.NaN(), Status: models.AIStatusRejected}}},
		{"unknown status", &stubGateway{res: Result{Confidence: 0.7, Status: "maybe"}}},
		{"panic", &stubGateway{panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuarded(tt.gw, 20*time.Millisecond, nil)

			got := g.Analyze(context.Background(), "a.jpg")

			assert.Equal(t, models.AIStatusNeedsReview, got.Status)
			assert.Equal(t, 0.0, got.Confidence)
			assert.Equal(t, models.CategoryUnknown, got.Category)
			assert.Contains(t, got.Raw, "error")
		})
	}
}

func TestGuardedHonoursCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGuarded(&stubGateway{delay: time.Second}, 0, nil)

	got := g.Analyze(ctx, "a.jpg")

	assert.Equal(t, models.AIStatusNeedsReview, got.Status)
}

func TestNeedsReviewRawIsJSON(t *testing.T) {
	r := NeedsReview(`bad "quote"`)
	assert.JSONEq(t, `{"error":"bad \"quote\""}`, r.Raw)
}
