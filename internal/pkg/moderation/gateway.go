// Package moderation scores report photos. A Gateway inspects the photo;
// Guarded wraps any gateway so that callers always receive a usable
// Result, falling back to manual review when the backend misbehaves.
package moderation

import (
	"context"
	"math"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/internal/pkg/config"
)

// Result is the outcome of analysing one photo.
type Result struct {
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
	Category   string  `json:"category"`
	// Raw is the backend specific analysis payload, stored for auditing.
	Raw string `json:"raw,omitempty"`
}

// Gateway analyses the photo stored under photoRef.
type Gateway interface {
	Analyze(ctx context.Context, photoRef string) (Result, error)
	Name() string
}

// Policy turns a confidence score into a triage status.
type Policy struct {
	AutoConfirm float64
	Reject      float64
}

// PolicyFromConfig extracts the thresholds from cfg.
func PolicyFromConfig(cfg config.Moderation) Policy {
	return Policy{AutoConfirm: cfg.AutoConfirmThreshold, Reject: cfg.RejectThreshold}
}

// Classify maps confidence to a status. Automatic confirmation also
// requires the backend to have detected pollution.
func (p Policy) Classify(confidence float64, detected bool) string {
	switch {
	case confidence >= p.AutoConfirm && detected:
		return models.AIStatusAutoConfirmed
	case confidence >= p.Reject:
		return models.AIStatusNeedsReview
	default:
		return models.AIStatusRejected
	}
}

// NeedsReview is the safe result used whenever a backend fails.
func NeedsReview(reason string) Result {
	return Result{
		Confidence: 0,
		Status:     models.AIStatusNeedsReview,
		Category:   models.CategoryUnknown,
		Raw:        `{"error":` + quote(reason) + `}`,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func validStatus(s string) bool {
	switch s {
	case models.AIStatusAutoConfirmed, models.AIStatusNeedsReview, models.AIStatusRejected:
		return true
	}
	return false
}
