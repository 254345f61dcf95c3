// Package apperr defines the domain failures returned by the report,
// points and reward services. Services wrap them with context; callers
// match them with errors.Is.
package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrForbidden           = errors.New("forbidden")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRewardUnavailable   = errors.New("reward unavailable")
	ErrMissingArtifact     = errors.New("missing artifact")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
)

// InvalidTransition wraps ErrInvalidTransition with the attempted edge.
func InvalidTransition(from, event string) error {
	return fmt.Errorf("%w: %s from status %q", ErrInvalidTransition, event, from)
}

// Lookup turns a missing database row into ErrNotFound and passes every
// other error through unchanged.
func Lookup(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
	}
	return err
}

// Code returns a stable machine-readable code for err, or "internal_error".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrRewardUnavailable):
		return "reward_unavailable"
	case errors.Is(err, ErrMissingArtifact):
		return "missing_artifact"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal_error"
	}
}
