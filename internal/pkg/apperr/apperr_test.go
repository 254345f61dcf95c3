package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestCode(t *testing.T) {
	tests := map[error]string{
		ErrInvalidTransition:   "invalid_transition",
		ErrForbidden:           "forbidden",
		ErrInsufficientBalance: "insufficient_balance",
		ErrRewardUnavailable:   "reward_unavailable",
		ErrMissingArtifact:     "missing_artifact",
		ErrNotFound:            "not_found",
		ErrInvalidInput:        "invalid_input",
		errors.New("boom"):     "internal_error",
	}
	for err, want := range tests {
		assert.Equal(t, want, Code(fmt.Errorf("ctx: %w", err)))
	}
}

func TestInvalidTransition(t *testing.T) {
	err := InvalidTransition("cleaned", "approve_cleanup")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "cleaned")
	assert.Contains(t, err.Error(), "approve_cleanup")
}

func TestLookup(t *testing.T) {
	err := Lookup(fmt.Errorf("query: %w", gorm.ErrRecordNotFound), "report", 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "report 7")

	boom := errors.New("boom")
	assert.Equal(t, boom, Lookup(boom, "report", 7))
	assert.NoError(t, Lookup(nil, "report", 7))
}
