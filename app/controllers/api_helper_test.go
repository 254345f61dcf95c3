package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
)

func TestWriteErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.InvalidTransition("cleaned", "approve_cleanup"), fiber.StatusConflict},
		{fmt.Errorf("%w: role citizen", apperr.ErrForbidden), fiber.StatusForbidden},
		{apperr.ErrInsufficientBalance, fiber.StatusUnprocessableEntity},
		{apperr.ErrRewardUnavailable, fiber.StatusConflict},
		{apperr.ErrMissingArtifact, fiber.StatusUnprocessableEntity},
		{apperr.ErrNotFound, fiber.StatusNotFound},
		{apperr.ErrInvalidInput, fiber.StatusBadRequest},
		{errors.New("connection refused"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(apperr.Code(tt.err), func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return writeError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestQueryLimit(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.JSON(queryLimit(c)) })

	for query, want := range map[string]string{"": "50", "?limit=10": "10", "?limit=-1": "50", "?limit=5000": "50"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/"+query, nil), -1)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, want, string(body), query)
	}
}

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2024, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}
