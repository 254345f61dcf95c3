package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/TazaQala/app/repository"
	"github.com/ManuelReschke/TazaQala/internal/pkg/accounts"
	"github.com/ManuelReschke/TazaQala/internal/pkg/apperr"
	"github.com/ManuelReschke/TazaQala/internal/pkg/lifecycle"
	"github.com/ManuelReschke/TazaQala/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/TazaQala/internal/pkg/rewards"
	"github.com/ManuelReschke/TazaQala/internal/pkg/statistics"
	"github.com/ManuelReschke/TazaQala/internal/pkg/upload"
)

const defaultListLimit = 50
const maxListLimit = 200

// API bundles the services behind the JSON endpoints.
type API struct {
	Reports       *lifecycle.Service
	Rewards       *rewards.Service
	Stats         *statistics.Service
	Accounts      *accounts.Service
	Notifications repository.NotificationRepository
	Uploads       *upload.Store
	// Views is optional; a nil client skips view counting.
	Views redis.Cmdable
}

var statusByCode = map[string]int{
	"invalid_transition":   fiber.StatusConflict,
	"forbidden":            fiber.StatusForbidden,
	"insufficient_balance": fiber.StatusUnprocessableEntity,
	"reward_unavailable":   fiber.StatusConflict,
	"missing_artifact":     fiber.StatusUnprocessableEntity,
	"not_found":            fiber.StatusNotFound,
	"invalid_input":        fiber.StatusBadRequest,
}

// writeError maps a service error to its JSON response. Unknown errors are
// logged and hidden behind a generic 500.
func writeError(c *fiber.Ctx, err error) error {
	code := apperr.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": code, "message": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_input", "message": msg})
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func queryLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		return defaultListLimit
	}
	return limit
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func (a *API) countView(ctx context.Context, reportID uint) {
	if a.Views == nil {
		return
	}
	if err := counter.AddView(ctx, a.Views, reportID); err != nil {
		log.Warnf("[API] view counter for report %d: %v", reportID, err)
	}
}
