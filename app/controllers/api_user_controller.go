package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TazaQala/internal/pkg/accounts"
	"github.com/ManuelReschke/TazaQala/internal/pkg/usercontext"
)

// HandleGetUserAccount returns account information for the authenticated user.
func (a *API) HandleGetUserAccount(c *fiber.Ctx) error {
	account, err := a.Accounts.Profile(c.UserContext(), usercontext.Principal(c))
	if err != nil {
		return writeError(c, err)
	}
	level := account.LevelInfo()

	return c.JSON(fiber.Map{
		"id":                account.ID,
		"username":          account.Name,
		"email":             account.Email,
		"role":              account.Role,
		"is_cleaner":        account.IsCleaner,
		"district":          account.District,
		"created_at":        account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":     formatTimePtr(account.LastLoginAt),
		"api_key_prefix":    account.APIKeyPrefix,
		"api_key_issued_at": formatTimePtr(account.APIKeyCreatedAt),
		"points": fiber.Map{
			"total":   account.TotalPoints,
			"balance": account.PointsBalance,
			"spent":   account.PointsSpent,
		},
		"level": fiber.Map{
			"tier": level.Tier,
			"name": level.Name,
		},
		"stats": fiber.Map{
			"reports":   account.ReportsCount,
			"confirmed": account.ConfirmedReports,
			"rejected":  account.RejectedReports,
		},
	})
}

// HandleRotateAPIKey POST /me/api-key. The raw key is only returned here.
func (a *API) HandleRotateAPIKey(c *fiber.Ctx) error {
	raw, err := a.Accounts.RotateAPIKey(c.UserContext(), usercontext.Principal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"api_key": raw})
}

// HandleAdminListUsers GET /admin/users
func (a *API) HandleAdminListUsers(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	users, total, err := a.Accounts.List(c.UserContext(), usercontext.Principal(c), offset, queryLimit(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "total": total})
}

// HandleAdminUpdateUser PATCH /admin/users/:id
func (a *API) HandleAdminUpdateUser(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var ch accounts.RoleChange
	if err := c.BodyParser(&ch); err != nil {
		return badRequest(c, "invalid request body")
	}
	user, err := a.Accounts.ChangeRole(c.UserContext(), usercontext.Principal(c), id, ch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}
