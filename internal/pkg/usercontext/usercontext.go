package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/internal/pkg/access"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
	Role       string `json:"role"`
	IsCleaner  bool   `json:"is_cleaner"`
}

// FromUser builds the context of an authenticated user.
func FromUser(u *models.User) UserContext {
	return UserContext{
		UserID:     u.ID,
		Username:   u.Name,
		IsLoggedIn: true,
		IsAdmin:    u.Role == models.ROLE_ADMIN,
		Role:       u.Role,
		IsCleaner:  u.IsCleaner,
	}
}

// Set stores uc on the request together with the flat compatibility keys.
func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
	c.Locals(KeyFromProtected, uc.IsLoggedIn)
	c.Locals(KeyUserID, uc.UserID)
	c.Locals(KeyUsername, uc.Username)
	c.Locals(KeyIsAdmin, uc.IsAdmin)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if uc, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return uc
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// Principal returns the acting party for access checks.
func Principal(c *fiber.Ctx) access.Principal {
	uc := GetUserContext(c)
	if !uc.IsLoggedIn {
		return access.Anonymous
	}
	return access.Principal{UserID: uc.UserID, Role: uc.Role, IsCleaner: uc.IsCleaner}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetUsername returns the current user's username, or empty string if not logged in
func GetUsername(c *fiber.Ctx) string {
	return GetUserContext(c).Username
}
