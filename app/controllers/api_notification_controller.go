package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TazaQala/internal/pkg/usercontext"
)

// HandleListNotifications GET /notifications?unread=true
func (a *API) HandleListNotifications(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	list, err := a.Notifications.ListByUser(userID, c.QueryBool("unread", false), queryLimit(c))
	if err != nil {
		return writeError(c, err)
	}
	unread, err := a.Notifications.CountUnread(userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"notifications": list, "unread": unread})
}

// HandleUnreadCount GET /notifications/unread-count
func (a *API) HandleUnreadCount(c *fiber.Ctx) error {
	unread, err := a.Notifications.CountUnread(usercontext.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"unread": unread})
}

// HandleMarkNotificationRead POST /notifications/:id/read
func (a *API) HandleMarkNotificationRead(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid notification id")
	}
	if err := a.Notifications.MarkRead(usercontext.GetUserID(c), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Notification not found"})
		}
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleMarkAllNotificationsRead POST /notifications/read-all
func (a *API) HandleMarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := a.Notifications.MarkAllRead(usercontext.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "updated": n})
}
