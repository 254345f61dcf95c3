package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/TazaQala/app/controllers"
	"github.com/ManuelReschke/TazaQala/app/repository"
	"github.com/ManuelReschke/TazaQala/internal/pkg/middleware"
)

type ApiRouter struct {
	API     *controllers.API
	Users   repository.UserRepository
	Captcha middleware.CaptchaVerifier
	// LimiterStorage backs the rate limiter; nil keeps counters in memory.
	LimiterStorage fiber.Storage
	// RequestsPerMinute per client IP; zero disables the limiter.
	RequestsPerMinute int
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	handlers := []fiber.Handler{}
	if h.RequestsPerMinute > 0 {
		handlers = append(handlers, limiter.New(limiter.Config{
			Max:        h.RequestsPerMinute,
			Expiration: time.Minute,
			Storage:    h.LimiterStorage,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "Too many requests"})
			},
		}))
	}
	handlers = append(handlers, middleware.APIKeyAuth(h.Users, false))

	api := app.Group("/api", handlers...)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "TazaQala API",
		})
	})

	a := h.API
	v1 := api.Group("/v1")

	// Public
	v1.Get("/reports", a.HandleListReports)
	v1.Get("/reports/:id", a.HandleGetReport)
	v1.Post("/reports", middleware.GuestCaptcha(h.Captcha), a.HandleSubmitReport)
	v1.Get("/rewards", a.HandleListRewards)
	v1.Get("/stats", a.HandleStatistics)
	v1.Get("/leaderboard", a.HandleLeaderboard)

	// Authenticated; role checks happen in the services.
	auth := v1.Group("", middleware.RequireAPIAuth)
	auth.Post("/reports/:id/upvote", a.HandleUpvoteReport)
	auth.Post("/reports/:id/take", a.HandleTakeInWork)
	auth.Post("/reports/:id/reject", a.HandleRejectReport)
	auth.Delete("/reports/:id", a.HandleDeleteReport)
	auth.Post("/reports/:id/cleanup", a.HandleSubmitCleanup)
	auth.Post("/reports/:id/cleanup/approve", a.HandleApproveCleanup)
	auth.Post("/reports/:id/cleanup/reject", a.HandleRejectCleanup)
	auth.Post("/rewards/:id/redeem", a.HandleRedeemReward)

	auth.Get("/me", a.HandleGetUserAccount)
	auth.Post("/me/api-key", a.HandleRotateAPIKey)
	auth.Get("/me/redemptions", a.HandleMyRedemptions)
	auth.Get("/me/reports", a.HandleMyReports)

	auth.Get("/notifications", a.HandleListNotifications)
	auth.Get("/notifications/unread-count", a.HandleUnreadCount)
	auth.Post("/notifications/read-all", a.HandleMarkAllNotificationsRead)
	auth.Post("/notifications/:id/read", a.HandleMarkNotificationRead)

	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/rewards", a.HandleAdminListRewards)
	admin.Post("/rewards", a.HandleCreateReward)
	admin.Patch("/rewards/:id", a.HandleUpdateReward)
	admin.Get("/redemptions", a.HandleListRedemptions)
	admin.Post("/redemptions/:id", a.HandleProcessRedemption)
	admin.Get("/users", a.HandleAdminListUsers)
	admin.Patch("/users/:id", a.HandleAdminUpdateUser)
}

func NewApiRouter(api *controllers.API, users repository.UserRepository, captcha middleware.CaptchaVerifier, storage fiber.Storage, rpm int) *ApiRouter {
	return &ApiRouter{API: api, Users: users, Captcha: captcha, LimiterStorage: storage, RequestsPerMinute: rpm}
}
