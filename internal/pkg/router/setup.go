package router

import (
	"github.com/gofiber/fiber/v2"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers the infrastructure routes first so that /metrics
// and /health bypass the API rate limiter.
func InstallRouter(app *fiber.App, httpRouter *HttpRouter, apiRouter *ApiRouter) {
	setup(app, httpRouter, apiRouter)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
