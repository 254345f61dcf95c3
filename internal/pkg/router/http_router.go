package router

import (
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TazaQala/internal/pkg/metrics"
)

// HttpRouter serves everything outside the JSON API: health, metrics,
// stored uploads and the OpenAPI document.
type HttpRouter struct {
	Metrics   *metrics.Metrics
	UploadDir string
	// OpenAPIFile enables the swagger UI when set.
	OpenAPIFile string
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if h.Metrics != nil {
		app.Get("/metrics", h.Metrics.Handler())
	}

	if h.UploadDir != "" {
		app.Static("/uploads", h.UploadDir, fiber.Static{Browse: false})
	}

	if h.OpenAPIFile != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: h.OpenAPIFile,
			Path:     "v1",
		}))
	}
}

func NewHttpRouter(m *metrics.Metrics, uploadDir, openAPIFile string) *HttpRouter {
	return &HttpRouter{Metrics: m, UploadDir: uploadDir, OpenAPIFile: openAPIFile}
}
