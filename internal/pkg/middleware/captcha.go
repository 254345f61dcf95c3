package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TazaQala/internal/pkg/usercontext"
)

// CaptchaVerifier is satisfied by *hcaptcha.Verifier.
type CaptchaVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token string) (bool, error)
}

// GuestCaptcha requires anonymous submitters to pass a captcha. Logged-in
// users and disabled verifiers pass straight through.
func GuestCaptcha(v CaptchaVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if v == nil || !v.Enabled() || usercontext.IsLoggedIn(c) {
			return c.Next()
		}

		token := strings.TrimSpace(c.Get("X-Captcha-Token"))
		if token == "" {
			token = strings.TrimSpace(c.FormValue("h-captcha-response"))
		}

		ok, err := v.Verify(c.UserContext(), token)
		if err != nil || !ok {
			log.Warnf("[Captcha] rejected guest request from %s: %v", c.IP(), err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "captcha_failed",
				"message": "captcha verification failed",
			})
		}
		return c.Next()
	}
}
