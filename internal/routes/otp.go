package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paymitra/paymitra/internal/otp"
)

// RegisterOTPRoutes mounts one-time code issue and verification.
func RegisterOTPRoutes(router fiber.Router, h *otp.Handler) {
	router.Post("/otp/send", h.Send)
	router.Post("/otp/verify", h.Verify)
}
