package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paymitra/paymitra/internal/callback"
)

// RegisterCallbackRoutes mounts the aggregator webhook. The aggregator posts
// with whatever method and body shape it likes, so every verb is accepted.
func RegisterCallbackRoutes(router fiber.Router, h *callback.Handler) {
	router.All("/callback", h.Receive)
}
