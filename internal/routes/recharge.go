package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paymitra/paymitra/internal/recharge"
)

// RegisterRechargeRoutes mounts recharge submission and status lookup.
func RegisterRechargeRoutes(router fiber.Router, h *recharge.Handler) {
	router.Post("/recharge", h.Submit)
	router.Get("/transactions/:ref", h.Status)
}
