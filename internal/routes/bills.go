package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paymitra/paymitra/internal/bills"
)

// RegisterBillRoutes mounts bill enquiry and payment.
func RegisterBillRoutes(router fiber.Router, h *bills.Handler) {
	router.Post("/bill-fetch", h.Fetch)
	router.Post("/bill-pay", h.Pay)
}
