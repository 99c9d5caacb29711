package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paymitra/paymitra/internal/wallet"
)

// RegisterWalletRoutes mounts balance lookup, manual top-up and the ledger
// audit trail.
func RegisterWalletRoutes(router fiber.Router, h *wallet.Handler) {
	router.Get("/wallet/balance", h.Balance)
	router.Post("/wallet/credit", h.Credit)
	router.Get("/wallet/entries", h.Entries)
}
