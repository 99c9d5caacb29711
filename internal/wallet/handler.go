package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes wallet balance and funding endpoints.
type Handler struct {
	ledger Ledger
}

// NewHandler constructs a wallet handler.
func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type creditRequest struct {
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

func userID(c *fiber.Ctx) string {
	if uid, _ := c.Locals("user_id").(string); uid != "" {
		return uid
	}
	return c.Get("X-User-ID")
}

// Balance serves GET /wallet/balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return fiber.NewError(http.StatusBadRequest, "user id is required")
	}
	if err := h.ledger.EnsureAccount(c.UserContext(), uid); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	balance, err := h.ledger.Balance(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"user_id": uid,
		"balance": balance.String(),
	})
}

// Credit serves POST /wallet/credit, the manual top-up entry point. The
// reference makes retried top-ups idempotent.
func (h *Handler) Credit(c *fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return fiber.NewError(http.StatusBadRequest, "user id is required")
	}

	var req creditRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return fiber.NewError(http.StatusBadRequest, "amount must be a positive number")
	}
	if req.Reference == "" {
		return fiber.NewError(http.StatusBadRequest, "reference is required")
	}

	if err := h.ledger.EnsureAccount(c.UserContext(), uid); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	entry, err := h.ledger.Credit(c.UserContext(), uid, amount, req.Reference)
	replayed := errors.Is(err, ErrDuplicateEntry)
	if err != nil && !replayed {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"user_id":   uid,
		"reference": entry.MerchantRef,
		"balance":   entry.ResultingBalance.String(),
		"replayed":  replayed,
	})
}

// Entries serves GET /wallet/entries, oldest first.
func (h *Handler) Entries(c *fiber.Ctx) error {
	uid := userID(c)
	if uid == "" {
		return fiber.NewError(http.StatusBadRequest, "user id is required")
	}
	entries, err := h.ledger.Entries(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return c.JSON(fiber.Map{"user_id": uid, "entries": []fiber.Map{}})
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"reference":  e.MerchantRef,
			"delta":      e.Delta.String(),
			"balance":    e.ResultingBalance.String(),
			"created_at": e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"user_id": uid, "entries": out})
}
