package recharge

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/paymitra/paymitra/internal/txn"
)

// Handler exposes the recharge HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a recharge handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Submit processes POST /recharge. Malformed or invalid input is the only
// non-200 answer; business failures ride in the success flag.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		userID = c.Get("X-User-ID")
	}

	res, err := h.service.Recharge(c.UserContext(), Input{
		UserID:      userID,
		Mobile:      req.Mobile,
		Operator:    req.Operator,
		Circle:      req.Circle,
		Amount:      req.Amount,
		ServiceType: req.ServiceType,
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(Response{
		Success: res.Success,
		TxID:    res.MerchantRef,
		Message: res.Message,
		Status:  string(res.Status),
		Amount:  res.Amount.String(),
	})
}

// Status serves GET /transactions/:ref for outcome follow-up.
func (h *Handler) Status(c *fiber.Ctx) error {
	t, err := h.service.Status(c.UserContext(), c.Params("ref"))
	if err != nil {
		if errors.Is(err, txn.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"txid":       t.MerchantRef,
		"kind":       t.Kind,
		"status":     t.Status,
		"message":    t.Message,
		"amount":     t.Amount.String(),
		"order_id":   t.ProviderOrderID,
		"updated_at": t.UpdatedAt,
	})
}
