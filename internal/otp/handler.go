package otp

import (
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes OTP issue and verification endpoints. Delivery to the
// subscriber rides on an SMS provider outside this service; in development
// the issued code is echoed back so the flow can be exercised end to end.
type Handler struct {
	store  *Store
	logger *slog.Logger
	reveal bool
}

// NewHandler constructs an OTP handler. reveal controls whether issued codes
// are returned in the response body.
func NewHandler(store *Store, logger *slog.Logger, reveal bool) *Handler {
	return &Handler{store: store, logger: logger, reveal: reveal}
}

type sendRequest struct {
	Mobile string `json:"mobile"`
}

type verifyRequest struct {
	Mobile string `json:"mobile"`
	Code   string `json:"code"`
}

// Send issues a fresh six digit code for the mobile number, replacing any
// previous one.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Mobile == "" {
		return fiber.NewError(http.StatusBadRequest, "mobile is required")
	}

	code, err := generateCode()
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not generate code")
	}
	if err := h.store.Issue(c.UserContext(), req.Mobile, code); err != nil {
		h.logger.Error("issue otp", slog.String("mobile", req.Mobile), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "could not issue code")
	}

	resp := fiber.Map{"success": true}
	if h.reveal {
		resp["code"] = code
	}
	return c.JSON(resp)
}

// Verify checks a presented code. A valid code is consumed and cannot be
// replayed.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Mobile == "" || req.Code == "" {
		return fiber.NewError(http.StatusBadRequest, "mobile and code are required")
	}

	err := h.store.Verify(c.UserContext(), req.Mobile, req.Code)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"success": true})
	case errors.Is(err, ErrExpired), errors.Is(err, ErrMismatch):
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	default:
		h.logger.Error("verify otp", slog.String("mobile", req.Mobile), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "could not verify code")
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	digits := []byte("000000")
	v := n.Int64()
	for i := len(digits) - 1; i >= 0 && v > 0; i-- {
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits), nil
}
