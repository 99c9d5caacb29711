package callback

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AckBody is the literal acknowledgement the aggregator expects. Anything
// else, including error statuses, makes it redeliver forever.
const AckBody = "success"

// Handler exposes the webhook endpoint.
type Handler struct {
	reconciler *Reconciler
}

// NewHandler constructs a callback handler.
func NewHandler(reconciler *Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

// Receive accepts any method and any body shape, reconciles what it can,
// and always acknowledges. The reconciliation work is bounded so slow
// storage cannot hold the acknowledgement past the aggregator's window.
func (h *Handler) Receive(c *fiber.Ctx) error {
	body := make([]byte, len(c.Body()))
	copy(body, c.Body())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h.reconciler.Process(ctx, body)

	return c.Status(http.StatusOK).SendString(AckBody)
}
