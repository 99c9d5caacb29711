package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits one structured log line per request. Health and metrics
// scrapes are skipped to keep the log usable.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		duration := time.Since(start)
		requestID, _ := c.Locals(requestIDHeader).(string)
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			uid = c.Get("X-User-ID")
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", duration),
		}
		if requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if uid != "" {
			attrs = append(attrs, slog.String("user_id", uid))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}
