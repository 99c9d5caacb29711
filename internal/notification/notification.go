package notification

import (
	"context"
	"log/slog"
)

const (
	// KindRechargeResult reports the terminal outcome of a recharge or bill
	// payment to the user-facing channels.
	KindRechargeResult = "recharge_result"
	// KindReconciliationAlert flags a condition that needs a human operator:
	// a provider success the wallet could not cover, or a callback that
	// contradicts an already settled transaction.
	KindReconciliationAlert = "reconciliation_alert"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems. SMS/email delivery
// mechanics live outside this service; the default implementation writes to
// the structured log.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
