package callback

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/paymitra/paymitra/internal/gateway"
	"github.com/paymitra/paymitra/internal/metrics"
	"github.com/paymitra/paymitra/internal/notification"
	"github.com/paymitra/paymitra/internal/settlement"
	"github.com/paymitra/paymitra/internal/txn"
)

// Result labels what a callback delivery amounted to, mostly for metrics
// and the operator log.
type Result string

const (
	ResultSettled      Result = "settled"
	ResultDuplicate    Result = "duplicate"
	ResultConflict     Result = "conflict"
	ResultUncorrelated Result = "uncorrelated"
	ResultUnreadable   Result = "unreadable"
)

// Reconciler ingests the aggregator's asynchronous notifications and
// reconciles them against the transaction store. It never returns an error
// to the HTTP layer: the aggregator retries indefinitely on anything but an
// acknowledgement, so every delivery is acknowledged and the outcome is
// recorded here instead.
type Reconciler struct {
	txns     txn.Store
	settler  *settlement.Settler
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewReconciler constructs a callback reconciler.
func NewReconciler(txns txn.Store, settler *settlement.Settler, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Reconciler {
	return &Reconciler{txns: txns, settler: settler, notifier: notifier, metrics: m, logger: logger}
}

// refKeys are the places a callback body has been observed to carry the
// merchant reference.
var refKeys = []string{"merchantref", "merchant_ref", "refid", "ref_id", "clientrefid"}

// orderKeys are the places it may carry the provider's own order id instead.
var orderKeys = []string{"orderid", "order_id", "txid", "opid"}

// Process handles one callback delivery.
func (r *Reconciler) Process(ctx context.Context, body []byte) Result {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		r.logger.Warn("unreadable callback body", "body_len", len(body))
		return r.count(ResultUnreadable)
	}

	t, found := r.correlate(ctx, doc)
	if !found {
		r.logger.Warn("uncorrelated callback", "body_len", len(body))
		return r.count(ResultUncorrelated)
	}

	out, err := gateway.Normalize(body)
	if err != nil {
		r.logger.Warn("undecodable callback payload", "ref", t.MerchantRef)
		return r.count(ResultUnreadable)
	}

	switch {
	case t.Status == txn.StatusSubmitted || t.Status == txn.StatusAmbiguous:
		settled, err := r.settler.Apply(ctx, t.MerchantRef, t.Status, out)
		if err != nil {
			r.logger.Error("callback settlement failed", "ref", t.MerchantRef, "error", err)
			return r.count(ResultUnreadable)
		}
		r.logger.Info("callback settled transaction", "ref", t.MerchantRef, "status", settled.Status)
		return r.count(ResultSettled)

	case t.Status == txn.StatusReconciled:
		return r.count(ResultDuplicate)

	case agrees(t.Status, out.Success):
		// The callback confirms what the synchronous path already decided.
		if _, err := r.txns.Transition(ctx, t.MerchantRef, t.Status, txn.StatusReconciled, txn.Extra{}); err != nil {
			r.logger.Error("reconcile transition failed", "ref", t.MerchantRef, "error", err)
		}
		return r.count(ResultDuplicate)

	default:
		// The aggregator contradicts a settled transaction. Surface it for
		// a human; never auto-correct money that already moved.
		r.logger.Error("reconciliation conflict",
			"ref", t.MerchantRef, "stored_status", t.Status, "callback_success", out.Success, "callback_message", out.Description)
		if r.notifier != nil {
			_ = r.notifier.Send(ctx, notification.Message{
				Kind:        notification.KindReconciliationAlert,
				Destination: t.UserID,
				Body:        "callback outcome conflicts with settled transaction " + t.MerchantRef,
			})
		}
		return r.count(ResultConflict)
	}
}

// correlate finds the transaction a callback refers to, by merchant
// reference first, then by the provider order id.
func (r *Reconciler) correlate(ctx context.Context, doc map[string]any) (txn.Transaction, bool) {
	payload := doc
	for _, key := range []string{"data", "result", "response"} {
		if inner, ok := doc[key].(map[string]any); ok {
			payload = inner
			break
		}
	}

	for _, key := range refKeys {
		if ref, ok := payload[key].(string); ok && ref != "" {
			if t, err := r.txns.Get(ctx, ref); err == nil {
				return t, true
			} else if !errors.Is(err, txn.ErrNotFound) {
				r.logger.Error("callback lookup failed", "ref", ref, "error", err)
			}
		}
	}
	for _, key := range orderKeys {
		if id, ok := payload[key].(string); ok && id != "" {
			if t, err := r.txns.Get(ctx, id); err == nil {
				return t, true
			}
			if t, err := r.txns.GetByProviderOrder(ctx, id); err == nil {
				return t, true
			}
		}
	}
	return txn.Transaction{}, false
}

func agrees(stored txn.Status, callbackSuccess bool) bool {
	if callbackSuccess {
		return stored == txn.StatusSuccess
	}
	return stored == txn.StatusFailed
}

func (r *Reconciler) count(result Result) Result {
	if r.metrics != nil {
		r.metrics.Callbacks.WithLabelValues(string(result)).Inc()
	}
	return result
}
