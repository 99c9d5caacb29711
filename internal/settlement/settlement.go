package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paymitra/paymitra/internal/gateway"
	"github.com/paymitra/paymitra/internal/metrics"
	"github.com/paymitra/paymitra/internal/notification"
	"github.com/paymitra/paymitra/internal/txn"
	"github.com/paymitra/paymitra/internal/wallet"
)

// ReasonInsufficientFunds is the failure message recorded when the provider
// reported success but the wallet could not cover the amount.
const ReasonInsufficientFunds = "INSUFFICIENT_FUNDS"

// AmbiguousMessage is the user-facing message for transactions whose outcome
// at the aggregator is unknown.
const AmbiguousMessage = "Outcome unknown, please check transaction status later"

// Settler drives a transaction into a terminal state and applies the wallet
// movement at most once. Both the synchronous response path and the callback
// path go through here; the transaction store's compare-and-swap decides the
// winner when they race.
type Settler struct {
	txns     txn.Store
	wallets  wallet.Ledger
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New constructs a settler.
func New(txns txn.Store, wallets wallet.Ledger, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Settler {
	return &Settler{txns: txns, wallets: wallets, notifier: notifier, metrics: m, logger: logger}
}

// Apply settles the transaction identified by ref according to the
// normalized outcome, expecting it to currently be in the from state.
// Losing the compare-and-swap is not an error: it means the other path
// already settled the transaction, and the stored record is returned as-is.
func (s *Settler) Apply(ctx context.Context, ref string, from txn.Status, out gateway.Outcome) (txn.Transaction, error) {
	extra := txn.Extra{
		Message:         out.Description,
		ProviderOrderID: out.ProviderOrderID,
		RawResponse:     out.Raw,
	}
	if extra.ProviderOrderID == "" {
		// Keep a stable external-facing handle even when the provider
		// omitted its own order id.
		extra.ProviderOrderID = ref
	}

	if !out.Success {
		won, err := s.txns.Transition(ctx, ref, from, txn.StatusFailed, extra)
		if err != nil {
			return txn.Transaction{}, fmt.Errorf("transition %s to FAILED: %w", ref, err)
		}
		if won {
			s.count(ctx, ref)
		}
		return s.txns.Get(ctx, ref)
	}

	won, err := s.txns.Transition(ctx, ref, from, txn.StatusSuccess, extra)
	if err != nil {
		return txn.Transaction{}, fmt.Errorf("transition %s to SUCCESS: %w", ref, err)
	}
	if !won {
		return s.txns.Get(ctx, ref)
	}

	t, err := s.txns.Get(ctx, ref)
	if err != nil {
		return txn.Transaction{}, err
	}

	if t.Kind.MovesFunds() {
		if err := s.debit(ctx, t); err != nil {
			return s.txns.Get(ctx, ref)
		}
	}

	s.count(ctx, ref)
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindRechargeResult,
			Destination: t.UserID,
			Body:        fmt.Sprintf("%s of %s for %s succeeded", t.Kind, t.Amount, t.Account),
		})
	}
	return s.txns.Get(ctx, ref)
}

// MarkAmbiguous records that the outcome of the synchronous call could not
// be observed. Ambiguous transactions wait for the callback or for manual
// reconciliation; they are never retried automatically.
func (s *Settler) MarkAmbiguous(ctx context.Context, ref string, from txn.Status) (txn.Transaction, error) {
	if _, err := s.txns.Transition(ctx, ref, from, txn.StatusAmbiguous, txn.Extra{Message: AmbiguousMessage}); err != nil {
		return txn.Transaction{}, fmt.Errorf("transition %s to AMBIGUOUS: %w", ref, err)
	}
	return s.txns.Get(ctx, ref)
}

// debit applies the wallet movement after the transaction won its transition
// to SUCCESS. A duplicate entry means an earlier settlement already moved
// the funds and is treated as done. Insufficient funds at this point is a
// fatal reconciliation condition: the provider delivered, the wallet cannot
// pay. The transaction is failed closed and escalated, never swallowed.
func (s *Settler) debit(ctx context.Context, t txn.Transaction) error {
	_, err := s.wallets.Debit(ctx, t.UserID, t.Amount, t.MerchantRef)
	if err == nil || errors.Is(err, wallet.ErrDuplicateEntry) {
		return nil
	}

	if errors.Is(err, wallet.ErrInsufficientFunds) {
		if _, terr := s.txns.Transition(ctx, t.MerchantRef, txn.StatusSuccess, txn.StatusFailed,
			txn.Extra{Message: ReasonInsufficientFunds}); terr != nil {
			s.logger.Error("insufficient-funds escalation failed", "ref", t.MerchantRef, "error", terr)
		}
		s.logger.Error("provider success without wallet cover",
			"ref", t.MerchantRef, "user_id", t.UserID, "amount", t.Amount.String())
		if s.notifier != nil {
			_ = s.notifier.Send(ctx, notification.Message{
				Kind:        notification.KindReconciliationAlert,
				Destination: t.UserID,
				Body:        fmt.Sprintf("transaction %s reported success but wallet debit failed: insufficient funds", t.MerchantRef),
			})
		}
		return err
	}

	s.logger.Error("wallet debit failed", "ref", t.MerchantRef, "error", err)
	return err
}

func (s *Settler) count(ctx context.Context, ref string) {
	if s.metrics == nil {
		return
	}
	if t, err := s.txns.Get(ctx, ref); err == nil {
		s.metrics.Settlements.WithLabelValues(string(t.Kind), string(t.Status)).Inc()
	}
}
