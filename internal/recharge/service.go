package recharge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paymitra/paymitra/internal/gateway"
	"github.com/paymitra/paymitra/internal/operator"
	"github.com/paymitra/paymitra/internal/settlement"
	"github.com/paymitra/paymitra/internal/txn"
	"github.com/paymitra/paymitra/internal/wallet"
)

// ErrValidation marks input problems detected before any transaction is
// allocated or any network call made.
var ErrValidation = errors.New("invalid recharge request")

// Service coordinates prepaid recharges: validate, allocate the transaction,
// call the aggregator, settle.
type Service struct {
	agg     gateway.Aggregator
	txns    txn.Store
	wallets wallet.Ledger
	settler *settlement.Settler
	logger  *slog.Logger
}

// NewService constructs a recharge service.
func NewService(agg gateway.Aggregator, txns txn.Store, wallets wallet.Ledger, settler *settlement.Settler, logger *slog.Logger) *Service {
	return &Service{agg: agg, txns: txns, wallets: wallets, settler: settler, logger: logger}
}

// Input captures a user-submitted recharge request.
type Input struct {
	UserID      string
	Mobile      string
	Operator    string
	Circle      string
	Amount      decimal.Decimal
	ServiceType string
}

// Result is the structured outcome returned to the caller. Business
// failures are carried in Success/Message, not as errors.
type Result struct {
	Success     bool
	MerchantRef string
	Message     string
	Status      txn.Status
	Amount      decimal.Decimal
}

// Recharge executes one recharge attempt end to end.
func (s *Service) Recharge(ctx context.Context, in Input) (Result, error) {
	kind := txn.MobileRecharge
	if strings.EqualFold(in.ServiceType, "dth") {
		kind = txn.DTHRecharge
	}

	if in.UserID == "" {
		return Result{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(in.Mobile) == "" {
		return Result{}, fmt.Errorf("%w: recharge number is required", ErrValidation)
	}
	if in.Amount.LessThan(decimal.NewFromInt(1)) {
		return Result{}, fmt.Errorf("%w: amount must be at least 1", ErrValidation)
	}
	code := operator.Resolve(in.Operator)
	if !operator.ValidCode(code) {
		return Result{}, fmt.Errorf("%w: operator could not be resolved", ErrValidation)
	}

	ref := gateway.NewMerchantRef()
	if err := s.txns.Create(ctx, txn.Transaction{
		MerchantRef:  ref,
		UserID:       in.UserID,
		Kind:         kind,
		OperatorCode: code,
		Account:      in.Mobile,
		Amount:       in.Amount,
		Status:       txn.StatusCreated,
	}); err != nil {
		return Result{}, fmt.Errorf("allocate transaction: %w", err)
	}

	if err := s.wallets.EnsureAccount(ctx, in.UserID); err != nil {
		return Result{}, err
	}

	// Funds are checked before the network call and debited only at
	// settlement. A balance that evaporates in between is caught by the
	// fail-closed debit in the settler.
	balance, err := s.wallets.Balance(ctx, in.UserID)
	if err != nil {
		return Result{}, err
	}
	if balance.LessThan(in.Amount) {
		if _, err := s.txns.Transition(ctx, ref, txn.StatusCreated, txn.StatusFailed,
			txn.Extra{Message: settlement.ReasonInsufficientFunds}); err != nil {
			return Result{}, err
		}
		return Result{
			MerchantRef: ref,
			Message:     "Insufficient wallet balance",
			Status:      txn.StatusFailed,
			Amount:      in.Amount,
		}, nil
	}

	if _, err := s.txns.Transition(ctx, ref, txn.StatusCreated, txn.StatusSubmitted, txn.Extra{}); err != nil {
		return Result{}, err
	}

	out, err := s.agg.Recharge(ctx, gateway.RechargeRequest{
		MerchantRef:  ref,
		Number:       in.Mobile,
		OperatorCode: code,
		Circle:       in.Circle,
		Amount:       in.Amount,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrOutcomeUnknown) {
			s.logger.Warn("recharge outcome unknown", "ref", ref, "error", err)
			t, aerr := s.settler.MarkAmbiguous(ctx, ref, txn.StatusSubmitted)
			if aerr != nil {
				return Result{}, aerr
			}
			return resultFrom(t), nil
		}
		return Result{}, err
	}

	t, err := s.settler.Apply(ctx, ref, txn.StatusSubmitted, out)
	if err != nil {
		return Result{}, err
	}
	return resultFrom(t), nil
}

// Status returns the stored transaction for a merchant reference, the
// follow-up path for ambiguous outcomes.
func (s *Service) Status(ctx context.Context, ref string) (txn.Transaction, error) {
	return s.txns.Get(ctx, ref)
}

func resultFrom(t txn.Transaction) Result {
	return Result{
		Success:     t.Status == txn.StatusSuccess,
		MerchantRef: t.MerchantRef,
		Message:     t.Message,
		Status:      t.Status,
		Amount:      t.Amount,
	}
}
