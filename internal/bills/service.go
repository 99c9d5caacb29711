package bills

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/paymitra/paymitra/internal/gateway"
	"github.com/paymitra/paymitra/internal/operator"
	"github.com/paymitra/paymitra/internal/settlement"
	"github.com/paymitra/paymitra/internal/txn"
	"github.com/paymitra/paymitra/internal/wallet"
)

// Service coordinates bill enquiries and bill payments against the
// aggregator.
type Service struct {
	agg     gateway.Aggregator
	txns    txn.Store
	wallets wallet.Ledger
	settler *settlement.Settler
	logger  *slog.Logger
}

// NewService constructs a bills service.
func NewService(agg gateway.Aggregator, txns txn.Store, wallets wallet.Ledger, settler *settlement.Settler, logger *slog.Logger) *Service {
	return &Service{agg: agg, txns: txns, wallets: wallets, settler: settler, logger: logger}
}

// FetchInput captures a bill enquiry request.
type FetchInput struct {
	UserID      string
	ConsumerNo  string
	Mobile      string
	BillerCode  string
	SubDivision string
}

// Bill is the normalized bill detail returned to the caller.
type Bill struct {
	CustName string
	Amount   decimal.Decimal
	DueDate  string
	BillNo   string
}

// FetchResult carries the enquiry outcome; business failures ride in
// Success/Message.
type FetchResult struct {
	Success     bool
	MerchantRef string
	Message     string
	Bill        Bill
	OrderID     string
}

// PayInput captures a bill payment request. OrderID, when present, is the
// provider order id returned by a prior fetch.
type PayInput struct {
	UserID      string
	ConsumerNo  string
	Amount      decimal.Decimal
	Mobile      string
	OrderID     string
	BillerCode  string
	SubDivision string
}

// PayResult carries the payment outcome.
type PayResult struct {
	Success     bool
	MerchantRef string
	Message     string
	Status      txn.Status
}

// Fetch retrieves bill details. It allocates a transaction like every other
// aggregator call, but never touches the wallet.
func (s *Service) Fetch(ctx context.Context, in FetchInput) (FetchResult, error) {
	if msg, ok := s.validateBilling(in.BillerCode, in.Mobile, in.ConsumerNo); !ok {
		return FetchResult{Message: msg}, nil
	}

	ref := gateway.NewMerchantRef()
	if err := s.txns.Create(ctx, txn.Transaction{
		MerchantRef: ref,
		UserID:      in.UserID,
		Kind:        txn.BillFetch,
		BillerID:    in.BillerCode,
		Account:     in.ConsumerNo,
		Status:      txn.StatusCreated,
	}); err != nil {
		return FetchResult{}, fmt.Errorf("allocate transaction: %w", err)
	}
	if _, err := s.txns.Transition(ctx, ref, txn.StatusCreated, txn.StatusSubmitted, txn.Extra{}); err != nil {
		return FetchResult{}, err
	}

	out, err := s.agg.BillFetch(ctx, gateway.BillFetchRequest{
		MerchantRef: ref,
		ConsumerID:  in.ConsumerNo,
		PayerMobile: in.Mobile,
		BillerCode:  in.BillerCode,
		SubDivision: in.SubDivision,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrOutcomeUnknown) {
			if _, aerr := s.settler.MarkAmbiguous(ctx, ref, txn.StatusSubmitted); aerr != nil {
				return FetchResult{}, aerr
			}
			return FetchResult{MerchantRef: ref, Message: "Unable to reach biller, please try again later"}, nil
		}
		return FetchResult{}, err
	}

	t, err := s.settler.Apply(ctx, ref, txn.StatusSubmitted, out)
	if err != nil {
		return FetchResult{}, err
	}

	return FetchResult{
		Success:     t.Status == txn.StatusSuccess,
		MerchantRef: ref,
		Message:     t.Message,
		OrderID:     t.ProviderOrderID,
		Bill: Bill{
			CustName: out.CustomerName,
			Amount:   out.Amount,
			DueDate:  out.DueDate,
			BillNo:   out.BillNumber,
		},
	}, nil
}

// Pay settles a bill from the user's wallet.
func (s *Service) Pay(ctx context.Context, in PayInput) (PayResult, error) {
	if msg, ok := s.validateBilling(in.BillerCode, in.Mobile, in.ConsumerNo); !ok {
		return PayResult{Message: msg}, nil
	}
	if !in.Amount.IsPositive() {
		return PayResult{Message: "Amount must be greater than zero"}, nil
	}
	if in.UserID == "" {
		return PayResult{Message: "User is required"}, nil
	}

	ref := gateway.NewMerchantRef()
	if err := s.txns.Create(ctx, txn.Transaction{
		MerchantRef: ref,
		UserID:      in.UserID,
		Kind:        txn.BillPay,
		BillerID:    in.BillerCode,
		Account:     in.ConsumerNo,
		Amount:      in.Amount,
		Status:      txn.StatusCreated,
	}); err != nil {
		return PayResult{}, fmt.Errorf("allocate transaction: %w", err)
	}

	if err := s.wallets.EnsureAccount(ctx, in.UserID); err != nil {
		return PayResult{}, err
	}
	balance, err := s.wallets.Balance(ctx, in.UserID)
	if err != nil {
		return PayResult{}, err
	}
	if balance.LessThan(in.Amount) {
		if _, err := s.txns.Transition(ctx, ref, txn.StatusCreated, txn.StatusFailed,
			txn.Extra{Message: settlement.ReasonInsufficientFunds}); err != nil {
			return PayResult{}, err
		}
		return PayResult{MerchantRef: ref, Message: "Insufficient wallet balance", Status: txn.StatusFailed}, nil
	}

	if _, err := s.txns.Transition(ctx, ref, txn.StatusCreated, txn.StatusSubmitted, txn.Extra{}); err != nil {
		return PayResult{}, err
	}

	orderID := in.OrderID
	if orderID == "" {
		orderID = ref
	}
	out, err := s.agg.BillPay(ctx, gateway.BillPayRequest{
		MerchantRef: ref,
		ConsumerID:  in.ConsumerNo,
		PayerMobile: in.Mobile,
		BillerCode:  in.BillerCode,
		OrderID:     orderID,
		SubDivision: in.SubDivision,
		Amount:      in.Amount,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrOutcomeUnknown) {
			s.logger.Warn("bill pay outcome unknown", "ref", ref, "error", err)
			t, aerr := s.settler.MarkAmbiguous(ctx, ref, txn.StatusSubmitted)
			if aerr != nil {
				return PayResult{}, aerr
			}
			return PayResult{MerchantRef: ref, Message: t.Message, Status: t.Status}, nil
		}
		return PayResult{}, err
	}

	t, err := s.settler.Apply(ctx, ref, txn.StatusSubmitted, out)
	if err != nil {
		return PayResult{}, err
	}
	return PayResult{
		Success:     t.Status == txn.StatusSuccess,
		MerchantRef: ref,
		Message:     t.Message,
		Status:      t.Status,
	}, nil
}

// validateBilling applies the shared biller-code and payer-mobile checks the
// aggregator requires on every billing-style call.
func (s *Service) validateBilling(billerCode, mobile, consumerNo string) (string, bool) {
	if !operator.ValidCode(billerCode) {
		return "Invalid Biller selection, please choose a biller and retry", false
	}
	if !plausibleMobile(mobile) {
		return "A valid 10 digit mobile number is required", false
	}
	if strings.TrimSpace(consumerNo) == "" {
		return "Consumer number is required", false
	}
	return "", true
}

func plausibleMobile(mobile string) bool {
	digits := 0
	for _, r := range mobile {
		if unicode.IsDigit(r) {
			digits++
		} else if r != ' ' && r != '+' && r != '-' {
			return false
		}
	}
	return digits >= 10
}
