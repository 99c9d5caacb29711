package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrOutcomeUnknown indicates the client could not observe the aggregator's
// answer (timeout, connection failure, unreadable body). The request may
// still have been accepted upstream, so callers must treat the transaction
// as ambiguous rather than failed, and must not retry automatically.
var ErrOutcomeUnknown = errors.New("aggregator outcome unknown")

// RechargeRequest carries the validated fields for a prepaid recharge call.
type RechargeRequest struct {
	MerchantRef  string
	Number       string
	OperatorCode string
	Circle       string
	Amount       decimal.Decimal
}

// BillFetchRequest carries the validated fields for a bill enquiry call.
type BillFetchRequest struct {
	MerchantRef string
	ConsumerID  string
	PayerMobile string
	BillerCode  string
	SubDivision string
}

// BillPayRequest carries the validated fields for a bill payment call.
// OrderID is the provider order identifier from a prior fetch when the
// caller has one; the merchant reference is used otherwise.
type BillPayRequest struct {
	MerchantRef string
	ConsumerID  string
	PayerMobile string
	BillerCode  string
	OrderID     string
	SubDivision string
	Amount      decimal.Decimal
}

// Outcome is the canonical, shape-independent result of an aggregator call
// or callback payload.
type Outcome struct {
	Success         bool
	Description     string
	ProviderOrderID string
	Amount          decimal.Decimal
	CustomerName    string
	DueDate         string
	BillNumber      string
	Raw             []byte
}

// Aggregator is the connector to the recharge/bill-payment provider.
// The HTTP client implements it; tests substitute fakes.
type Aggregator interface {
	Recharge(ctx context.Context, req RechargeRequest) (Outcome, error)
	BillFetch(ctx context.Context, req BillFetchRequest) (Outcome, error)
	BillPay(ctx context.Context, req BillPayRequest) (Outcome, error)
}
