package txn

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a transaction lifecycle state. Transactions move forward only:
// CREATED -> SUBMITTED -> {SUCCESS | FAILED | AMBIGUOUS} -> RECONCILED,
// with CREATED -> FAILED allowed for local validation failures before any
// network call, and SUCCESS -> FAILED reserved for the insufficient-funds
// escalation at settlement time.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusSubmitted  Status = "SUBMITTED"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
	StatusAmbiguous  Status = "AMBIGUOUS"
	StatusReconciled Status = "RECONCILED"
)

// Terminal reports whether no further settlement should touch the wallet.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusReconciled:
		return true
	}
	return false
}

// ServiceKind identifies what the transaction purchases.
type ServiceKind string

const (
	MobileRecharge ServiceKind = "MOBILE_RECHARGE"
	DTHRecharge    ServiceKind = "DTH_RECHARGE"
	BillFetch      ServiceKind = "BILL_FETCH"
	BillPay        ServiceKind = "BILL_PAY"
)

// MovesFunds reports whether a successful transaction of this kind debits
// the wallet. Bill enquiries are read-only.
func (k ServiceKind) MovesFunds() bool {
	return k != BillFetch
}

// Transaction is one payment/recharge/bill attempt, keyed by the merchant
// reference generated before the first network call.
type Transaction struct {
	MerchantRef     string
	UserID          string
	Kind            ServiceKind
	OperatorCode    string
	Account         string
	BillerID        string
	Amount          decimal.Decimal
	ProviderOrderID string
	Status          Status
	Message         string
	RawResponse     []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Extra carries optional fields applied together with a state transition.
// Zero values leave the stored fields untouched.
type Extra struct {
	Message         string
	ProviderOrderID string
	RawResponse     []byte
}

var (
	// ErrNotFound indicates no transaction exists for the given reference.
	ErrNotFound = errors.New("transaction not found")

	// ErrDuplicateRef indicates a create collided with an existing merchant
	// reference.
	ErrDuplicateRef = errors.New("merchant reference already exists")
)

// Store is the durable record of every attempt. Transition is the only way
// to change state: it succeeds for exactly one of any set of concurrent
// callers racing on the same reference with the same expected state, which
// is what keeps the synchronous response path and the callback path from
// settling the same transaction twice.
type Store interface {
	Create(ctx context.Context, t Transaction) error
	Get(ctx context.Context, ref string) (Transaction, error)
	GetByProviderOrder(ctx context.Context, orderID string) (Transaction, error)
	Transition(ctx context.Context, ref string, from, to Status, extra Extra) (bool, error)
}
