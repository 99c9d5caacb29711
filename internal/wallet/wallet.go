package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds occurs when a debit would drive the balance
	// negative. The balance is left unchanged.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateEntry indicates a ledger entry already exists for the
	// merchant reference; the mutation is idempotent and was not re-applied.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")

	// ErrAccountNotFound indicates no wallet account exists for the user.
	ErrAccountNotFound = errors.New("wallet account not found")
)

// Account is a per-user wallet balance. Version advances on every mutation
// and serves as the optimistic-concurrency token.
type Account struct {
	UserID    string
	Balance   decimal.Decimal
	Version   int64
	UpdatedAt time.Time
}

// Entry is one append-only ledger line tied to exactly one transaction.
// The set of entries for a user reconstructs the balance independently of
// the account row.
type Entry struct {
	MerchantRef      string
	UserID           string
	Delta            decimal.Decimal
	ResultingBalance decimal.Decimal
	CreatedAt        time.Time
}

// Ledger mutates per-user balances. Credit and Debit are idempotent on the
// merchant reference: the second attempt for the same ref returns the
// original entry with ErrDuplicateEntry and applies no delta. Mutations for
// one user are serialized, so two payments settling concurrently cannot
// lose an update.
type Ledger interface {
	EnsureAccount(ctx context.Context, userID string) error
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (Entry, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (Entry, error)
	Entries(ctx context.Context, userID string) ([]Entry, error)
}
