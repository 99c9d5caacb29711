package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type inMemoryLedger struct {
	mu       sync.Mutex
	accounts map[string]*Account
	byRef    map[string]Entry
	entries  map[string][]Entry
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and local development.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		accounts: make(map[string]*Account),
		byRef:    make(map[string]Entry),
		entries:  make(map[string][]Entry),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[userID]; !exists {
		l.accounts[userID] = &Account{UserID: userID, Balance: decimal.Zero, UpdatedAt: time.Now().UTC()}
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, userID string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[userID]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	return acct.Balance, nil
}

func (l *inMemoryLedger) Credit(_ context.Context, userID string, amount decimal.Decimal, ref string) (Entry, error) {
	return l.apply(userID, amount, ref)
}

func (l *inMemoryLedger) Debit(_ context.Context, userID string, amount decimal.Decimal, ref string) (Entry, error) {
	return l.apply(userID, amount.Neg(), ref)
}

func (l *inMemoryLedger) apply(userID string, delta decimal.Decimal, ref string) (Entry, error) {
	if delta.IsZero() {
		return Entry{}, fmt.Errorf("amount must be non-zero")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, exists := l.byRef[ref]; exists {
		return existing, ErrDuplicateEntry
	}

	acct, ok := l.accounts[userID]
	if !ok {
		return Entry{}, ErrAccountNotFound
	}

	next := acct.Balance.Add(delta)
	if next.IsNegative() {
		return Entry{}, ErrInsufficientFunds
	}

	acct.Balance = next
	acct.Version++
	acct.UpdatedAt = time.Now().UTC()

	entry := Entry{
		MerchantRef:      ref,
		UserID:           userID,
		Delta:            delta,
		ResultingBalance: next,
		CreatedAt:        acct.UpdatedAt,
	}
	l.byRef[ref] = entry
	l.entries[userID] = append(l.entries[userID], entry)
	return entry, nil
}

func (l *inMemoryLedger) Entries(_ context.Context, userID string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries[userID]))
	copy(out, l.entries[userID])
	return out, nil
}
