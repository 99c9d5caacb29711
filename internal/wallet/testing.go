package wallet

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets an account balance directly when
// using the in-memory ledger.
func SeedBalance(l Ledger, userID string, amount decimal.Decimal) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.accounts[userID] = &Account{UserID: userID, Balance: amount}
	}
}
