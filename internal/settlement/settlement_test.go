package settlement

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/paymitra/paymitra/internal/gateway"
	"github.com/paymitra/paymitra/internal/logging"
	"github.com/paymitra/paymitra/internal/txn"
	"github.com/paymitra/paymitra/internal/wallet"
)

func newFixture(t *testing.T, status txn.Status, balance int64) (*Settler, txn.Store, wallet.Ledger) {
	t.Helper()
	ctx := context.Background()

	txns := txn.NewInMemory()
	wallets := wallet.NewInMemory()
	if err := wallets.EnsureAccount(ctx, "user-1"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	wallet.SeedBalance(wallets, "user-1", decimal.NewFromInt(balance))

	err := txns.Create(ctx, txn.Transaction{
		MerchantRef:  "REF1",
		UserID:       "user-1",
		Kind:         txn.MobileRecharge,
		OperatorCode: "ATL",
		Account:      "9800000000",
		Amount:       decimal.NewFromInt(100),
		Status:       status,
	})
	if err != nil {
		t.Fatalf("create txn: %v", err)
	}

	return New(txns, wallets, nil, nil, logging.Discard()), txns, wallets
}

func TestApplySuccessDebitsOnce(t *testing.T) {
	settler, txns, wallets := newFixture(t, txn.StatusSubmitted, 500)
	ctx := context.Background()
	out := gateway.Outcome{Success: true, Description: "ok", ProviderOrderID: "OP1"}

	settled, err := settler.Apply(ctx, "REF1", txn.StatusSubmitted, out)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if settled.Status != txn.StatusSuccess {
		t.Fatalf("status = %s", settled.Status)
	}
	if settled.ProviderOrderID != "OP1" {
		t.Fatalf("provider order id = %q", settled.ProviderOrderID)
	}

	balance, _ := wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("balance = %s, want 400", balance)
	}

	// Same settlement replayed: compare-and-swap loses, wallet untouched.
	if _, err := settler.Apply(ctx, "REF1", txn.StatusSubmitted, out); err != nil {
		t.Fatalf("replay apply: %v", err)
	}
	balance, _ = wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("balance after replay = %s, want 400", balance)
	}

	stored, _ := txns.Get(ctx, "REF1")
	if stored.Status != txn.StatusSuccess {
		t.Fatalf("replay changed status to %s", stored.Status)
	}
}

func TestApplyFailureCarriesProviderMessage(t *testing.T) {
	settler, txns, wallets := newFixture(t, txn.StatusSubmitted, 500)
	ctx := context.Background()

	settled, err := settler.Apply(ctx, "REF1", txn.StatusSubmitted, gateway.Outcome{
		Success:     false,
		Description: "Operator temporarily down",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if settled.Status != txn.StatusFailed {
		t.Fatalf("status = %s", settled.Status)
	}
	if settled.Message != "Operator temporarily down" {
		t.Fatalf("message = %q", settled.Message)
	}

	balance, _ := wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("failed settlement must not touch the wallet, balance = %s", balance)
	}

	stored, _ := txns.Get(ctx, "REF1")
	if stored.ProviderOrderID != "REF1" {
		t.Fatalf("missing provider order id must fall back to merchant ref, got %q", stored.ProviderOrderID)
	}
}

func TestApplyInsufficientFundsFailsClosed(t *testing.T) {
	settler, txns, wallets := newFixture(t, txn.StatusSubmitted, 50)
	ctx := context.Background()

	settled, err := settler.Apply(ctx, "REF1", txn.StatusSubmitted, gateway.Outcome{Success: true, Description: "ok"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if settled.Status != txn.StatusFailed {
		t.Fatalf("status = %s, want FAILED", settled.Status)
	}
	if settled.Message != ReasonInsufficientFunds {
		t.Fatalf("message = %q", settled.Message)
	}

	balance, _ := wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("balance = %s, want unchanged 50", balance)
	}

	stored, _ := txns.Get(ctx, "REF1")
	if stored.Status != txn.StatusFailed {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

func TestApplyAmbiguousThenCallbackSettlesOnce(t *testing.T) {
	settler, txns, wallets := newFixture(t, txn.StatusSubmitted, 500)
	ctx := context.Background()

	ambiguous, err := settler.MarkAmbiguous(ctx, "REF1", txn.StatusSubmitted)
	if err != nil {
		t.Fatalf("mark ambiguous: %v", err)
	}
	if ambiguous.Status != txn.StatusAmbiguous {
		t.Fatalf("status = %s", ambiguous.Status)
	}

	balance, _ := wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("ambiguous must not move funds, balance = %s", balance)
	}

	// The late callback reports success for the same reference.
	settled, err := settler.Apply(ctx, "REF1", txn.StatusAmbiguous, gateway.Outcome{Success: true, Description: "ok"})
	if err != nil {
		t.Fatalf("callback apply: %v", err)
	}
	if settled.Status != txn.StatusSuccess {
		t.Fatalf("status = %s", settled.Status)
	}
	balance, _ = wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("balance = %s, want 400", balance)
	}

	stored, _ := txns.Get(ctx, "REF1")
	if stored.Status != txn.StatusSuccess {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

func TestBillFetchSettlesWithoutWalletMovement(t *testing.T) {
	ctx := context.Background()
	txns := txn.NewInMemory()
	wallets := wallet.NewInMemory()
	wallets.EnsureAccount(ctx, "user-1")
	wallet.SeedBalance(wallets, "user-1", decimal.NewFromInt(500))

	txns.Create(ctx, txn.Transaction{
		MerchantRef: "FETCH1",
		UserID:      "user-1",
		Kind:        txn.BillFetch,
		BillerID:    "MPOWER",
		Account:     "CONS001",
		Status:      txn.StatusSubmitted,
	})

	settler := New(txns, wallets, nil, nil, logging.Discard())
	settled, err := settler.Apply(ctx, "FETCH1", txn.StatusSubmitted, gateway.Outcome{
		Success:      true,
		Description:  "ok",
		Amount:       decimal.NewFromInt(249),
		CustomerName: "A Sharma",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if settled.Status != txn.StatusSuccess {
		t.Fatalf("status = %s", settled.Status)
	}

	balance, _ := wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("bill fetch must never debit, balance = %s", balance)
	}
}

func TestConcurrentSettlersDebitExactlyOnce(t *testing.T) {
	settler, _, wallets := newFixture(t, txn.StatusSubmitted, 1_000)
	ctx := context.Background()
	out := gateway.Outcome{Success: true, Description: "ok"}

	// The synchronous response handler and the callback handler race.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := settler.Apply(ctx, "REF1", txn.StatusSubmitted, out); err != nil {
				t.Errorf("apply: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, _ := wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("balance = %s, want exactly one debit leaving 900", balance)
	}
}
