package callback

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/paymitra/paymitra/internal/logging"
	"github.com/paymitra/paymitra/internal/settlement"
	"github.com/paymitra/paymitra/internal/txn"
	"github.com/paymitra/paymitra/internal/wallet"
)

func newFixture(t *testing.T, status txn.Status) (*Reconciler, txn.Store, wallet.Ledger) {
	t.Helper()
	ctx := context.Background()

	txns := txn.NewInMemory()
	wallets := wallet.NewInMemory()
	wallets.EnsureAccount(ctx, "user-1")
	wallet.SeedBalance(wallets, "user-1", decimal.NewFromInt(500))

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

	logger := logging.Discard()
	settler := settlement.New(txns, wallets, nil, nil, logger)
	return NewReconciler(txns, settler, nil, nil, logger), txns, wallets
}

func TestLateCallbackSettlesAmbiguousTransaction(t *testing.T) {
	rec, txns, wallets := newFixture(t, txn.StatusAmbiguous)
	ctx := context.Background()

	body := []byte(`{"data":{"refid":"REF1","status":"TXN","message":"Recharge successful","orderid":"OP42"}}`)
	if got := rec.Process(ctx, body); got != ResultSettled {
		t.Fatalf("result = %s, want settled", got)
	}

	stored, _ := txns.Get(ctx, "REF1")
	if stored.Status != txn.StatusSuccess {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.ProviderOrderID != "OP42" {
		t.Fatalf("provider order id = %q", stored.ProviderOrderID)
	}

	balance, _ := wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("balance = %s, want 400", balance)
	}
}

func TestDuplicateCallbackIsNoOp(t *testing.T) {
	rec, txns, wallets := newFixture(t, txn.StatusAmbiguous)
	ctx := context.Background()

	body := []byte(`{"refid":"REF1","status":"TXN","message":"ok"}`)
	if got := rec.Process(ctx, body); got != ResultSettled {
		t.Fatalf("first delivery = %s", got)
	}
	if got := rec.Process(ctx, body); got != ResultDuplicate {
		t.Fatalf("second delivery = %s, want duplicate", got)
	}
	// Third delivery arrives after the record is RECONCILED.
	if got := rec.Process(ctx, body); got != ResultDuplicate {
		t.Fatalf("third delivery = %s, want duplicate", got)
	}

	balance, _ := wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("balance = %s, want a single debit leaving 400", balance)
	}

	stored, _ := txns.Get(ctx, "REF1")
	if stored.Status != txn.StatusReconciled {
		t.Fatalf("agreeing callback should mark RECONCILED, got %s", stored.Status)
	}
}

func TestConflictingCallbackIsLoggedNotApplied(t *testing.T) {
	rec, txns, wallets := newFixture(t, txn.StatusSuccess)
	ctx := context.Background()
	// Simulate the debit the synchronous path already applied.
	if _, err := wallets.Debit(ctx, "user-1", decimal.NewFromInt(100), "REF1"); err != nil {
		t.Fatalf("seed debit: %v", err)
	}

	body := []byte(`{"refid":"REF1","status":"ERR","message":"transaction reversed"}`)
	if got := rec.Process(ctx, body); got != ResultConflict {
		t.Fatalf("result = %s, want conflict", got)
	}

	stored, _ := txns.Get(ctx, "REF1")
	if stored.Status != txn.StatusSuccess {
		t.Fatalf("conflict must not change status, got %s", stored.Status)
	}
	balance, _ := wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("conflict must not move funds, balance = %s", balance)
	}
}

func TestUncorrelatedCallbackAcknowledged(t *testing.T) {
	rec, _, wallets := newFixture(t, txn.StatusSubmitted)
	ctx := context.Background()

	if got := rec.Process(ctx, []byte(`{"refid":"UNKNOWN9","status":"TXN"}`)); got != ResultUncorrelated {
		t.Fatalf("result = %s, want uncorrelated", got)
	}
	if got := rec.Process(ctx, []byte(`not json at all`)); got != ResultUnreadable {
		t.Fatalf("result = %s, want unreadable", got)
	}

	balance, _ := wallets.Balance(ctx, "user-1")
	if !balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("balance = %s, want untouched 500", balance)
	}
}

func TestCorrelateByProviderOrderID(t *testing.T) {
	rec, txns, _ := newFixture(t, txn.StatusAmbiguous)
	ctx := context.Background()
	// The provider order id was captured during an earlier fetch.
	if _, err := txns.Transition(ctx, "REF1", txn.StatusAmbiguous, txn.StatusAmbiguous,
		txn.Extra{ProviderOrderID: "OP900"}); err != nil {
		t.Fatalf("seed provider order id: %v", err)
	}

	body := []byte(`{"orderid":"OP900","status":"TXN","message":"ok"}`)
	if got := rec.Process(ctx, body); got != ResultSettled {
		t.Fatalf("result = %s, want settled", got)
	}
	stored, _ := txns.Get(ctx, "REF1")
	if stored.Status != txn.StatusSuccess {
		t.Fatalf("status = %s", stored.Status)
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	rec, _, _ := newFixture(t, txn.StatusSubmitted)
	handler := NewHandler(rec)

	app := fiber.New()
	app.All("/callback", handler.Receive)

	for _, body := range []string{
		`{"refid":"REF1","status":"TXN","message":"ok"}`,
		`{"refid":"REF1","status":"TXN","message":"ok"}`, // redelivery
		`garbage`,
		``,
	} {
		req := httptest.NewRequest(fiber.MethodPost, "/callback", strings.NewReader(body))
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(payload) != AckBody {
			t.Fatalf("body = %q, want fixed ack %q", payload, AckBody)
		}
	}
}
