package recharge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/paymitra/paymitra/internal/gateway"
	"github.com/paymitra/paymitra/internal/logging"
	"github.com/paymitra/paymitra/internal/settlement"
	"github.com/paymitra/paymitra/internal/txn"
	"github.com/paymitra/paymitra/internal/wallet"
)

// fakeAggregator scripts the synchronous reply, mirroring the connector
// interface the HTTP client implements.
type fakeAggregator struct {
	outcome gateway.Outcome
	err     error
	calls   int
	lastReq gateway.RechargeRequest
}

func (f *fakeAggregator) Recharge(_ context.Context, req gateway.RechargeRequest) (gateway.Outcome, error) {
	f.calls++
	f.lastReq = req
	return f.outcome, f.err
}

func (f *fakeAggregator) BillFetch(context.Context, gateway.BillFetchRequest) (gateway.Outcome, error) {
	return f.outcome, f.err
}

func (f *fakeAggregator) BillPay(context.Context, gateway.BillPayRequest) (gateway.Outcome, error) {
	return f.outcome, f.err
}

func newService(agg gateway.Aggregator, balance int64) (*Service, txn.Store, wallet.Ledger) {
	txns := txn.NewInMemory()
	wallets := wallet.NewInMemory()
	wallets.EnsureAccount(context.Background(), "user-1")
	wallet.SeedBalance(wallets, "user-1", decimal.NewFromInt(balance))
	logger := logging.Discard()
	settler := settlement.New(txns, wallets, nil, nil, logger)
	return NewService(agg, txns, wallets, settler, logger), txns, wallets
}

func TestRechargeSuccess(t *testing.T) {
	agg := &fakeAggregator{outcome: gateway.Outcome{Success: true, Description: "Recharge successful", ProviderOrderID: "OP9"}}
	svc, txns, wallets := newService(agg, 500)

	res, err := svc.Recharge(context.Background(), Input{
		UserID:   "user-1",
		Mobile:   "9800000000",
		Operator: "AIRTEL",
		Amount:   decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Status != txn.StatusSuccess {
		t.Fatalf("status = %s", res.Status)
	}
	if !res.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("amount = %s", res.Amount)
	}
	if agg.lastReq.OperatorCode != "ATL" {
		t.Fatalf("operator resolved to %q, want ATL", agg.lastReq.OperatorCode)
	}
	if agg.lastReq.MerchantRef != res.MerchantRef {
		t.Fatal("wire reference must match the stored merchant reference")
	}

	balance, _ := wallets.Balance(context.Background(), "user-1")
	if !balance.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("balance = %s, want 400", balance)
	}

	stored, _ := txns.Get(context.Background(), res.MerchantRef)
	if stored.ProviderOrderID != "OP9" {
		t.Fatalf("provider order id = %q", stored.ProviderOrderID)
	}
}

func TestRechargeValidation(t *testing.T) {
	agg := &fakeAggregator{outcome: gateway.Outcome{Success: true}}
	svc, _, _ := newService(agg, 500)
	ctx := context.Background()

	cases := []Input{
		{UserID: "user-1", Mobile: "", Operator: "AIRTEL", Amount: decimal.NewFromInt(10)},
		{UserID: "user-1", Mobile: "9800000000", Operator: "undefined", Amount: decimal.NewFromInt(10)},
		{UserID: "user-1", Mobile: "9800000000", Operator: "AIRTEL", Amount: decimal.Zero},
		{UserID: "", Mobile: "9800000000", Operator: "AIRTEL", Amount: decimal.NewFromInt(10)},
	}
	for i, in := range cases {
		if _, err := svc.Recharge(ctx, in); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
	if agg.calls != 0 {
		t.Fatalf("validation failures must not reach the aggregator, calls = %d", agg.calls)
	}
}

func TestRechargeProviderDecline(t *testing.T) {
	agg := &fakeAggregator{outcome: gateway.Outcome{Success: false, Description: "Number blocked by operator"}}
	svc, _, wallets := newService(agg, 500)

	res, err := svc.Recharge(context.Background(), Input{
		UserID:   "user-1",
		Mobile:   "9800000000",
		Operator: "JIO",
		Amount:   decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if res.Success {
		t.Fatal("expected business failure")
	}
	if res.Message != "Number blocked by operator" {
		t.Fatalf("provider message must surface verbatim, got %q", res.Message)
	}

	balance, _ := wallets.Balance(context.Background(), "user-1")
	if !balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("declined recharge must not debit, balance = %s", balance)
	}
}

func TestRechargeInsufficientFundsBeforeSubmit(t *testing.T) {
	agg := &fakeAggregator{outcome: gateway.Outcome{Success: true}}
	svc, txns, _ := newService(agg, 50)

	res, err := svc.Recharge(context.Background(), Input{
		UserID:   "user-1",
		Mobile:   "9800000000",
		Operator: "AIRTEL",
		Amount:   decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if res.Success || res.Status != txn.StatusFailed {
		t.Fatalf("expected FAILED result, got %+v", res)
	}
	if agg.calls != 0 {
		t.Fatal("insufficient funds must fail before the network call")
	}

	stored, _ := txns.Get(context.Background(), res.MerchantRef)
	if stored.Message != settlement.ReasonInsufficientFunds {
		t.Fatalf("stored message = %q", stored.Message)
	}
}

func TestRechargeNetworkFailureIsAmbiguous(t *testing.T) {
	agg := &fakeAggregator{err: fmt.Errorf("dial timeout: %w", gateway.ErrOutcomeUnknown)}
	svc, txns, wallets := newService(agg, 500)

	res, err := svc.Recharge(context.Background(), Input{
		UserID:   "user-1",
		Mobile:   "9800000000",
		Operator: "AIRTEL",
		Amount:   decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if res.Success {
		t.Fatal("ambiguous outcome must not report success")
	}
	if res.Status != txn.StatusAmbiguous {
		t.Fatalf("status = %s, want AMBIGUOUS", res.Status)
	}

	balance, _ := wallets.Balance(context.Background(), "user-1")
	if !balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("ambiguous outcome must not debit, balance = %s", balance)
	}

	stored, _ := txns.Get(context.Background(), res.MerchantRef)
	if stored.Status != txn.StatusAmbiguous {
		t.Fatalf("stored status = %s", stored.Status)
	}
	if agg.calls != 1 {
		t.Fatalf("ambiguous outcomes must never be retried, calls = %d", agg.calls)
	}
}

func TestRechargeDTHKind(t *testing.T) {
	agg := &fakeAggregator{outcome: gateway.Outcome{Success: true, Description: "ok"}}
	svc, txns, _ := newService(agg, 500)

	res, err := svc.Recharge(context.Background(), Input{
		UserID:      "user-1",
		Mobile:      "1234567890",
		Operator:    "Tata Play",
		Amount:      decimal.NewFromInt(300),
		ServiceType: "dth",
	})
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	stored, _ := txns.Get(context.Background(), res.MerchantRef)
	if stored.Kind != txn.DTHRecharge {
		t.Fatalf("kind = %s", stored.Kind)
	}
	if stored.OperatorCode != "TTS" {
		t.Fatalf("operator code = %s", stored.OperatorCode)
	}
}
