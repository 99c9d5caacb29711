package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger persists wallet balances and the append-only entry trail in
// PostgreSQL. The account row is locked FOR UPDATE for the duration of a
// mutation, which serializes concurrent settlements for the same user, and
// the unique index on wallet_entries.merchant_ref makes every mutation
// idempotent on its transaction reference.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed wallet ledger.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees a wallet account row exists for the user.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, userID string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO wallet_accounts (user_id, balance, version, updated_at)
        VALUES ($1, 0, 0, now()) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// Balance returns the current balance for the user.
func (l *PostgresLedger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.db.QueryRow(ctx, `SELECT balance FROM wallet_accounts WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrAccountNotFound
	}
	return balance, err
}

// Credit adds funds to the wallet, at most once per merchant reference.
func (l *PostgresLedger) Credit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (Entry, error) {
	return l.apply(ctx, userID, amount, ref)
}

// Debit removes funds from the wallet, at most once per merchant reference,
// never driving the balance negative.
func (l *PostgresLedger) Debit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (Entry, error) {
	return l.apply(ctx, userID, amount.Neg(), ref)
}

func (l *PostgresLedger) apply(ctx context.Context, userID string, delta decimal.Decimal, ref string) (Entry, error) {
	if delta.IsZero() {
		return Entry{}, fmt.Errorf("amount must be non-zero")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM wallet_accounts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrAccountNotFound
	}
	if err != nil {
		return Entry{}, err
	}

	var existing Entry
	err = tx.QueryRow(ctx, `SELECT merchant_ref, user_id, delta, resulting_balance, created_at
        FROM wallet_entries WHERE merchant_ref = $1`, ref).
		Scan(&existing.MerchantRef, &existing.UserID, &existing.Delta, &existing.ResultingBalance, &existing.CreatedAt)
	if err == nil {
		return existing, ErrDuplicateEntry
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, err
	}

	next := balance.Add(delta)
	if next.IsNegative() {
		return Entry{}, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE wallet_accounts
        SET balance = $2, version = version + 1, updated_at = now()
        WHERE user_id = $1`, userID, next); err != nil {
		return Entry{}, err
	}

	entry := Entry{MerchantRef: ref, UserID: userID, Delta: delta, ResultingBalance: next}
	if err := tx.QueryRow(ctx, `INSERT INTO wallet_entries (merchant_ref, user_id, delta, resulting_balance, created_at)
        VALUES ($1, $2, $3, $4, now()) RETURNING created_at`,
		ref, userID, delta, next).Scan(&entry.CreatedAt); err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Entries returns the audit trail for a user, oldest first.
func (l *PostgresLedger) Entries(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := l.db.Query(ctx, `SELECT merchant_ref, user_id, delta, resulting_balance, created_at
        FROM wallet_entries WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.MerchantRef, &e.UserID, &e.Delta, &e.ResultingBalance, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
