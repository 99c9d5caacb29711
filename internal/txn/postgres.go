package txn

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists transactions in PostgreSQL. The compare-and-swap in
// Transition relies on the conditional UPDATE touching exactly zero or one
// row, so concurrent settlers on the same reference cannot both win.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed transaction store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the transaction row. The merchant reference is the primary
// key, so a replayed create surfaces as ErrDuplicateRef.
func (s *PostgresStore) Create(ctx context.Context, t Transaction) error {
	_, err := s.db.Exec(ctx, `INSERT INTO transactions
        (merchant_ref, user_id, kind, operator_code, account, biller_id, amount, provider_order_id, status, message, raw_response, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())`,
		t.MerchantRef, t.UserID, string(t.Kind), t.OperatorCode, t.Account, t.BillerID,
		t.Amount, t.ProviderOrderID, string(t.Status), t.Message, t.RawResponse)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateRef
	}
	return err
}

// Get fetches a transaction by merchant reference.
func (s *PostgresStore) Get(ctx context.Context, ref string) (Transaction, error) {
	return s.scanOne(ctx, `WHERE merchant_ref = $1`, ref)
}

// GetByProviderOrder fetches a transaction by the aggregator-assigned order
// identifier, the other handle a callback may carry.
func (s *PostgresStore) GetByProviderOrder(ctx context.Context, orderID string) (Transaction, error) {
	if orderID == "" {
		return Transaction{}, ErrNotFound
	}
	return s.scanOne(ctx, `WHERE provider_order_id = $1`, orderID)
}

// Transition atomically moves the transaction from one state to another,
// returning false when the stored state no longer matches.
func (s *PostgresStore) Transition(ctx context.Context, ref string, from, to Status, extra Extra) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE transactions SET
            status = $3,
            message = CASE WHEN $4 <> '' THEN $4 ELSE message END,
            provider_order_id = CASE WHEN $5 <> '' THEN $5 ELSE provider_order_id END,
            raw_response = COALESCE($6, raw_response),
            updated_at = now()
        WHERE merchant_ref = $1 AND status = $2`,
		ref, string(from), string(to), extra.Message, extra.ProviderOrderID, extra.RawResponse)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Distinguish a lost race from a missing row.
	if _, err := s.Get(ctx, ref); err != nil {
		return false, err
	}
	return false, nil
}

func (s *PostgresStore) scanOne(ctx context.Context, where string, arg any) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT merchant_ref, user_id, kind, operator_code, account, biller_id,
            amount, provider_order_id, status, message, raw_response, created_at, updated_at
        FROM transactions `+where, arg)

	var t Transaction
	var kind, status string
	if err := row.Scan(&t.MerchantRef, &t.UserID, &kind, &t.OperatorCode, &t.Account, &t.BillerID,
		&t.Amount, &t.ProviderOrderID, &status, &t.Message, &t.RawResponse, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	t.Kind = ServiceKind(kind)
	t.Status = Status(status)
	return t, nil
}

func isUniqueViolation(err error) bool {
	type sqlState interface{ SQLState() string }
	var state sqlState
	if errors.As(err, &state) {
		return state.SQLState() == "23505"
	}
	return false
}
