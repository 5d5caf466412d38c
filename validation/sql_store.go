package validation

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mstgnz/paygate/infra/conn"
)

// SQLStore keeps tokens in order_validation_tokens. Queries use $N
// placeholders, which both sqlite3 and postgres accept.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the tokens table and its index
func (s *SQLStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS order_validation_tokens (
			order_id TEXT NOT NULL,
			token TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			used_at TIMESTAMP NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_validation_tokens_order ON order_validation_tokens(order_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate order_validation_tokens: %w", err)
		}
	}
	return nil
}

func tableErr(err error) error {
	if conn.IsUndefinedTable(err) {
		return fmt.Errorf("%w: %v", ErrTableMissing, err)
	}
	return err
}

// Save deletes earlier tokens for the order and inserts the new one in a
// single transaction
func (s *SQLStore) Save(ctx context.Context, token Token) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_validation_tokens WHERE order_id = $1`, token.OrderID); err != nil {
		return tableErr(err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_validation_tokens (order_id, token, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		token.OrderID, token.Value, token.ExpiresAt.UTC(), token.CreatedAt.UTC())
	if err != nil {
		return tableErr(err)
	}

	return tx.Commit()
}

// Verify accepts an unused, unexpired row whose token matches
func (s *SQLStore) Verify(ctx context.Context, orderID, token string, now time.Time) (bool, error) {
	var (
		stored    string
		expiresAt time.Time
		usedAt    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, expires_at, used_at FROM order_validation_tokens WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`,
		orderID).Scan(&stored, &expiresAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, tableErr(err)
	}

	if usedAt.Valid || !now.Before(expiresAt) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

// Consume verifies the token and marks it used. The conditional update only
// matches an unused row, so a concurrent consumer that passed the same check
// affects no row and gets false.
func (s *SQLStore) Consume(ctx context.Context, orderID, token string, now time.Time) (bool, error) {
	ok, err := s.Verify(ctx, orderID, token, now)
	if err != nil || !ok {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE order_validation_tokens SET used_at = $1 WHERE order_id = $2 AND token = $3 AND used_at IS NULL`,
		now.UTC(), orderID, token)
	if err != nil {
		return false, tableErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Invalidate marks every live token of the order as used
func (s *SQLStore) Invalidate(ctx context.Context, orderID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE order_validation_tokens SET used_at = $1 WHERE order_id = $2 AND used_at IS NULL`,
		now.UTC(), orderID)
	return tableErr(err)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
