package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/mstgnz/paygate/provider"
)

var ErrMissingReference = errors.New("callback has no order reference")

// Ledger makes webhook processing idempotent. Each (gateway, transaction,
// status) triple is applied to the order at most once.
type Ledger struct {
	orders *Store
}

func NewLedger(orders *Store) *Ledger {
	return &Ledger{orders: orders}
}

// Migrate creates payment_events after the orders table
func (l *Ledger) Migrate(ctx context.Context) error {
	if err := l.orders.Migrate(ctx); err != nil {
		return err
	}
	_, err := l.orders.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS payment_events (
		gateway TEXT NOT NULL,
		transaction_id TEXT NOT NULL,
		status TEXT NOT NULL,
		order_id TEXT NOT NULL,
		payload TEXT,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (gateway, transaction_id, status)
	)`)
	if err != nil {
		return fmt.Errorf("failed to migrate payment_events: %w", err)
	}
	return nil
}

// Apply records the callback and, when it is new, updates the order in the
// same transaction. applied is false for a replayed delivery.
func (l *Ledger) Apply(ctx context.Context, result *provider.CallbackResult) (applied bool, err error) {
	if result.OrderID == "" {
		return false, ErrMissingReference
	}
	transactionID := result.TransactionID
	if transactionID == "" {
		transactionID = result.OrderID
	}

	tx, err := l.orders.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO payment_events (gateway, transaction_id, status, order_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (gateway, transaction_id, status) DO NOTHING`,
		string(result.Gateway), transactionID, string(result.Status), result.OrderID, string(result.RawPayload), l.orders.now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to record payment event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if status, ok := FromPayment(result.Status); ok {
		if err := l.orders.applyPayment(ctx, tx, result, status); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
