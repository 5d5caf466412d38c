package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mstgnz/paygate/provider"
)

// Status is the storefront order state
type Status string

const (
	StatusPending         Status = "pending"
	StatusProcessing      Status = "processing"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusFailed          Status = "failed"
	StatusCancelled       Status = "cancelled"
	StatusConfirmed       Status = "confirmed"
)

var ErrOrderNotFound = errors.New("order not found")

// FromPayment maps a gateway outcome to the order state it drives. ok is false
// for outcomes that leave the order untouched.
func FromPayment(status provider.PaymentStatus) (s Status, ok bool) {
	switch status {
	case provider.StatusPaid:
		return StatusPaid, true
	case provider.StatusFailed:
		return StatusFailed, true
	case provider.StatusCancelled:
		return StatusCancelled, true
	case provider.StatusProcessing:
		return StatusProcessing, true
	case provider.StatusAwaitingPayment:
		return StatusAwaitingPayment, true
	default:
		return "", false
	}
}

// Order is the payment-relevant slice of a storefront order
type Order struct {
	ID            string           `json:"id"`
	OrderNumber   string           `json:"orderNumber"`
	Amount        int64            `json:"amount"`
	Currency      string           `json:"currency"`
	Country       string           `json:"country"`
	Status        Status           `json:"status"`
	Gateway       provider.Gateway `json:"gateway,omitempty"`
	TransactionID string           `json:"transactionId,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists orders on sqlite3 or postgres
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates the orders table
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		payment_gateway TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to migrate orders: %w", err)
	}
	return nil
}

// Upsert records the order at checkout. An existing order keeps its status
// and gets the new gateway and transaction id.
func (s *Store) Upsert(ctx context.Context, o Order) error {
	now := s.now().UTC()
	if o.Status == "" {
		o.Status = StatusPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, amount, currency, country, status, payment_gateway, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			payment_gateway = excluded.payment_gateway,
			transaction_id = excluded.transaction_id,
			updated_at = excluded.updated_at`,
		o.ID, o.OrderNumber, o.Amount, o.Currency, o.Country, string(o.Status), string(o.Gateway), o.TransactionID, now, now)
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.ID, err)
	}
	return nil
}

// Get loads one order
func (s *Store) Get(ctx context.Context, id string) (*Order, error) {
	var (
		o       Order
		status  string
		gateway string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_number, amount, currency, country, status, payment_gateway, transaction_id, created_at, updated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.OrderNumber, &o.Amount, &o.Currency, &o.Country, &status, &gateway, &o.TransactionID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.Gateway = provider.Gateway(gateway)
	return &o, nil
}

// SetStatus is the admin transition used by validation links
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), s.now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return nil
}

// applyPayment moves the order to status unless it is already paid
func (s *Store) applyPayment(ctx context.Context, ex execer, result *provider.CallbackResult, status Status) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE orders SET status = $1, payment_gateway = $2, transaction_id = $3, updated_at = $4
		WHERE id = $5 AND status <> 'paid'`,
		string(status), string(result.Gateway), result.TransactionID, s.now().UTC(), result.OrderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	err = ex.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = $1`, result.OrderID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, result.OrderID)
	}
	return err
}
