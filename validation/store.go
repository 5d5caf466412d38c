package validation

import (
	"context"
	"time"
)

// Store persists validation tokens. Saving a token for an order replaces any
// previous one. Consume checks and uses a token in one atomic step, so of
// two concurrent calls with the same token at most one succeeds.
type Store interface {
	Save(ctx context.Context, token Token) error
	Verify(ctx context.Context, orderID, token string, now time.Time) (bool, error)
	Consume(ctx context.Context, orderID, token string, now time.Time) (bool, error)
	Invalidate(ctx context.Context, orderID string, now time.Time) error
	Close() error
}
