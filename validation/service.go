package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/infra/conn"
	"github.com/mstgnz/paygate/infra/logger"
)

// Service issues and checks order validation tokens. When failOpen is set a
// store failure during Verify or Consume is logged and the link is accepted.
type Service struct {
	store    Store
	ttl      time.Duration
	failOpen bool
	now      func() time.Time
}

// NewService creates a token service over store
func NewService(store Store, ttl time.Duration, failOpen bool) *Service {
	if ttl <= 0 {
		ttl = config.DefaultTokenTTL
	}
	return &Service{
		store:    store,
		ttl:      ttl,
		failOpen: failOpen,
		now:      time.Now,
	}
}

// OpenStore selects Redis when a URL is configured and SQL otherwise. The SQL
// table is migrated on open.
func OpenStore(ctx context.Context, cfg config.TokenStore) (Store, error) {
	if cfg.RedisURL != "" {
		return OpenRedisStore(ctx, cfg.RedisURL)
	}

	db, err := conn.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	store := NewSQLStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Issue generates and stores a fresh token for orderID, replacing any earlier
// one. Callers build notification links only after Issue succeeds.
func (s *Service) Issue(ctx context.Context, orderID string) (*Token, error) {
	now := s.now()
	value, err := GenerateToken(orderID, now)
	if err != nil {
		return nil, err
	}

	token := Token{
		OrderID:   orderID,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store validation token for order %s: %w", orderID, err)
	}
	return &token, nil
}

// Verify reports whether token is the live token of orderID
func (s *Service) Verify(ctx context.Context, orderID, token string) bool {
	if orderID == "" || token == "" {
		return false
	}
	ok, err := s.store.Verify(ctx, orderID, token, s.now())
	return s.decide(orderID, ok, err)
}

// Consume verifies and uses the token in one step. A link redeemed twice,
// even concurrently, is accepted once.
func (s *Service) Consume(ctx context.Context, orderID, token string) bool {
	if orderID == "" || token == "" {
		return false
	}
	ok, err := s.store.Consume(ctx, orderID, token, s.now())
	return s.decide(orderID, ok, err)
}

// decide applies the fail-open policy to a store answer
func (s *Service) decide(orderID string, ok bool, err error) bool {
	if err == nil {
		return ok
	}

	logCtx := logger.LogContext{OrderID: orderID, Fields: map[string]any{"error": err.Error(), "fail_open": s.failOpen}}
	if s.failOpen {
		logger.Warn("Validation token store unavailable, accepting link", logCtx)
		return true
	}
	logger.Warn("Validation token store unavailable, rejecting link", logCtx)
	return false
}

// Invalidate consumes the token of orderID. Failures are logged only.
func (s *Service) Invalidate(ctx context.Context, orderID string) {
	if err := s.store.Invalidate(ctx, orderID, s.now()); err != nil {
		logger.Warn("Failed to invalidate validation token", logger.LogContext{
			OrderID: orderID,
			Fields:  map[string]any{"error": err.Error()},
		})
	}
}

// Close releases the underlying store
func (s *Service) Close() error {
	return s.store.Close()
}
