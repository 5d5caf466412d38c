package validation

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "order_validation:"

// consumeScript deletes the key only when it still holds the given token, so
// a wrong guess leaves the real link usable.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps one token per order under order_validation:<orderId> and
// lets Redis expire it.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// OpenRedisStore parses a redis:// or rediss:// URL and checks the connection
func OpenRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisStore(rdb), nil
}

func redisKey(orderID string) string {
	return redisKeyPrefix + orderID
}

func (s *RedisStore) Save(ctx context.Context, token Token) error {
	ttl := token.ExpiresAt.Sub(token.CreatedAt)
	if ttl <= 0 {
		return fmt.Errorf("token for order %s is already expired", token.OrderID)
	}
	return s.rdb.Set(ctx, redisKey(token.OrderID), token.Value, ttl).Err()
}

// Verify compares the stored token in constant time. Expiry is enforced by
// the key TTL, so now is unused.
func (s *RedisStore) Verify(ctx context.Context, orderID, token string, _ time.Time) (bool, error) {
	stored, err := s.rdb.Get(ctx, redisKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

// Consume deletes the key if it holds token. Expiry is enforced by the key
// TTL, so now is unused.
func (s *RedisStore) Consume(ctx context.Context, orderID, token string, _ time.Time) (bool, error) {
	n, err := consumeScript.Run(ctx, s.rdb, []string{redisKey(orderID)}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Invalidate(ctx context.Context, orderID string, _ time.Time) error {
	return s.rdb.Del(ctx, redisKey(orderID)).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
