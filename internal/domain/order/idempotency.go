// internal/domain/order/idempotency.go
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyStore reserves checkout idempotency keys. A key maps to the order
// code created under it, so a retried checkout returns the existing
// order instead of creating a duplicate.
type KeyStore interface {
	// Reserve attempts to claim the key for orderCode. If the key is
	// already claimed, it returns the existing order code and false.
	Reserve(ctx context.Context, key, orderCode string, ttl time.Duration) (string, bool, error)

	// Release frees the key after a failed creation so the client can
	// retry with the same key.
	Release(ctx context.Context, key string) error
}

// redisKeyStore implements KeyStore on Redis SET NX
type redisKeyStore struct {
	client *redis.Client
}

// NewRedisKeyStore creates a Redis-backed idempotency key store
func NewRedisKeyStore(client *redis.Client) KeyStore {
	return &redisKeyStore{client: client}
}

func (s *redisKeyStore) key(key string) string {
	return fmt.Sprintf("checkout:idempotency:%s", key)
}

func (s *redisKeyStore) Reserve(ctx context.Context, key, orderCode string, ttl time.Duration) (string, bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), orderCode, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return orderCode, true, nil
	}

	existing, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return existing, false, nil
}

func (s *redisKeyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
