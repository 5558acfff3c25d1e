package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "idempotency:"
	pendingValue = "pending"
)

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// IdempotencyStore keeps request outcomes in Redis. A key holds "pending"
// while its request runs and the result once it completes.
type IdempotencyStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewIdempotencyStore(rdb redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) Claim(ctx context.Context, key string) (string, bool, error) {
	for range 2 {
		ok, err := s.rdb.SetNX(ctx, keyPrefix+key, pendingValue, s.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("claim idempotency key %s: %w", key, err)
		}
		if ok {
			return "", true, nil
		}

		value, err := s.rdb.Get(ctx, keyPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			// Expired or released between the two calls.
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("read idempotency key %s: %w", key, err)
		}
		if value == pendingValue {
			return "", false, nil
		}
		return value, false, nil
	}
	return "", false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key, result string) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, result, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key %s: %w", key, err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key %s: %w", key, err)
	}
	return nil
}
