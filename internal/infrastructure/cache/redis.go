package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix namespaces every bridge-owned key in Redis.
	keyPrefix = "lb:"

	// staleRetention is how many logical TTLs a value is kept in Redis
	// beyond its freshness window. Stale values back the
	// fallback-on-upstream-failure path; only after retention expires does
	// Redis drop the key entirely.
	staleRetention = 10

	// scanBatch bounds each SCAN page during bulk invalidation.
	scanBatch = 128
)

// envelope wraps every cached payload with its insertion time and logical
// TTL, so freshness is computed from the envelope rather than the Redis
// expiry (which is stretched for stale retention).
type envelope struct {
	CachedAt time.Time       `json:"cached_at"`
	TTLMs    int64           `json:"ttl_ms"`
	Payload  json.RawMessage `json:"payload"`
}

// StateStore is the shared Redis accessor for all typed state caches.
type StateStore struct {
	client *redis.Client

	// now is injectable for freshness tests.
	now func() time.Time
}

// NewStateStore creates a StateStore over an existing Redis client.
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{
		client: client,
		now:    time.Now,
	}
}

// GetPayload returns the stored payload for key.
// found=false means no entry at all; fresh reports whether the entry is
// still inside its logical TTL.
func (s *StateStore) GetPayload(ctx context.Context, key string) (payload []byte, fresh bool, found bool, err error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, false, nil
		}
		return nil, false, false, fmt.Errorf("redis get: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, false, fmt.Errorf("decode cache envelope: %w", err)
	}

	age := s.now().Sub(env.CachedAt)
	fresh = age < time.Duration(env.TTLMs)*time.Millisecond
	return env.Payload, fresh, true, nil
}

// SetPayload stores payload under key with the given logical TTL. The Redis
// expiry is set to a retention multiple of the TTL so the value remains
// available for stale fallback after it goes stale.
func (s *StateStore) SetPayload(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	env := envelope{
		CachedAt: s.now(),
		TTLMs:    ttl.Milliseconds(),
		Payload:  payload,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode cache envelope: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+key, data, ttl*staleRetention).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes entries. Idempotent: deleting absent keys is not an error.
func (s *StateStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeleteByPrefix removes every entry under a key prefix using bounded SCAN
// pages, so bulk invalidation never blocks the store.
func (s *StateStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	pattern := keyPrefix + prefix + "*"

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping reports whether the cache store is reachable.
func (s *StateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
