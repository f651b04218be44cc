package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

// RedisCoHostCache implements CoHostCache on the shared StateStore.
type RedisCoHostCache struct {
	store *StateStore
}

var _ CoHostCache = (*RedisCoHostCache)(nil)

func NewRedisCoHostCache(store *StateStore) *RedisCoHostCache {
	return &RedisCoHostCache{store: store}
}

func coHostKey(roomID uint64) string {
	return "cohosts:" + strconv.FormatUint(roomID, 10)
}

func (c *RedisCoHostCache) Get(ctx context.Context, roomID uint64) (*model.CoHostSet, bool, error) {
	payload, fresh, found, err := c.store.GetPayload(ctx, coHostKey(roomID))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	var hosts []string
	if err := json.Unmarshal(payload, &hosts); err != nil {
		return nil, false, fmt.Errorf("deserialize cohost set: %w", err)
	}

	set := &model.CoHostSet{RoomID: roomID, Hosts: make([]model.Address, len(hosts))}
	for i, h := range hosts {
		set.Hosts[i] = model.Address(h)
	}
	return set, fresh, nil
}

func (c *RedisCoHostCache) Set(ctx context.Context, set *model.CoHostSet, ttl time.Duration) error {
	hosts := make([]string, len(set.Hosts))
	for i, h := range set.Hosts {
		hosts[i] = h.String()
	}

	payload, err := json.Marshal(hosts)
	if err != nil {
		return fmt.Errorf("serialize cohost set: %w", err)
	}
	return c.store.SetPayload(ctx, coHostKey(set.RoomID), payload, ttl)
}

func (c *RedisCoHostCache) Invalidate(ctx context.Context, roomID uint64) error {
	return c.store.Delete(ctx, coHostKey(roomID))
}
