package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

// RedisBlacklistCache implements BlacklistCache on the shared StateStore.
// Membership is keyed per (room, address) so entries expire and invalidate
// independently.
type RedisBlacklistCache struct {
	store *StateStore
}

var _ BlacklistCache = (*RedisBlacklistCache)(nil)

func NewRedisBlacklistCache(store *StateStore) *RedisBlacklistCache {
	return &RedisBlacklistCache{store: store}
}

func banKey(roomID uint64, addr model.Address) string {
	return banRoomPrefix(roomID) + addr.String()
}

func banRoomPrefix(roomID uint64) string {
	return "ban:" + strconv.FormatUint(roomID, 10) + ":"
}

func (c *RedisBlacklistCache) Get(ctx context.Context, roomID uint64, addr model.Address) (*bool, bool, error) {
	payload, fresh, found, err := c.store.GetPayload(ctx, banKey(roomID, addr))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	var banned bool
	if err := json.Unmarshal(payload, &banned); err != nil {
		return nil, false, fmt.Errorf("deserialize ban entry: %w", err)
	}
	return &banned, fresh, nil
}

func (c *RedisBlacklistCache) Set(ctx context.Context, roomID uint64, addr model.Address, banned bool, ttl time.Duration) error {
	payload, err := json.Marshal(banned)
	if err != nil {
		return fmt.Errorf("serialize ban entry: %w", err)
	}
	return c.store.SetPayload(ctx, banKey(roomID, addr), payload, ttl)
}

func (c *RedisBlacklistCache) Invalidate(ctx context.Context, roomID uint64, addr model.Address) error {
	return c.store.Delete(ctx, banKey(roomID, addr))
}

// InvalidateRoom drops all cached ban entries for a room in one sweep.
func (c *RedisBlacklistCache) InvalidateRoom(ctx context.Context, roomID uint64) error {
	return c.store.DeleteByPrefix(ctx, banRoomPrefix(roomID))
}
