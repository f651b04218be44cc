package cache

import (
	"context"
	"time"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

// Typed cache interfaces over the five cached views. A nil value with a nil
// error is a miss; fresh is only meaningful on a hit. Implementations handle
// serialization transparently.

// RoomCache caches ledger room snapshots.
type RoomCache interface {
	Get(ctx context.Context, roomID uint64) (room *model.Room, fresh bool, err error)
	Set(ctx context.Context, room *model.Room, ttl time.Duration) error
	Invalidate(ctx context.Context, roomID uint64) error
}

// GiftCache caches the global gift catalog under a single key.
type GiftCache interface {
	Get(ctx context.Context) (catalog *model.GiftCatalog, fresh bool, err error)
	Set(ctx context.Context, catalog *model.GiftCatalog, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// BlacklistCache caches per-(room, address) ban membership.
type BlacklistCache interface {
	Get(ctx context.Context, roomID uint64, addr model.Address) (banned *bool, fresh bool, err error)
	Set(ctx context.Context, roomID uint64, addr model.Address, banned bool, ttl time.Duration) error
	Invalidate(ctx context.Context, roomID uint64, addr model.Address) error
	// InvalidateRoom drops every ban entry for a room (room-ban events).
	InvalidateRoom(ctx context.Context, roomID uint64) error
}

// CoHostCache caches the co-host set per room.
type CoHostCache interface {
	Get(ctx context.Context, roomID uint64) (set *model.CoHostSet, fresh bool, err error)
	Set(ctx context.Context, set *model.CoHostSet, ttl time.Duration) error
	Invalidate(ctx context.Context, roomID uint64) error
}
