package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

// roomJSON is the serialized form of a Room snapshot. Explicit struct keeps
// the cache layout decoupled from the domain model.
type roomJSON struct {
	ID             uint64 `json:"id"`
	Host           string `json:"host"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	TotalViewers   uint64 `json:"total_viewers"`
	PeakViewers    uint64 `json:"peak_viewers"`
	TotalGiftValue uint64 `json:"total_gift_value"`
	TicketPrice    uint64 `json:"ticket_price"`
	CreatedAt      string `json:"created_at,omitempty"`
	StartedAt      string `json:"started_at,omitempty"`
	EndedAt        string `json:"ended_at,omitempty"`
}

// RedisRoomCache implements RoomCache on the shared StateStore.
type RedisRoomCache struct {
	store *StateStore
}

var _ RoomCache = (*RedisRoomCache)(nil)

func NewRedisRoomCache(store *StateStore) *RedisRoomCache {
	return &RedisRoomCache{store: store}
}

func roomKey(roomID uint64) string {
	return "room:" + strconv.FormatUint(roomID, 10)
}

func (c *RedisRoomCache) Get(ctx context.Context, roomID uint64) (*model.Room, bool, error) {
	payload, fresh, found, err := c.store.GetPayload(ctx, roomKey(roomID))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	room, err := deserializeRoom(payload)
	if err != nil {
		return nil, false, fmt.Errorf("deserialize room: %w", err)
	}
	return room, fresh, nil
}

func (c *RedisRoomCache) Set(ctx context.Context, room *model.Room, ttl time.Duration) error {
	payload, err := serializeRoom(room)
	if err != nil {
		return fmt.Errorf("serialize room: %w", err)
	}
	return c.store.SetPayload(ctx, roomKey(room.ID), payload, ttl)
}

func (c *RedisRoomCache) Invalidate(ctx context.Context, roomID uint64) error {
	return c.store.Delete(ctx, roomKey(roomID))
}

func serializeRoom(room *model.Room) ([]byte, error) {
	r := roomJSON{
		ID:             room.ID,
		Host:           room.Host.String(),
		Title:          room.Title,
		Status:         room.Status.String(),
		TotalViewers:   room.TotalViewers,
		PeakViewers:    room.PeakViewers,
		TotalGiftValue: room.TotalGiftValue,
		TicketPrice:    room.TicketPrice,
	}
	if !room.CreatedAt.IsZero() {
		r.CreatedAt = room.CreatedAt.Format(time.RFC3339Nano)
	}
	if !room.StartedAt.IsZero() {
		r.StartedAt = room.StartedAt.Format(time.RFC3339Nano)
	}
	if !room.EndedAt.IsZero() {
		r.EndedAt = room.EndedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(r)
}

func deserializeRoom(data []byte) (*model.Room, error) {
	var r roomJSON
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}

	room := &model.Room{
		ID:             r.ID,
		Host:           model.Address(r.Host),
		Title:          r.Title,
		Status:         model.RoomStatus(r.Status),
		TotalViewers:   r.TotalViewers,
		PeakViewers:    r.PeakViewers,
		TotalGiftValue: r.TotalGiftValue,
		TicketPrice:    r.TicketPrice,
	}

	var err error
	if room.CreatedAt, err = parseOptionalTime(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if room.StartedAt, err = parseOptionalTime(r.StartedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if room.EndedAt, err = parseOptionalTime(r.EndedAt); err != nil {
		return nil, fmt.Errorf("parse ended_at: %w", err)
	}
	return room, nil
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
