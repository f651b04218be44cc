package repository

import (
	"context"
	"time"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

// JournalEntry is one processed ledger event as persisted for audit and
// room-history queries.
type JournalEntry struct {
	ID          int64
	BlockNumber uint64
	Kind        model.EventKind
	RoomID      uint64
	Actor       model.Address
	Amount      uint64
	EmittedAt   time.Time
	ObservedAt  time.Time
}

// EventJournal records every ledger event the subscriber processed.
// Writes are best-effort from the subscriber's point of view; a journal
// failure never blocks event handling.
type EventJournal interface {
	// Append persists one processed event.
	Append(ctx context.Context, entry JournalEntry) error

	// RecentByRoom returns the newest entries for a room, most recent first.
	RecentByRoom(ctx context.Context, roomID uint64, limit int) ([]JournalEntry, error)
}
