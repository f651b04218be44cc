package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventJournal implements repository.EventJournal using PostgreSQL.
// The table is append-only; rows are never updated.
type EventJournal struct {
	db DBTX
}

var _ repository.EventJournal = (*EventJournal)(nil)

// NewEventJournal creates a new EventJournal instance.
func NewEventJournal(db DBTX) *EventJournal {
	return &EventJournal{db: db}
}

// Append persists one processed ledger event.
func (j *EventJournal) Append(ctx context.Context, entry repository.JournalEntry) error {
	const query = `
		INSERT INTO ledger_events (block_number, kind, room_id, actor, amount, emitted_at, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := j.db.Exec(ctx, query,
		entry.BlockNumber,
		entry.Kind.String(),
		entry.RoomID,
		entry.Actor.String(),
		entry.Amount,
		entry.EmittedAt,
		entry.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	return nil
}

// RecentByRoom returns the newest entries for a room, most recent first.
func (j *EventJournal) RecentByRoom(ctx context.Context, roomID uint64, limit int) ([]repository.JournalEntry, error) {
	const query = `
		SELECT id, block_number, kind, room_id, actor, amount, emitted_at, observed_at
		FROM ledger_events
		WHERE room_id = $1
		ORDER BY block_number DESC, id DESC
		LIMIT $2
	`

	rows, err := j.db.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer rows.Close()

	var entries []repository.JournalEntry
	for rows.Next() {
		var (
			entry repository.JournalEntry
			kind  string
			actor string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.BlockNumber,
			&kind,
			&entry.RoomID,
			&actor,
			&entry.Amount,
			&entry.EmittedAt,
			&entry.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entry.Kind = model.EventKind(kind)
		entry.Actor = model.Address(actor)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}

	return entries, nil
}
