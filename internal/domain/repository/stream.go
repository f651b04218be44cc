package repository

import (
	"context"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

// EventStream carries the ledger's ordered event feed. The chain indexer
// publishes; the bridge runs exactly one consumer so emission order is
// preserved end to end.
type EventStream interface {
	// PublishLedgerEvent appends an event to the stream.
	// Used by the chainfeed tool and by tests.
	PublishLedgerEvent(ctx context.Context, event model.LedgerEvent) error

	// ConsumeLedgerEvents delivers events to handler one at a time, in
	// publication order, until ctx is cancelled or the stream fails.
	// A handler error must not stop consumption and must not cause
	// redelivery: redelivery would reorder the stream.
	ConsumeLedgerEvents(ctx context.Context, handler func(event model.LedgerEvent) error) error

	// Close gracefully closes the stream connection.
	Close() error
}
