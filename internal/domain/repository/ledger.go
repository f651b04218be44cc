package repository

import (
	"context"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

// LedgerGateway is the query surface of the external ledger. It owns one
// shared connection; concurrent callers during an in-flight (re)connect
// await the same attempt rather than dialing in parallel.
// Implementations map failures onto ErrRoomNotFound, ErrUpstreamTimeout
// and ErrUpstreamUnreachable.
type LedgerGateway interface {
	// Connect establishes (or reuses) the shared ledger connection.
	Connect(ctx context.Context) error

	// IsConnected reports whether the shared connection is currently up.
	// It goes false when the connection drops; no automatic redial.
	IsConnected() bool

	// FetchRoom returns the authoritative room state.
	FetchRoom(ctx context.Context, roomID uint64) (*model.Room, error)

	// FetchCoHosts returns the addresses permitted to co-stream in a room.
	FetchCoHosts(ctx context.Context, roomID uint64) ([]model.Address, error)

	// IsBanned reports whether an address is blacklisted in a room.
	IsBanned(ctx context.Context, roomID uint64, addr model.Address) (bool, error)

	// FetchGifts returns the global gift catalog.
	FetchGifts(ctx context.Context) (*model.GiftCatalog, error)

	// Close tears down the shared connection.
	Close() error
}
