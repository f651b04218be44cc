package repository

import "errors"

var (
	// ErrRoomNotFound is returned when the ledger has no record of a room.
	ErrRoomNotFound = errors.New("room not found")

	// ErrUpstreamUnreachable is returned when the ledger (or another
	// authoritative upstream) cannot be reached at all.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrUpstreamTimeout is returned when an upstream call exceeded its
	// deadline. Distinguished from unreachable so callers can decide
	// whether a retry makes sense.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)
