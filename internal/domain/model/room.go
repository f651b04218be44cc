package model

import (
	"errors"
	"time"
)

// RoomStatus represents the lifecycle state of a streaming room on the ledger.
type RoomStatus string

const (
	RoomStatusCreated RoomStatus = "CREATED"
	RoomStatusLive    RoomStatus = "LIVE"
	RoomStatusEnded   RoomStatus = "ENDED"
	RoomStatusBanned  RoomStatus = "BANNED"
)

// Valid status transitions:
// CREATED -> LIVE -> ENDED
//        \-> BANNED <-/
var validRoomTransitions = map[RoomStatus][]RoomStatus{
	RoomStatusCreated: {RoomStatusLive, RoomStatusBanned},
	RoomStatusLive:    {RoomStatusEnded, RoomStatusBanned},
	RoomStatusEnded:   {RoomStatusBanned},
	RoomStatusBanned:  {},
}

func (s RoomStatus) IsValid() bool {
	switch s {
	case RoomStatusCreated, RoomStatusLive, RoomStatusEnded, RoomStatusBanned:
		return true
	default:
		return false
	}
}

func (s RoomStatus) CanTransitionTo(next RoomStatus) bool {
	allowed, exists := validRoomTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

func (s RoomStatus) String() string {
	return string(s)
}

var (
	ErrInvalidRoomID = errors.New("room ID must be positive")
	ErrInvalidHost   = errors.New("host address cannot be empty")
	ErrBadRoomStatus = errors.New("unknown room status")
	ErrStatusFrozen  = errors.New("room status transition not allowed")
)

// Room is a time-bounded snapshot of a streaming room as recorded on the
// ledger. The ledger owns the entity; this process only caches it and never
// mutates it directly.
type Room struct {
	ID             uint64
	Host           Address
	Title          string
	Status         RoomStatus
	TotalViewers   uint64
	PeakViewers    uint64
	TotalGiftValue uint64
	// TicketPrice is the entry cost in the ledger's smallest unit. Zero
	// means the room is free to view.
	TicketPrice uint64
	CreatedAt   time.Time
	StartedAt   time.Time
	EndedAt     time.Time
}

// NewRoom validates ledger-provided room fields into a snapshot.
func NewRoom(id uint64, host Address, title string, status RoomStatus) (*Room, error) {
	if id == 0 {
		return nil, ErrInvalidRoomID
	}
	if host == "" {
		return nil, ErrInvalidHost
	}
	if !status.IsValid() {
		return nil, ErrBadRoomStatus
	}
	return &Room{
		ID:     id,
		Host:   host,
		Title:  title,
		Status: status,
	}, nil
}

// IsLive returns true while the room accepts viewers and co-hosts.
func (r *Room) IsLive() bool {
	return r.Status == RoomStatusLive
}

// IsJoinable reports whether new viewer connections may enter the room.
func (r *Room) IsJoinable() bool {
	return r.Status == RoomStatusCreated || r.Status == RoomStatusLive
}
