package model

import "time"

// EventKind discriminates ledger events the bridge reacts to.
type EventKind string

const (
	EventRoomCreated    EventKind = "ROOM_CREATED"
	EventLiveStarted    EventKind = "LIVE_STARTED"
	EventLiveEnded      EventKind = "LIVE_ENDED"
	EventGiftSent       EventKind = "GIFT_SENT"
	EventCoHostStarted  EventKind = "COHOST_STARTED"
	EventCoHostEnded    EventKind = "COHOST_ENDED"
	EventViewerKicked   EventKind = "VIEWER_KICKED"
	EventViewerUnbanned EventKind = "VIEWER_UNBANNED"
	EventRoomBanned     EventKind = "ROOM_BANNED"
)

func (k EventKind) IsValid() bool {
	switch k {
	case EventRoomCreated, EventLiveStarted, EventLiveEnded, EventGiftSent,
		EventCoHostStarted, EventCoHostEnded, EventViewerKicked,
		EventViewerUnbanned, EventRoomBanned:
		return true
	default:
		return false
	}
}

func (k EventKind) String() string {
	return string(k)
}

// LedgerEvent is one entry of the ledger's ordered event stream, as the
// chain indexer publishes it.
type LedgerEvent struct {
	Kind        EventKind `json:"kind"`
	RoomID      uint64    `json:"room_id"`
	Actor       Address   `json:"actor,omitempty"`
	Target      Address   `json:"target,omitempty"`
	GiftID      uint64    `json:"gift_id,omitempty"`
	Amount      uint64    `json:"amount,omitempty"`
	BlockNumber uint64    `json:"block_number"`
	Timestamp   time.Time `json:"timestamp"`
}

// Broadcast event names pushed to connected clients. These are the wire
// names the transport layer delivers, kept apart from ledger event kinds.
const (
	NoticeRoomCreated   = "room_created"
	NoticeLiveStarted   = "live_started"
	NoticeLiveEnded     = "live_ended"
	NoticeGiftSent      = "gift_sent"
	NoticeCoHostChanged = "cohost_changed"
	NoticeRoomBanned    = "room_banned"
	NoticeKicked        = "kicked"
)
