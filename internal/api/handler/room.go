package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/domain/repository"
	"github.com/hszk-dev/livebridge/internal/infrastructure/cache"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

type RoomResponse struct {
	ID             uint64 `json:"id"`
	Host           string `json:"host"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	CurrentViewers int64  `json:"current_viewers"`
	TotalViewers   uint64 `json:"total_viewers"`
	PeakViewers    uint64 `json:"peak_viewers"`
	TotalGiftValue uint64 `json:"total_gift_value"`
	TicketPrice    uint64 `json:"ticket_price"`
	CreatedAt      string `json:"created_at,omitempty"`
	StartedAt      string `json:"started_at,omitempty"`
	EndedAt        string `json:"ended_at,omitempty"`
	Stale          bool   `json:"stale,omitempty"`
}

type GiftResponse struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Price   uint64 `json:"price"`
	IconURL string `json:"icon_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type GiftCatalogResponse struct {
	Gifts []GiftResponse `json:"gifts"`
	Stale bool           `json:"stale,omitempty"`
}

type RoomEventResponse struct {
	BlockNumber uint64 `json:"block_number"`
	Kind        string `json:"kind"`
	Actor       string `json:"actor,omitempty"`
	Amount      uint64 `json:"amount,omitempty"`
	EmittedAt   string `json:"emitted_at"`
	ObservedAt  string `json:"observed_at"`
}

type RoomEventsResponse struct {
	RoomID uint64              `json:"room_id"`
	Events []RoomEventResponse `json:"events"`
}

// RoomHandler serves cached ledger state over HTTP.
type RoomHandler struct {
	state   StateReader
	journal repository.EventJournal
	counter *cache.ViewerCounter
}

// NewRoomHandler creates a new RoomHandler. journal may be nil when event
// persistence is disabled.
func NewRoomHandler(state StateReader, journal repository.EventJournal, counter *cache.ViewerCounter) *RoomHandler {
	return &RoomHandler{state: state, journal: journal, counter: counter}
}

// Get handles GET /v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || roomID == 0 {
		Error(w, http.StatusBadRequest, "invalid_room_id", "Room ID must be a positive integer")
		return
	}

	room, stale, err := h.state.GetRoom(r.Context(), roomID)
	if err != nil {
		h.handleStateError(w, err)
		return
	}

	JSON(w, http.StatusOK, toRoomResponse(room, h.counter.Count(roomID), stale))
}

// Gifts handles GET /v1/gifts
func (h *RoomHandler) Gifts(w http.ResponseWriter, r *http.Request) {
	catalog, stale, err := h.state.GetGiftCatalog(r.Context())
	if err != nil {
		h.handleStateError(w, err)
		return
	}

	resp := GiftCatalogResponse{Gifts: make([]GiftResponse, 0, len(catalog.Gifts)), Stale: stale}
	for _, g := range catalog.Gifts {
		resp.Gifts = append(resp.Gifts, GiftResponse{
			ID:      g.ID,
			Name:    g.Name,
			Price:   g.Price,
			IconURL: g.IconURL,
			Enabled: g.Enabled,
		})
	}
	JSON(w, http.StatusOK, resp)
}

// Events handles GET /v1/rooms/{id}/events
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || roomID == 0 {
		Error(w, http.StatusBadRequest, "invalid_room_id", "Room ID must be a positive integer")
		return
	}
	if h.journal == nil {
		Error(w, http.StatusNotFound, "journal_disabled", "Event history is not enabled")
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			Error(w, http.StatusBadRequest, "invalid_limit", "Limit must be a positive integer")
			return
		}
		if n > maxEventLimit {
			n = maxEventLimit
		}
		limit = n
	}

	entries, err := h.journal.RecentByRoom(r.Context(), roomID, limit)
	if err != nil {
		Error(w, http.StatusInternalServerError, "internal_error", "Failed to load event history")
		return
	}

	resp := RoomEventsResponse{RoomID: roomID, Events: make([]RoomEventResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Events = append(resp.Events, RoomEventResponse{
			BlockNumber: e.BlockNumber,
			Kind:        e.Kind.String(),
			Actor:       string(e.Actor),
			Amount:      e.Amount,
			EmittedAt:   e.EmittedAt.Format(time.RFC3339),
			ObservedAt:  e.ObservedAt.Format(time.RFC3339),
		})
	}
	JSON(w, http.StatusOK, resp)
}

func (h *RoomHandler) handleStateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		Error(w, http.StatusNotFound, "room_not_found", "Room not found")
	case errors.Is(err, repository.ErrUpstreamTimeout), errors.Is(err, repository.ErrUpstreamUnreachable):
		Error(w, http.StatusServiceUnavailable, "ledger_unavailable", "Ledger is unavailable and no cached copy exists")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toRoomResponse(room *model.Room, currentViewers int64, stale bool) RoomResponse {
	resp := RoomResponse{
		ID:             room.ID,
		Host:           string(room.Host),
		Title:          room.Title,
		Status:         room.Status.String(),
		CurrentViewers: currentViewers,
		TotalViewers:   room.TotalViewers,
		PeakViewers:    room.PeakViewers,
		TotalGiftValue: room.TotalGiftValue,
		TicketPrice:    room.TicketPrice,
		Stale:          stale,
	}
	if !room.CreatedAt.IsZero() {
		resp.CreatedAt = room.CreatedAt.Format(time.RFC3339)
	}
	if !room.StartedAt.IsZero() {
		resp.StartedAt = room.StartedAt.Format(time.RFC3339)
	}
	if !room.EndedAt.IsZero() {
		resp.EndedAt = room.EndedAt.Format(time.RFC3339)
	}
	return resp
}
