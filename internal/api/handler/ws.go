package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/realtime"
	"github.com/hszk-dev/livebridge/internal/usecase"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks belong to the edge proxy in front of the bridge.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades authorized viewers to realtime connections.
type WSHandler struct {
	hub  *realtime.Hub
	auth Authorizer
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *realtime.Hub, auth Authorizer) *WSHandler {
	return &WSHandler{hub: hub, auth: auth}
}

// Connect handles GET /v1/ws. The signed view authorization travels in
// query parameters because browsers cannot set headers on websocket dials.
// The viewer joins the requested room immediately after the upgrade.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	actor := q.Get("actor")
	signature := q.Get("signature")
	roomID, _ := strconv.ParseUint(q.Get("room_id"), 10, 64)
	timestampMs, _ := strconv.ParseInt(q.Get("timestamp_ms"), 10, 64)

	if actor == "" || signature == "" || roomID == 0 {
		Error(w, http.StatusBadRequest, "invalid_request", "actor, room_id and signature are required")
		return
	}

	err := h.auth.AuthorizeView(r.Context(), usecase.AuthRequest{
		Actor:       model.Address(actor),
		RoomID:      roomID,
		TimestampMs: timestampMs,
		Signature:   signature,
	})
	if err != nil {
		NewAuthHandler(h.auth).handleAuthError(w, err)
		return
	}

	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}

	conn := realtime.NewWSConn(sock, model.Address(actor))
	h.hub.Register(conn)
	h.hub.JoinRoom(conn.ID(), roomID)

	go conn.WritePump()
	go conn.ReadPump(h.hub)
}
