// Package realtime fans ledger-derived notices out to connected clients.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/infrastructure/cache"
	"github.com/hszk-dev/livebridge/internal/infrastructure/metrics"
)

// Notice is the envelope every pushed message uses on the wire.
type Notice struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Conn is one client connection as the hub sees it. The websocket transport
// implements it; tests substitute fakes.
type Conn interface {
	// ID is the hub-assigned connection identifier.
	ID() uuid.UUID

	// Identity is the authenticated address behind the connection.
	Identity() model.Address

	// Send enqueues data without blocking. False means the client's buffer
	// is full and the connection should be dropped as a slow consumer.
	Send(data []byte) bool

	// Close tears the connection down. Must be idempotent.
	Close()
}

// Hub tracks every live connection, which room each one watches, and keeps
// the per-room viewer counter in step with joins and leaves. A connection
// watches at most one room at a time.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uuid.UUID]Conn
	byIdentity map[model.Address]map[uuid.UUID]Conn
	rooms      map[uint64]map[uuid.UUID]Conn
	roomOf     map[uuid.UUID]uint64

	counter *cache.ViewerCounter
}

// NewHub creates a new Hub.
func NewHub(counter *cache.ViewerCounter) *Hub {
	return &Hub{
		conns:      make(map[uuid.UUID]Conn),
		byIdentity: make(map[model.Address]map[uuid.UUID]Conn),
		rooms:      make(map[uint64]map[uuid.UUID]Conn),
		roomOf:     make(map[uuid.UUID]uint64),
		counter:    counter,
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[conn.ID()] = conn
	byID, ok := h.byIdentity[conn.Identity()]
	if !ok {
		byID = make(map[uuid.UUID]Conn)
		h.byIdentity[conn.Identity()] = byID
	}
	byID[conn.ID()] = conn

	metrics.LiveConnections.Inc()
	slog.Debug("connection registered", "conn_id", conn.ID(), "identity", conn.Identity())
}

// Unregister removes a connection, leaving its room first so the viewer
// counter stays accurate. Safe to call twice.
func (h *Hub) Unregister(connID uuid.UUID) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	h.leaveLocked(connID)
	delete(h.conns, connID)
	if byID, ok := h.byIdentity[conn.Identity()]; ok {
		delete(byID, connID)
		if len(byID) == 0 {
			delete(h.byIdentity, conn.Identity())
		}
	}
	h.mu.Unlock()

	metrics.LiveConnections.Dec()
	slog.Debug("connection unregistered", "conn_id", connID)
}

// JoinRoom moves a connection into a room. Joining the room it already
// watches is a no-op; joining a different room leaves the old one first.
// Each transition adjusts the viewer counter exactly once.
func (h *Hub) JoinRoom(connID uuid.UUID, roomID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	if current, joined := h.roomOf[connID]; joined {
		if current == roomID {
			return
		}
		h.leaveLocked(connID)
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[uuid.UUID]Conn)
		h.rooms[roomID] = room
	}
	room[connID] = conn
	h.roomOf[connID] = roomID
	h.counter.Increment(roomID)
}

// LeaveRoom removes a connection from whatever room it watches.
func (h *Hub) LeaveRoom(connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(connID)
}

// leaveLocked removes connID from its room and decrements the counter.
// Caller holds h.mu.
func (h *Hub) leaveLocked(connID uuid.UUID) {
	roomID, joined := h.roomOf[connID]
	if !joined {
		return
	}
	delete(h.roomOf, connID)
	if room, ok := h.rooms[roomID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.counter.Decrement(roomID)
}

// BroadcastToRoom delivers a notice to every connection in a room.
func (h *Hub) BroadcastToRoom(roomID uint64, notice string, payload any) {
	data, err := marshalNotice(notice, payload)
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := connsOf(h.rooms[roomID])
	h.mu.RUnlock()

	metrics.BroadcastsTotal.WithLabelValues(metrics.ScopeRoom).Inc()
	h.deliver(targets, data)
}

// BroadcastToAll delivers a notice to every registered connection.
func (h *Hub) BroadcastToAll(notice string, payload any) {
	data, err := marshalNotice(notice, payload)
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := connsOf(h.conns)
	h.mu.RUnlock()

	metrics.BroadcastsTotal.WithLabelValues(metrics.ScopeAll).Inc()
	h.deliver(targets, data)
}

// NotifyUser delivers a notice to every connection of one identity.
func (h *Hub) NotifyUser(addr model.Address, notice string, payload any) {
	data, err := marshalNotice(notice, payload)
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := connsOf(h.byIdentity[addr])
	h.mu.RUnlock()

	metrics.BroadcastsTotal.WithLabelValues(metrics.ScopeUser).Inc()
	h.deliver(targets, data)
}

// KickUser notifies an identity's connections in a room that they were
// removed, then drops those connections. The viewer counter goes down once
// per dropped connection.
func (h *Hub) KickUser(roomID uint64, addr model.Address) {
	data, err := marshalNotice(model.NoticeKicked, map[string]uint64{"room_id": roomID})
	if err != nil {
		return
	}

	h.mu.RLock()
	var targets []Conn
	for connID, conn := range h.byIdentity[addr] {
		if h.roomOf[connID] == roomID {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	metrics.BroadcastsTotal.WithLabelValues(metrics.ScopeUser).Inc()
	for _, conn := range targets {
		conn.Send(data)
		h.Unregister(conn.ID())
		conn.Close()
	}
	slog.Info("kicked user from room", "identity", addr, "room_id", roomID, "connections", len(targets))
}

// CloseRoom disconnects every connection watching a room.
func (h *Hub) CloseRoom(roomID uint64) {
	h.mu.RLock()
	targets := connsOf(h.rooms[roomID])
	h.mu.RUnlock()

	for _, conn := range targets {
		h.Unregister(conn.ID())
		conn.Close()
	}
	slog.Info("closed room connections", "room_id", roomID, "connections", len(targets))
}

// Shutdown disconnects everything. Used during graceful shutdown.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	targets := connsOf(h.conns)
	h.mu.RUnlock()

	for _, conn := range targets {
		h.Unregister(conn.ID())
		conn.Close()
	}
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// deliver fans data out, dropping slow consumers rather than blocking the
// event loop behind them.
func (h *Hub) deliver(targets []Conn, data []byte) {
	for _, conn := range targets {
		if !conn.Send(data) {
			slog.Warn("dropping slow consumer", "conn_id", conn.ID())
			h.Unregister(conn.ID())
			conn.Close()
		}
	}
}

func connsOf(m map[uuid.UUID]Conn) []Conn {
	out := make([]Conn, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func marshalNotice(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(Notice{Event: event, Payload: payload})
	if err != nil {
		slog.Error("failed to marshal notice", "event", event, "error", err)
		return nil, err
	}
	return data, nil
}
