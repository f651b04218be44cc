package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256
)

// clientCommand is what a connected client may ask of the hub: watch a room
// or stop watching. Everything else flows the other way.
type clientCommand struct {
	Action string `json:"action"` // "join" or "leave"
	RoomID uint64 `json:"room_id,omitempty"`
}

// WSConn adapts a gorilla websocket connection to the hub's Conn interface.
// Writes go through a buffered channel drained by a single write pump, so
// Send never blocks and never races on the socket. The mutex orders Send
// against Close: a send must never hit the channel after it is closed.
type WSConn struct {
	id       uuid.UUID
	identity model.Address
	conn     *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewWSConn wraps an upgraded websocket connection for an authenticated
// identity.
func NewWSConn(conn *websocket.Conn, identity model.Address) *WSConn {
	return &WSConn{
		id:       uuid.New(),
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}
}

func (c *WSConn) ID() uuid.UUID           { return c.id }
func (c *WSConn) Identity() model.Address { return c.identity }

// Send enqueues data for the write pump. False means the connection is
// closed or its buffer is full.
func (c *WSConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close stops accepting new sends and lets the write pump drain and exit.
// Idempotent; safe to race with Send.
func (c *WSConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump consumes client commands until the connection drops, then
// unregisters the connection from the hub. Run in its own goroutine.
func (c *WSConn) ReadPump(hub *Hub) {
	defer func() {
		hub.Unregister(c.id)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed", "conn_id", c.id, "error", err)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			slog.Debug("ignoring malformed client command", "conn_id", c.id, "error", err)
			continue
		}

		switch cmd.Action {
		case "join":
			if cmd.RoomID != 0 {
				hub.JoinRoom(c.id, cmd.RoomID)
			}
		case "leave":
			hub.LeaveRoom(c.id)
		default:
			slog.Debug("ignoring unknown client command", "conn_id", c.id, "action", cmd.Action)
		}
	}
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with pings. Run in its own goroutine.
func (c *WSConn) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
