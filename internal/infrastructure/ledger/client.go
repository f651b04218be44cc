// Package ledger implements the gateway to the external ledger node:
// typed queries over a single shared JSON-RPC websocket connection.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/domain/repository"
	"github.com/hszk-dev/livebridge/internal/infrastructure/metrics"
	"golang.org/x/sync/singleflight"
)

// RPC method names exposed by the ledger node's live-streaming module.
const (
	methodGetRoom    = "live_getRoom"
	methodGetCoHosts = "live_getCoHosts"
	methodIsBanned   = "live_isBanned"
	methodGetGifts   = "live_getGifts"
)

// rpcCodeNotFound is the ledger's JSON-RPC error code for a missing entity.
const rpcCodeNotFound = -32004

// ClientConfig holds configuration for the ledger client.
type ClientConfig struct {
	URL          string        // websocket endpoint of the ledger node
	DialTimeout  time.Duration // bound on connection establishment
	CallTimeout  time.Duration // default bound per RPC call
	WriteTimeout time.Duration // bound on a single frame write
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:          url,
		DialTimeout:  5 * time.Second,
		CallTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Client implements repository.LedgerGateway over one shared websocket.
// Connection establishment is coalesced: concurrent callers during an
// in-flight (re)connect all await the same attempt.
type Client struct {
	config ClientConfig

	sfGroup singleflight.Group

	mu      sync.Mutex // guards conn, writes, pending bookkeeping
	conn    *websocket.Conn
	pending map[uint64]chan rpcResponse
	nextID  uint64

	connected atomic.Bool
}

var _ repository.LedgerGateway = (*Client)(nil)

// NewClient creates a ledger client. No connection is made until Connect.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		config:  cfg,
		pending: make(map[uint64]chan rpcResponse),
	}
}

// Connect establishes the shared connection if it is not already up.
func (c *Client) Connect(ctx context.Context) error {
	if c.connected.Load() {
		return nil
	}

	_, err, shared := c.sfGroup.Do("connect", func() (any, error) {
		if c.connected.Load() {
			return nil, nil
		}
		return nil, c.dial(ctx)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}
	return err
}

func (c *Client) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", repository.ErrUpstreamUnreachable, c.config.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)

	go c.readLoop(conn)
	return nil
}

// readLoop is the single reader for the shared connection. It correlates
// responses to pending calls by request ID. A read failure marks the client
// disconnected and fails every in-flight call.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.teardown(conn)
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			slog.Warn("ledger: dropping undecodable frame", "error", err)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if ok {
			ch <- resp
		}
	}
}

func (c *Client) teardown(conn *websocket.Conn) {
	c.connected.Store(false)

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	orphaned := c.pending
	c.pending = make(map[uint64]chan rpcResponse)
	c.mu.Unlock()

	_ = conn.Close()
	for _, ch := range orphaned {
		close(ch)
	}
}

// IsConnected reports whether the shared connection is currently up.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Close tears down the shared connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	c.teardown(conn)
	return nil
}

// call performs one JSON-RPC request/response exchange, bounded by the
// call timeout, and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if err := c.Connect(ctx); err != nil {
		metrics.LedgerCallsTotal.WithLabelValues(method, metrics.LedgerStatusUnreachable).Inc()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	ch := make(chan rpcResponse, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		metrics.LedgerCallsTotal.WithLabelValues(method, metrics.LedgerStatusUnreachable).Inc()
		return repository.ErrUpstreamUnreachable
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := conn.WriteJSON(req)
	c.mu.Unlock()

	if err != nil {
		c.dropPending(id)
		c.teardown(conn)
		metrics.LedgerCallsTotal.WithLabelValues(method, metrics.LedgerStatusUnreachable).Inc()
		return fmt.Errorf("%w: write %s: %v", repository.ErrUpstreamUnreachable, method, err)
	}

	select {
	case <-ctx.Done():
		c.dropPending(id)
		metrics.LedgerCallsTotal.WithLabelValues(method, metrics.LedgerStatusTimeout).Inc()
		return fmt.Errorf("%w: %s", repository.ErrUpstreamTimeout, method)

	case resp, ok := <-ch:
		if !ok {
			// Channel closed by teardown: connection died mid-call.
			metrics.LedgerCallsTotal.WithLabelValues(method, metrics.LedgerStatusUnreachable).Inc()
			return fmt.Errorf("%w: connection lost during %s", repository.ErrUpstreamUnreachable, method)
		}
		if resp.Error != nil {
			if resp.Error.Code == rpcCodeNotFound {
				metrics.LedgerCallsTotal.WithLabelValues(method, metrics.LedgerStatusNotFound).Inc()
				return repository.ErrRoomNotFound
			}
			metrics.LedgerCallsTotal.WithLabelValues(method, metrics.LedgerStatusUnreachable).Inc()
			return fmt.Errorf("ledger rpc %s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		if out != nil {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				metrics.LedgerCallsTotal.WithLabelValues(method, metrics.LedgerStatusUnreachable).Inc()
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		metrics.LedgerCallsTotal.WithLabelValues(method, metrics.LedgerStatusOK).Inc()
		return nil
	}
}

func (c *Client) dropPending(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// roomResult is the ledger's wire shape for room state.
type roomResult struct {
	ID             uint64 `json:"id"`
	Host           string `json:"host"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	TotalViewers   uint64 `json:"total_viewers"`
	PeakViewers    uint64 `json:"peak_viewers"`
	TotalGiftValue uint64 `json:"total_gift_value"`
	TicketPrice    uint64 `json:"ticket_price"`
	CreatedAtMs    int64  `json:"created_at_ms"`
	StartedAtMs    int64  `json:"started_at_ms"`
	EndedAtMs      int64  `json:"ended_at_ms"`
}

// FetchRoom returns the authoritative room state.
func (c *Client) FetchRoom(ctx context.Context, roomID uint64) (*model.Room, error) {
	var res roomResult
	if err := c.call(ctx, methodGetRoom, []any{roomID}, &res); err != nil {
		return nil, err
	}

	room, err := model.NewRoom(res.ID, model.Address(res.Host), res.Title, model.RoomStatus(res.Status))
	if err != nil {
		return nil, fmt.Errorf("ledger returned invalid room %d: %w", roomID, err)
	}
	room.TotalViewers = res.TotalViewers
	room.PeakViewers = res.PeakViewers
	room.TotalGiftValue = res.TotalGiftValue
	room.TicketPrice = res.TicketPrice
	room.CreatedAt = msToTime(res.CreatedAtMs)
	room.StartedAt = msToTime(res.StartedAtMs)
	room.EndedAt = msToTime(res.EndedAtMs)
	return room, nil
}

// FetchCoHosts returns the addresses permitted to co-stream in a room.
func (c *Client) FetchCoHosts(ctx context.Context, roomID uint64) ([]model.Address, error) {
	var hosts []string
	if err := c.call(ctx, methodGetCoHosts, []any{roomID}, &hosts); err != nil {
		return nil, err
	}

	out := make([]model.Address, len(hosts))
	for i, h := range hosts {
		out[i] = model.Address(h)
	}
	return out, nil
}

// IsBanned reports whether an address is blacklisted in a room.
func (c *Client) IsBanned(ctx context.Context, roomID uint64, addr model.Address) (bool, error) {
	var banned bool
	if err := c.call(ctx, methodIsBanned, []any{roomID, addr.String()}, &banned); err != nil {
		return false, err
	}
	return banned, nil
}

type giftResult struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Price   uint64 `json:"price"`
	IconKey string `json:"icon_key"`
	Enabled bool   `json:"enabled"`
}

// FetchGifts returns the global gift catalog in ledger order.
func (c *Client) FetchGifts(ctx context.Context) (*model.GiftCatalog, error) {
	var res []giftResult
	if err := c.call(ctx, methodGetGifts, []any{}, &res); err != nil {
		return nil, err
	}

	catalog := &model.GiftCatalog{Gifts: make([]model.Gift, len(res))}
	for i, g := range res {
		catalog.Gifts[i] = model.Gift{
			ID:      g.ID,
			Name:    g.Name,
			Price:   g.Price,
			IconKey: g.IconKey,
			Enabled: g.Enabled,
		}
	}
	return catalog, nil
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
