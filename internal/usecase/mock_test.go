package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/domain/repository"
)

// mockLedgerGateway provides a configurable mock for LedgerGateway.
type mockLedgerGateway struct {
	connectFn      func(ctx context.Context) error
	isConnectedFn  func() bool
	fetchRoomFn    func(ctx context.Context, roomID uint64) (*model.Room, error)
	fetchCoHostsFn func(ctx context.Context, roomID uint64) ([]model.Address, error)
	isBannedFn     func(ctx context.Context, roomID uint64, addr model.Address) (bool, error)
	fetchGiftsFn   func(ctx context.Context) (*model.GiftCatalog, error)
}

func (m *mockLedgerGateway) Connect(ctx context.Context) error {
	if m.connectFn != nil {
		return m.connectFn(ctx)
	}
	return nil
}

func (m *mockLedgerGateway) IsConnected() bool {
	if m.isConnectedFn != nil {
		return m.isConnectedFn()
	}
	return true
}

func (m *mockLedgerGateway) FetchRoom(ctx context.Context, roomID uint64) (*model.Room, error) {
	if m.fetchRoomFn != nil {
		return m.fetchRoomFn(ctx, roomID)
	}
	return nil, repository.ErrRoomNotFound
}

func (m *mockLedgerGateway) FetchCoHosts(ctx context.Context, roomID uint64) ([]model.Address, error) {
	if m.fetchCoHostsFn != nil {
		return m.fetchCoHostsFn(ctx, roomID)
	}
	return nil, nil
}

func (m *mockLedgerGateway) IsBanned(ctx context.Context, roomID uint64, addr model.Address) (bool, error) {
	if m.isBannedFn != nil {
		return m.isBannedFn(ctx, roomID, addr)
	}
	return false, nil
}

func (m *mockLedgerGateway) FetchGifts(ctx context.Context) (*model.GiftCatalog, error) {
	if m.fetchGiftsFn != nil {
		return m.fetchGiftsFn(ctx)
	}
	return &model.GiftCatalog{}, nil
}

func (m *mockLedgerGateway) Close() error { return nil }

// mockRoomCache provides a configurable mock for cache.RoomCache.
type mockRoomCache struct {
	getFn        func(ctx context.Context, roomID uint64) (*model.Room, bool, error)
	setFn        func(ctx context.Context, room *model.Room, ttl time.Duration) error
	invalidateFn func(ctx context.Context, roomID uint64) error
}

func (m *mockRoomCache) Get(ctx context.Context, roomID uint64) (*model.Room, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, roomID)
	}
	return nil, false, nil
}

func (m *mockRoomCache) Set(ctx context.Context, room *model.Room, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, room, ttl)
	}
	return nil
}

func (m *mockRoomCache) Invalidate(ctx context.Context, roomID uint64) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, roomID)
	}
	return nil
}

// mockGiftCache provides a configurable mock for cache.GiftCache.
type mockGiftCache struct {
	getFn        func(ctx context.Context) (*model.GiftCatalog, bool, error)
	setFn        func(ctx context.Context, catalog *model.GiftCatalog, ttl time.Duration) error
	invalidateFn func(ctx context.Context) error
}

func (m *mockGiftCache) Get(ctx context.Context) (*model.GiftCatalog, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	return nil, false, nil
}

func (m *mockGiftCache) Set(ctx context.Context, catalog *model.GiftCatalog, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, catalog, ttl)
	}
	return nil
}

func (m *mockGiftCache) Invalidate(ctx context.Context) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx)
	}
	return nil
}

// mockBlacklistCache provides a configurable mock for cache.BlacklistCache.
type mockBlacklistCache struct {
	getFn            func(ctx context.Context, roomID uint64, addr model.Address) (*bool, bool, error)
	setFn            func(ctx context.Context, roomID uint64, addr model.Address, banned bool, ttl time.Duration) error
	invalidateFn     func(ctx context.Context, roomID uint64, addr model.Address) error
	invalidateRoomFn func(ctx context.Context, roomID uint64) error
}

func (m *mockBlacklistCache) Get(ctx context.Context, roomID uint64, addr model.Address) (*bool, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, roomID, addr)
	}
	return nil, false, nil
}

func (m *mockBlacklistCache) Set(ctx context.Context, roomID uint64, addr model.Address, banned bool, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, roomID, addr, banned, ttl)
	}
	return nil
}

func (m *mockBlacklistCache) Invalidate(ctx context.Context, roomID uint64, addr model.Address) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, roomID, addr)
	}
	return nil
}

func (m *mockBlacklistCache) InvalidateRoom(ctx context.Context, roomID uint64) error {
	if m.invalidateRoomFn != nil {
		return m.invalidateRoomFn(ctx, roomID)
	}
	return nil
}

// mockCoHostCache provides a configurable mock for cache.CoHostCache.
type mockCoHostCache struct {
	getFn        func(ctx context.Context, roomID uint64) (*model.CoHostSet, bool, error)
	setFn        func(ctx context.Context, set *model.CoHostSet, ttl time.Duration) error
	invalidateFn func(ctx context.Context, roomID uint64) error
}

func (m *mockCoHostCache) Get(ctx context.Context, roomID uint64) (*model.CoHostSet, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, roomID)
	}
	return nil, false, nil
}

func (m *mockCoHostCache) Set(ctx context.Context, set *model.CoHostSet, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, set, ttl)
	}
	return nil
}

func (m *mockCoHostCache) Invalidate(ctx context.Context, roomID uint64) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, roomID)
	}
	return nil
}

// mockAssetStore provides a configurable mock for AssetStore.
type mockAssetStore struct {
	presignedIconURLFn func(ctx context.Context, key string, expiry time.Duration) (string, error)
	existsFn           func(ctx context.Context, key string) (bool, error)
}

func (m *mockAssetStore) PresignedIconURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.presignedIconURLFn != nil {
		return m.presignedIconURLFn(ctx, key, expiry)
	}
	return "http://example.com/" + key, nil
}

func (m *mockAssetStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return true, nil
}

// mockEventJournal records appended entries.
type mockEventJournal struct {
	mu       sync.Mutex
	appendFn func(ctx context.Context, entry repository.JournalEntry) error
	entries  []repository.JournalEntry
}

func (m *mockEventJournal) Append(ctx context.Context, entry repository.JournalEntry) error {
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
	if m.appendFn != nil {
		return m.appendFn(ctx, entry)
	}
	return nil
}

func (m *mockEventJournal) RecentByRoom(ctx context.Context, roomID uint64, limit int) ([]repository.JournalEntry, error) {
	return nil, nil
}

func (m *mockEventJournal) appended() []repository.JournalEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.JournalEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// broadcastCall records one Broadcaster invocation in order.
type broadcastCall struct {
	method  string
	roomID  uint64
	notice  string
	addr    model.Address
	payload any
}

// mockBroadcaster records every fan-out call in invocation order.
type mockBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (m *mockBroadcaster) record(c broadcastCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockBroadcaster) BroadcastToRoom(roomID uint64, notice string, payload any) {
	m.record(broadcastCall{method: "BroadcastToRoom", roomID: roomID, notice: notice, payload: payload})
}

func (m *mockBroadcaster) BroadcastToAll(notice string, payload any) {
	m.record(broadcastCall{method: "BroadcastToAll", notice: notice, payload: payload})
}

func (m *mockBroadcaster) NotifyUser(addr model.Address, notice string, payload any) {
	m.record(broadcastCall{method: "NotifyUser", notice: notice, addr: addr, payload: payload})
}

func (m *mockBroadcaster) KickUser(roomID uint64, addr model.Address) {
	m.record(broadcastCall{method: "KickUser", roomID: roomID, addr: addr})
}

func (m *mockBroadcaster) CloseRoom(roomID uint64) {
	m.record(broadcastCall{method: "CloseRoom", roomID: roomID})
}

func (m *mockBroadcaster) recorded() []broadcastCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]broadcastCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// mockEventStream provides a configurable mock for EventStream.
type mockEventStream struct {
	publishFn func(ctx context.Context, event model.LedgerEvent) error
	consumeFn func(ctx context.Context, handler func(event model.LedgerEvent) error) error
}

func (m *mockEventStream) PublishLedgerEvent(ctx context.Context, event model.LedgerEvent) error {
	if m.publishFn != nil {
		return m.publishFn(ctx, event)
	}
	return nil
}

func (m *mockEventStream) ConsumeLedgerEvents(ctx context.Context, handler func(event model.LedgerEvent) error) error {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, handler)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockEventStream) Close() error { return nil }
