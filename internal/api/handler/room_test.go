package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/domain/repository"
	"github.com/hszk-dev/livebridge/internal/infrastructure/cache"
	"github.com/hszk-dev/livebridge/internal/usecase"
)

// Mock StateReader

type mockStateReader struct {
	getRoomFn  func(ctx context.Context, roomID uint64) (*model.Room, bool, error)
	getGiftsFn func(ctx context.Context) (*model.GiftCatalog, bool, error)
	healthFn   func(ctx context.Context) usecase.HealthSnapshot
}

func (m *mockStateReader) GetRoom(ctx context.Context, roomID uint64) (*model.Room, bool, error) {
	if m.getRoomFn != nil {
		return m.getRoomFn(ctx, roomID)
	}
	return nil, false, repository.ErrRoomNotFound
}

func (m *mockStateReader) GetGiftCatalog(ctx context.Context) (*model.GiftCatalog, bool, error) {
	if m.getGiftsFn != nil {
		return m.getGiftsFn(ctx)
	}
	return &model.GiftCatalog{}, false, nil
}

func (m *mockStateReader) Health(ctx context.Context) usecase.HealthSnapshot {
	if m.healthFn != nil {
		return m.healthFn(ctx)
	}
	return usecase.HealthSnapshot{CacheReachable: true, LedgerConnected: true}
}

// Mock EventJournal

type mockJournal struct {
	recentFn func(ctx context.Context, roomID uint64, limit int) ([]repository.JournalEntry, error)
}

func (m *mockJournal) Append(ctx context.Context, entry repository.JournalEntry) error { return nil }

func (m *mockJournal) RecentByRoom(ctx context.Context, roomID uint64, limit int) ([]repository.JournalEntry, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, roomID, limit)
	}
	return nil, nil
}

func newRoomRouter(state StateReader, journal repository.EventJournal, counter *cache.ViewerCounter) *chi.Mux {
	h := NewRoomHandler(state, journal, counter)
	r := chi.NewRouter()
	r.Get("/v1/rooms/{id}", h.Get)
	r.Get("/v1/rooms/{id}/events", h.Events)
	r.Get("/v1/gifts", h.Gifts)
	return r
}

func TestRoomHandler_Get(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(m *mockStateReader)
		wantStatusCode int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name: "live room",
			path: "/v1/rooms/5",
			setupMock: func(m *mockStateReader) {
				m.getRoomFn = func(ctx context.Context, roomID uint64) (*model.Room, bool, error) {
					return &model.Room{
						ID:     roomID,
						Host:   "5host",
						Title:  "test stream",
						Status: model.RoomStatusLive,
					}, false, nil
				}
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp RoomResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.ID != 5 || resp.Status != "LIVE" {
					t.Errorf("resp = %+v", resp)
				}
				if resp.CurrentViewers != 2 {
					t.Errorf("current_viewers = %d, want 2", resp.CurrentViewers)
				}
				if resp.Stale {
					t.Error("fresh snapshot flagged stale")
				}
			},
		},
		{
			name: "stale snapshot flagged",
			path: "/v1/rooms/5",
			setupMock: func(m *mockStateReader) {
				m.getRoomFn = func(ctx context.Context, roomID uint64) (*model.Room, bool, error) {
					return &model.Room{ID: roomID, Host: "5host", Status: model.RoomStatusLive}, true, nil
				}
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp RoomResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if !resp.Stale {
					t.Error("stale snapshot not flagged")
				}
			},
		},
		{
			name:           "invalid room id",
			path:           "/v1/rooms/abc",
			setupMock:      func(m *mockStateReader) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "zero room id",
			path:           "/v1/rooms/0",
			setupMock:      func(m *mockStateReader) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "room not found",
			path:           "/v1/rooms/5",
			setupMock:      func(m *mockStateReader) {},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "ledger down with no cached copy",
			path: "/v1/rooms/5",
			setupMock: func(m *mockStateReader) {
				m.getRoomFn = func(ctx context.Context, roomID uint64) (*model.Room, bool, error) {
					return nil, false, repository.ErrUpstreamUnreachable
				}
			},
			wantStatusCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockStateReader{}
			tt.setupMock(mock)
			counter := cache.NewViewerCounter()
			counter.Increment(5)
			counter.Increment(5)
			router := newRoomRouter(mock, &mockJournal{}, counter)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatusCode)
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, rec.Body.Bytes())
			}
		})
	}
}

func TestRoomHandler_Gifts(t *testing.T) {
	mock := &mockStateReader{
		getGiftsFn: func(ctx context.Context) (*model.GiftCatalog, bool, error) {
			return &model.GiftCatalog{Gifts: []model.Gift{
				{ID: 1, Name: "rose", Price: 100, IconURL: "http://minio.local/icons/rose.png", Enabled: true},
				{ID: 2, Name: "retired", Price: 500, Enabled: false},
			}}, false, nil
		},
	}
	router := newRoomRouter(mock, &mockJournal{}, cache.NewViewerCounter())

	req := httptest.NewRequest(http.MethodGet, "/v1/gifts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp GiftCatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Gifts) != 2 {
		t.Fatalf("gifts = %d, want 2", len(resp.Gifts))
	}
	if resp.Gifts[0].IconURL == "" || resp.Gifts[1].Enabled {
		t.Errorf("gifts = %+v", resp.Gifts)
	}
}

func TestRoomHandler_Events(t *testing.T) {
	emitted := time.Now().UTC().Add(-time.Minute)

	journal := &mockJournal{
		recentFn: func(ctx context.Context, roomID uint64, limit int) ([]repository.JournalEntry, error) {
			if limit != 2 {
				t.Errorf("limit = %d, want 2", limit)
			}
			return []repository.JournalEntry{
				{BlockNumber: 1235, Kind: model.EventLiveEnded, RoomID: roomID, EmittedAt: emitted, ObservedAt: time.Now().UTC()},
				{BlockNumber: 1234, Kind: model.EventGiftSent, RoomID: roomID, Actor: "5bob", Amount: 500, EmittedAt: emitted, ObservedAt: time.Now().UTC()},
			}, nil
		},
	}
	router := newRoomRouter(&mockStateReader{}, journal, cache.NewViewerCounter())

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/5/events?limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp RoomEventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Events) != 2 || resp.Events[0].Kind != "LIVE_ENDED" {
		t.Errorf("events = %+v", resp.Events)
	}
}

func TestRoomHandler_Events_LimitClamped(t *testing.T) {
	journal := &mockJournal{
		recentFn: func(ctx context.Context, roomID uint64, limit int) ([]repository.JournalEntry, error) {
			if limit != maxEventLimit {
				t.Errorf("limit = %d, want %d", limit, maxEventLimit)
			}
			return nil, nil
		},
	}
	router := newRoomRouter(&mockStateReader{}, journal, cache.NewViewerCounter())

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/5/events?limit=10000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRoomHandler_Events_JournalError(t *testing.T) {
	journal := &mockJournal{
		recentFn: func(ctx context.Context, roomID uint64, limit int) ([]repository.JournalEntry, error) {
			return nil, errors.New("connection refused")
		},
	}
	router := newRoomRouter(&mockStateReader{}, journal, cache.NewViewerCounter())

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/5/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		snapshot   usecase.HealthSnapshot
		wantStatus string
	}{
		{"all upstreams up", usecase.HealthSnapshot{CacheReachable: true, LedgerConnected: true}, "ok"},
		{"ledger down", usecase.HealthSnapshot{CacheReachable: true, LedgerConnected: false}, "degraded"},
		{"cache down", usecase.HealthSnapshot{CacheReachable: false, LedgerConnected: true}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockStateReader{
				healthFn: func(ctx context.Context) usecase.HealthSnapshot { return tt.snapshot },
			}
			h := NewHealthHandler(mock)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			h.Health(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
		})
	}
}
