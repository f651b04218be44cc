package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/domain/repository"
	"github.com/hszk-dev/livebridge/internal/infrastructure/cache"
	"github.com/hszk-dev/livebridge/internal/infrastructure/metrics"
)

// StateServiceConfig holds configuration for the StateService.
type StateServiceConfig struct {
	RoomTTL      time.Duration
	GiftTTL      time.Duration
	BlacklistTTL time.Duration
	CoHostTTL    time.Duration
	// IconExpiry is the lifetime of presigned gift icon URLs.
	IconExpiry time.Duration
}

// DefaultStateServiceConfig returns the default configuration.
func DefaultStateServiceConfig() StateServiceConfig {
	return StateServiceConfig{
		RoomTTL:      60 * time.Second,
		GiftTTL:      10 * time.Minute,
		BlacklistTTL: 30 * time.Second,
		CoHostTTL:    30 * time.Second,
		IconExpiry:   time.Hour,
	}
}

// cachePinger is the liveness probe the health snapshot uses.
type cachePinger interface {
	Ping(ctx context.Context) error
}

// HealthSnapshot reports the reachability of the bridge's two upstreams.
type HealthSnapshot struct {
	CacheReachable  bool
	LedgerConnected bool
}

// StateService is the read-through layer between callers and the ledger.
// Reads hit the cache first; misses and expired entries fall through to the
// ledger gateway, coalesced per key with singleflight so a cold or expired
// key costs exactly one upstream call no matter how many readers arrive.
//
// When the ledger is unreachable a stale cached value is served with its
// staleness flagged; callers decide whether stale is acceptable. A room the
// ledger authoritatively reports as missing is never papered over with a
// stale copy.
type StateService struct {
	gateway repository.LedgerGateway
	rooms   cache.RoomCache
	gifts   cache.GiftCache
	bans    cache.BlacklistCache
	cohosts cache.CoHostCache
	assets  repository.AssetStore
	pinger  cachePinger
	sfGroup singleflight.Group

	cfg StateServiceConfig
}

// NewStateService creates a new StateService.
func NewStateService(
	gateway repository.LedgerGateway,
	rooms cache.RoomCache,
	gifts cache.GiftCache,
	bans cache.BlacklistCache,
	cohosts cache.CoHostCache,
	assets repository.AssetStore,
	pinger cachePinger,
	cfg StateServiceConfig,
) *StateService {
	return &StateService{
		gateway: gateway,
		rooms:   rooms,
		gifts:   gifts,
		bans:    bans,
		cohosts: cohosts,
		assets:  assets,
		pinger:  pinger,
		cfg:     cfg,
	}
}

// ledgerDown reports whether err is a transport-level ledger failure, the
// kind a stale cached value may stand in for.
func ledgerDown(err error) bool {
	return errors.Is(err, repository.ErrUpstreamUnreachable) ||
		errors.Is(err, repository.ErrUpstreamTimeout)
}

// GetRoom returns a room snapshot. stale is true when the value comes from
// an expired cache entry served because the ledger was unreachable.
func (s *StateService) GetRoom(ctx context.Context, roomID uint64) (*model.Room, bool, error) {
	type roomResult struct {
		room  *model.Room
		stale bool
	}

	key := fmt.Sprintf("room:%d", roomID)
	result, err, shared := s.sfGroup.Do(key, func() (any, error) {
		room, stale, err := s.getRoomWithCache(ctx, roomID)
		if err != nil {
			return nil, err
		}
		return roomResult{room: room, stale: stale}, nil
	})
	recordSingleflight(shared)

	if err != nil {
		return nil, false, err
	}
	r := result.(roomResult)
	return r.room, r.stale, nil
}

func (s *StateService) getRoomWithCache(ctx context.Context, roomID uint64) (*model.Room, bool, error) {
	cached, fresh, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		slog.Warn("room cache get failed, falling back to ledger",
			"room_id", roomID,
			"error", err,
		)
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityRoom, metrics.CacheStatusError).Inc()
	}

	if cached != nil && fresh {
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityRoom, metrics.CacheStatusFresh).Inc()
		return cached, false, nil
	}
	if cached == nil && err == nil {
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityRoom, metrics.CacheStatusMiss).Inc()
	}

	room, fetchErr := s.gateway.FetchRoom(ctx, roomID)
	if fetchErr != nil {
		if ledgerDown(fetchErr) && cached != nil {
			metrics.CacheReadsTotal.WithLabelValues(metrics.EntityRoom, metrics.CacheStatusStale).Inc()
			slog.Warn("serving stale room snapshot, ledger unreachable",
				"room_id", roomID,
				"error", fetchErr,
			)
			return cached, true, nil
		}
		return nil, false, fetchErr
	}

	if err := s.rooms.Set(ctx, room, s.cfg.RoomTTL); err != nil {
		slog.Warn("failed to cache room", "room_id", roomID, "error", err)
	}
	return room, false, nil
}

// GetGiftCatalog returns the global gift catalog with icon URLs resolved.
func (s *StateService) GetGiftCatalog(ctx context.Context) (*model.GiftCatalog, bool, error) {
	type giftResult struct {
		catalog *model.GiftCatalog
		stale   bool
	}

	result, err, shared := s.sfGroup.Do("gifts", func() (any, error) {
		catalog, stale, err := s.getGiftsWithCache(ctx)
		if err != nil {
			return nil, err
		}
		return giftResult{catalog: catalog, stale: stale}, nil
	})
	recordSingleflight(shared)

	if err != nil {
		return nil, false, err
	}
	r := result.(giftResult)
	return s.enrichWithIconURLs(ctx, r.catalog), r.stale, nil
}

func (s *StateService) getGiftsWithCache(ctx context.Context) (*model.GiftCatalog, bool, error) {
	cached, fresh, err := s.gifts.Get(ctx)
	if err != nil {
		slog.Warn("gift cache get failed, falling back to ledger", "error", err)
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityGifts, metrics.CacheStatusError).Inc()
	}

	if cached != nil && fresh {
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityGifts, metrics.CacheStatusFresh).Inc()
		return cached, false, nil
	}
	if cached == nil && err == nil {
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityGifts, metrics.CacheStatusMiss).Inc()
	}

	catalog, fetchErr := s.gateway.FetchGifts(ctx)
	if fetchErr != nil {
		if ledgerDown(fetchErr) && cached != nil {
			metrics.CacheReadsTotal.WithLabelValues(metrics.EntityGifts, metrics.CacheStatusStale).Inc()
			slog.Warn("serving stale gift catalog, ledger unreachable", "error", fetchErr)
			return cached, true, nil
		}
		return nil, false, fetchErr
	}

	if err := s.gifts.Set(ctx, catalog, s.cfg.GiftTTL); err != nil {
		slog.Warn("failed to cache gift catalog", "error", err)
	}
	return catalog, false, nil
}

// enrichWithIconURLs resolves each gift's icon key into a presigned URL.
// Returns a copy so cached data is never mutated. A presign failure leaves
// that gift's IconURL empty; the catalog itself is still served.
func (s *StateService) enrichWithIconURLs(ctx context.Context, catalog *model.GiftCatalog) *model.GiftCatalog {
	if s.assets == nil {
		return catalog
	}

	enriched := &model.GiftCatalog{Gifts: make([]model.Gift, len(catalog.Gifts))}
	copy(enriched.Gifts, catalog.Gifts)

	for i := range enriched.Gifts {
		g := &enriched.Gifts[i]
		if g.IconKey == "" {
			continue
		}
		u, err := s.assets.PresignedIconURL(ctx, g.IconKey, s.cfg.IconExpiry)
		if err != nil {
			slog.Warn("failed to presign gift icon",
				"gift_id", g.ID,
				"icon_key", g.IconKey,
				"error", err,
			)
			continue
		}
		g.IconURL = u
	}
	return enriched
}

// IsBanned reports whether addr is blacklisted in roomID.
func (s *StateService) IsBanned(ctx context.Context, roomID uint64, addr model.Address) (bool, bool, error) {
	type banResult struct {
		banned bool
		stale  bool
	}

	key := fmt.Sprintf("ban:%d:%s", roomID, addr)
	result, err, shared := s.sfGroup.Do(key, func() (any, error) {
		banned, stale, err := s.isBannedWithCache(ctx, roomID, addr)
		if err != nil {
			return nil, err
		}
		return banResult{banned: banned, stale: stale}, nil
	})
	recordSingleflight(shared)

	if err != nil {
		return false, false, err
	}
	r := result.(banResult)
	return r.banned, r.stale, nil
}

func (s *StateService) isBannedWithCache(ctx context.Context, roomID uint64, addr model.Address) (bool, bool, error) {
	cached, fresh, err := s.bans.Get(ctx, roomID, addr)
	if err != nil {
		slog.Warn("blacklist cache get failed, falling back to ledger",
			"room_id", roomID,
			"error", err,
		)
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityBlacklist, metrics.CacheStatusError).Inc()
	}

	if cached != nil && fresh {
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityBlacklist, metrics.CacheStatusFresh).Inc()
		return *cached, false, nil
	}
	if cached == nil && err == nil {
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityBlacklist, metrics.CacheStatusMiss).Inc()
	}

	banned, fetchErr := s.gateway.IsBanned(ctx, roomID, addr)
	if fetchErr != nil {
		if ledgerDown(fetchErr) && cached != nil {
			metrics.CacheReadsTotal.WithLabelValues(metrics.EntityBlacklist, metrics.CacheStatusStale).Inc()
			return *cached, true, nil
		}
		return false, false, fetchErr
	}

	if err := s.bans.Set(ctx, roomID, addr, banned, s.cfg.BlacklistTTL); err != nil {
		slog.Warn("failed to cache ban entry", "room_id", roomID, "error", err)
	}
	return banned, false, nil
}

// CoHosts returns the co-host set for a room.
func (s *StateService) CoHosts(ctx context.Context, roomID uint64) (*model.CoHostSet, bool, error) {
	type coHostResult struct {
		set   *model.CoHostSet
		stale bool
	}

	key := fmt.Sprintf("cohosts:%d", roomID)
	result, err, shared := s.sfGroup.Do(key, func() (any, error) {
		set, stale, err := s.coHostsWithCache(ctx, roomID)
		if err != nil {
			return nil, err
		}
		return coHostResult{set: set, stale: stale}, nil
	})
	recordSingleflight(shared)

	if err != nil {
		return nil, false, err
	}
	r := result.(coHostResult)
	return r.set, r.stale, nil
}

func (s *StateService) coHostsWithCache(ctx context.Context, roomID uint64) (*model.CoHostSet, bool, error) {
	cached, fresh, err := s.cohosts.Get(ctx, roomID)
	if err != nil {
		slog.Warn("cohost cache get failed, falling back to ledger",
			"room_id", roomID,
			"error", err,
		)
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityCoHosts, metrics.CacheStatusError).Inc()
	}

	if cached != nil && fresh {
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityCoHosts, metrics.CacheStatusFresh).Inc()
		return cached, false, nil
	}
	if cached == nil && err == nil {
		metrics.CacheReadsTotal.WithLabelValues(metrics.EntityCoHosts, metrics.CacheStatusMiss).Inc()
	}

	hosts, fetchErr := s.gateway.FetchCoHosts(ctx, roomID)
	if fetchErr != nil {
		if ledgerDown(fetchErr) && cached != nil {
			metrics.CacheReadsTotal.WithLabelValues(metrics.EntityCoHosts, metrics.CacheStatusStale).Inc()
			return cached, true, nil
		}
		return nil, false, fetchErr
	}

	set := &model.CoHostSet{RoomID: roomID, Hosts: hosts}
	if err := s.cohosts.Set(ctx, set, s.cfg.CoHostTTL); err != nil {
		slog.Warn("failed to cache cohost set", "room_id", roomID, "error", err)
	}
	return set, false, nil
}

// InvalidateRoom drops the cached snapshot for a room.
func (s *StateService) InvalidateRoom(ctx context.Context, roomID uint64) error {
	metrics.CacheInvalidationsTotal.WithLabelValues(metrics.EntityRoom).Inc()
	return s.rooms.Invalidate(ctx, roomID)
}

// InvalidateGifts drops the cached gift catalog.
func (s *StateService) InvalidateGifts(ctx context.Context) error {
	metrics.CacheInvalidationsTotal.WithLabelValues(metrics.EntityGifts).Inc()
	return s.gifts.Invalidate(ctx)
}

// InvalidateBan drops one cached ban entry.
func (s *StateService) InvalidateBan(ctx context.Context, roomID uint64, addr model.Address) error {
	metrics.CacheInvalidationsTotal.WithLabelValues(metrics.EntityBlacklist).Inc()
	return s.bans.Invalidate(ctx, roomID, addr)
}

// InvalidateRoomBans drops every cached ban entry for a room.
func (s *StateService) InvalidateRoomBans(ctx context.Context, roomID uint64) error {
	metrics.CacheInvalidationsTotal.WithLabelValues(metrics.EntityBlacklist).Inc()
	return s.bans.InvalidateRoom(ctx, roomID)
}

// InvalidateCoHosts drops the cached co-host set for a room.
func (s *StateService) InvalidateCoHosts(ctx context.Context, roomID uint64) error {
	metrics.CacheInvalidationsTotal.WithLabelValues(metrics.EntityCoHosts).Inc()
	return s.cohosts.Invalidate(ctx, roomID)
}

// Health probes the cache store and the ledger connection.
func (s *StateService) Health(ctx context.Context) HealthSnapshot {
	snap := HealthSnapshot{
		LedgerConnected: s.gateway.IsConnected(),
	}
	if s.pinger != nil {
		snap.CacheReachable = s.pinger.Ping(ctx) == nil
	}
	return snap
}

func recordSingleflight(shared bool) {
	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}
}
