// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "livebridge"

var (
	// CacheReadsTotal tracks state-cache reads by entity and outcome.
	// Labels:
	//   - entity: room, gifts, blacklist, cohosts
	//   - status: fresh, stale, miss, error
	CacheReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_reads_total",
			Help:      "Total number of state cache reads",
		},
		[]string{"entity", "status"},
	)

	// CacheInvalidationsTotal tracks explicit invalidations by entity.
	CacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Total number of explicit cache invalidations",
		},
		[]string{"entity"},
	)

	// LedgerCallsTotal tracks ledger RPC calls.
	// Labels:
	//   - method: live_getRoom, live_getCoHosts, live_isBanned, live_getGifts
	//   - status: ok, not_found, timeout, unreachable
	LedgerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_calls_total",
			Help:      "Total number of ledger RPC calls",
		},
		[]string{"method", "status"},
	)

	// EventsProcessedTotal tracks ledger events consumed from the stream.
	// Labels:
	//   - kind: ledger event kind, or "malformed"
	EventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Total number of ledger events processed",
		},
		[]string{"kind"},
	)

	// BroadcastsTotal tracks realtime messages fanned out to clients.
	// Labels:
	//   - scope: room, all, user
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of realtime broadcasts",
		},
		[]string{"scope"},
	)

	// LiveConnections tracks currently registered client connections.
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Number of currently registered client connections",
		},
	)

	// SingleflightRequestsTotal tracks coalescing behavior on reads and
	// connection establishment.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)
)

// Cache read status constants.
const (
	CacheStatusFresh = "fresh"
	CacheStatusStale = "stale"
	CacheStatusMiss  = "miss"
	CacheStatusError = "error"
)

// Cache entity constants.
const (
	EntityRoom      = "room"
	EntityGifts     = "gifts"
	EntityBlacklist = "blacklist"
	EntityCoHosts   = "cohosts"
)

// Ledger call status constants.
const (
	LedgerStatusOK          = "ok"
	LedgerStatusNotFound    = "not_found"
	LedgerStatusTimeout     = "timeout"
	LedgerStatusUnreachable = "unreachable"
)

// Broadcast scope constants.
const (
	ScopeRoom = "room"
	ScopeAll  = "all"
	ScopeUser = "user"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
