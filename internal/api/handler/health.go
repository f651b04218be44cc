package handler

import (
	"net/http"
)

type HealthResponse struct {
	Status          string `json:"status"`
	CacheReachable  bool   `json:"cache_reachable"`
	LedgerConnected bool   `json:"ledger_connected"`
}

// HealthHandler reports the bridge's view of its upstreams. The process
// itself answering at all means the HTTP plane is up; the body says whether
// reads can currently be served fresh.
type HealthHandler struct {
	state StateReader
}

func NewHealthHandler(state StateReader) *HealthHandler {
	return &HealthHandler{state: state}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Health(r.Context())

	status := "ok"
	if !snap.CacheReachable || !snap.LedgerConnected {
		status = "degraded"
	}

	JSON(w, http.StatusOK, HealthResponse{
		Status:          status,
		CacheReachable:  snap.CacheReachable,
		LedgerConnected: snap.LedgerConnected,
	})
}
