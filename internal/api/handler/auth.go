package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/domain/repository"
	"github.com/hszk-dev/livebridge/internal/usecase"
)

type AuthRequest struct {
	Actor       string `json:"actor"`
	RoomID      uint64 `json:"room_id"`
	TimestampMs int64  `json:"timestamp_ms"`
	Signature   string `json:"signature"`
}

type AuthResponse struct {
	Authorized bool `json:"authorized"`
}

// AuthHandler exposes the three signed authorization checks.
type AuthHandler struct {
	svc Authorizer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc Authorizer) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Publish handles POST /v1/auth/publish
func (h *AuthHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.authorize(w, r, h.svc.AuthorizePublish)
}

// View handles POST /v1/auth/view
func (h *AuthHandler) View(w http.ResponseWriter, r *http.Request) {
	h.authorize(w, r, h.svc.AuthorizeView)
}

// CoHost handles POST /v1/auth/cohost
func (h *AuthHandler) CoHost(w http.ResponseWriter, r *http.Request) {
	h.authorize(w, r, h.svc.AuthorizeCoHost)
}

func (h *AuthHandler) authorize(
	w http.ResponseWriter,
	r *http.Request,
	check func(ctx context.Context, req usecase.AuthRequest) error,
) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Actor == "" || req.RoomID == 0 || req.Signature == "" {
		Error(w, http.StatusBadRequest, "invalid_request", "actor, room_id and signature are required")
		return
	}

	err := check(r.Context(), usecase.AuthRequest{
		Actor:       model.Address(req.Actor),
		RoomID:      req.RoomID,
		TimestampMs: req.TimestampMs,
		Signature:   req.Signature,
	})
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	JSON(w, http.StatusOK, AuthResponse{Authorized: true})
}

func (h *AuthHandler) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidSignature):
		Error(w, http.StatusUnauthorized, "invalid_signature", "Signature verification failed")
	case errors.Is(err, usecase.ErrExpiredTimestamp):
		Error(w, http.StatusUnauthorized, "expired_timestamp", "Request timestamp outside the freshness window")
	case errors.Is(err, usecase.ErrNotHost):
		Error(w, http.StatusForbidden, "not_host", "Actor is not the room host")
	case errors.Is(err, usecase.ErrNotCoHost):
		Error(w, http.StatusForbidden, "not_cohost", "Actor is not a co-host of the room")
	case errors.Is(err, usecase.ErrBanned):
		Error(w, http.StatusForbidden, "banned", "Actor is banned from the room")
	case errors.Is(err, usecase.ErrRoomNotJoinable):
		Error(w, http.StatusConflict, "room_not_joinable", "Room no longer accepts sessions")
	case errors.Is(err, usecase.ErrRoomNotLive):
		Error(w, http.StatusConflict, "room_not_live", "Room is not currently live")
	case errors.Is(err, usecase.ErrStateUnverifiable):
		Error(w, http.StatusServiceUnavailable, "state_unverifiable", "Authorization state cannot be confirmed right now")
	case errors.Is(err, repository.ErrRoomNotFound):
		Error(w, http.StatusNotFound, "room_not_found", "Room not found")
	case errors.Is(err, repository.ErrUpstreamTimeout), errors.Is(err, repository.ErrUpstreamUnreachable):
		Error(w, http.StatusServiceUnavailable, "ledger_unavailable", "Ledger is unavailable")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
