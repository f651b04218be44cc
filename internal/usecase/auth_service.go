package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

var (
	// ErrNotHost means the actor is not the room's host.
	ErrNotHost = errors.New("actor is not the room host")

	// ErrNotCoHost means the actor holds no co-host rights in the room.
	ErrNotCoHost = errors.New("actor is not a co-host")

	// ErrBanned means the actor is blacklisted in the room.
	ErrBanned = errors.New("actor is banned from the room")

	// ErrRoomNotJoinable means the room no longer accepts sessions.
	ErrRoomNotJoinable = errors.New("room is not joinable")

	// ErrRoomNotLive means the operation requires an active broadcast.
	ErrRoomNotLive = errors.New("room is not live")

	// ErrStateUnverifiable means the decision would rest on stale security
	// state. Ban and co-host checks fail closed: a cached answer the ledger
	// cannot currently confirm denies access rather than grants it.
	ErrStateUnverifiable = errors.New("authorization state unverifiable")
)

// AuthRequest is one signed authorization attempt.
type AuthRequest struct {
	Actor       model.Address
	RoomID      uint64
	TimestampMs int64
	Signature   string
}

// AuthService decides who may publish, view and co-host. Every decision
// starts with signature and freshness verification; only then is room state
// consulted.
type AuthService struct {
	guard *ReplayGuard
	state *StateService
}

// NewAuthService creates a new AuthService.
func NewAuthService(guard *ReplayGuard, state *StateService) *AuthService {
	return &AuthService{guard: guard, state: state}
}

// AuthorizePublish permits the room's host to start publishing. The room
// must exist and still accept sessions.
func (a *AuthService) AuthorizePublish(ctx context.Context, req AuthRequest) error {
	if err := a.guard.Verify(req.Actor, req.Signature, req.TimestampMs, req.RoomID); err != nil {
		return err
	}

	room, _, err := a.state.GetRoom(ctx, req.RoomID)
	if err != nil {
		return fmt.Errorf("failed to resolve room: %w", err)
	}
	if !room.IsJoinable() {
		return ErrRoomNotJoinable
	}
	if room.Host != req.Actor {
		return ErrNotHost
	}
	return nil
}

// AuthorizeView permits a viewer to join a room. Blacklist membership fails
// closed: if the ban status cannot be confirmed against the ledger, the
// viewer is denied.
func (a *AuthService) AuthorizeView(ctx context.Context, req AuthRequest) error {
	if err := a.guard.Verify(req.Actor, req.Signature, req.TimestampMs, req.RoomID); err != nil {
		return err
	}

	room, _, err := a.state.GetRoom(ctx, req.RoomID)
	if err != nil {
		return fmt.Errorf("failed to resolve room: %w", err)
	}
	if !room.IsJoinable() {
		return ErrRoomNotJoinable
	}

	banned, stale, err := a.state.IsBanned(ctx, req.RoomID, req.Actor)
	if err != nil {
		return ErrStateUnverifiable
	}
	if stale {
		return ErrStateUnverifiable
	}
	if banned {
		return ErrBanned
	}
	return nil
}

// AuthorizeCoHost permits a co-host to join an active broadcast. Co-host
// membership fails closed the same way ban checks do.
func (a *AuthService) AuthorizeCoHost(ctx context.Context, req AuthRequest) error {
	if err := a.guard.Verify(req.Actor, req.Signature, req.TimestampMs, req.RoomID); err != nil {
		return err
	}

	room, _, err := a.state.GetRoom(ctx, req.RoomID)
	if err != nil {
		return fmt.Errorf("failed to resolve room: %w", err)
	}
	if !room.IsLive() {
		return ErrRoomNotLive
	}

	set, stale, err := a.state.CoHosts(ctx, req.RoomID)
	if err != nil {
		return ErrStateUnverifiable
	}
	if stale {
		return ErrStateUnverifiable
	}
	if !set.Contains(req.Actor) {
		return ErrNotCoHost
	}
	return nil
}
