package handler

import (
	"context"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/usecase"
)

// StateReader is the slice of the state service the HTTP layer consumes.
type StateReader interface {
	GetRoom(ctx context.Context, roomID uint64) (*model.Room, bool, error)
	GetGiftCatalog(ctx context.Context) (*model.GiftCatalog, bool, error)
	Health(ctx context.Context) usecase.HealthSnapshot
}

// Authorizer decides signed publish, view and co-host requests.
type Authorizer interface {
	AuthorizePublish(ctx context.Context, req usecase.AuthRequest) error
	AuthorizeView(ctx context.Context, req usecase.AuthRequest) error
	AuthorizeCoHost(ctx context.Context, req usecase.AuthRequest) error
}
