package repository

import (
	"context"
	"time"
)

// AssetStore resolves object-storage keys (gift icons) into URLs clients
// can fetch directly.
type AssetStore interface {
	// PresignedIconURL creates a time-limited download URL for an icon key.
	PresignedIconURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Exists checks whether an icon object is present.
	Exists(ctx context.Context, key string) (bool, error)
}
