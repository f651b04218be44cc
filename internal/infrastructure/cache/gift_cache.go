package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hszk-dev/livebridge/internal/domain/model"
)

// giftCatalogKey is the singleton key for the global catalog.
const giftCatalogKey = "gifts"

type giftJSON struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Price   uint64 `json:"price"`
	IconKey string `json:"icon_key"`
	Enabled bool   `json:"enabled"`
}

// RedisGiftCache implements GiftCache on the shared StateStore.
// Icon URLs are derived state and deliberately not cached here.
type RedisGiftCache struct {
	store *StateStore
}

var _ GiftCache = (*RedisGiftCache)(nil)

func NewRedisGiftCache(store *StateStore) *RedisGiftCache {
	return &RedisGiftCache{store: store}
}

func (c *RedisGiftCache) Get(ctx context.Context) (*model.GiftCatalog, bool, error) {
	payload, fresh, found, err := c.store.GetPayload(ctx, giftCatalogKey)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	var gifts []giftJSON
	if err := json.Unmarshal(payload, &gifts); err != nil {
		return nil, false, fmt.Errorf("deserialize gift catalog: %w", err)
	}

	catalog := &model.GiftCatalog{Gifts: make([]model.Gift, len(gifts))}
	for i, g := range gifts {
		catalog.Gifts[i] = model.Gift{
			ID:      g.ID,
			Name:    g.Name,
			Price:   g.Price,
			IconKey: g.IconKey,
			Enabled: g.Enabled,
		}
	}
	return catalog, fresh, nil
}

func (c *RedisGiftCache) Set(ctx context.Context, catalog *model.GiftCatalog, ttl time.Duration) error {
	gifts := make([]giftJSON, len(catalog.Gifts))
	for i, g := range catalog.Gifts {
		gifts[i] = giftJSON{
			ID:      g.ID,
			Name:    g.Name,
			Price:   g.Price,
			IconKey: g.IconKey,
			Enabled: g.Enabled,
		}
	}

	payload, err := json.Marshal(gifts)
	if err != nil {
		return fmt.Errorf("serialize gift catalog: %w", err)
	}
	return c.store.SetPayload(ctx, giftCatalogKey, payload, ttl)
}

func (c *RedisGiftCache) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, giftCatalogKey)
}
