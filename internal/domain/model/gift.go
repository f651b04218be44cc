package model

// Gift is a single catalog entry. The catalog is global ledger state; the
// icon is referenced by object-storage key and resolved to a URL at read
// time.
type Gift struct {
	ID      uint64
	Name    string
	Price   uint64
	IconKey string
	IconURL string
	Enabled bool
}

// GiftCatalog is the ordered list of gifts as the ledger stores them.
// Cached as a single entry under one key.
type GiftCatalog struct {
	Gifts []Gift
}

// Find returns the gift with the given ID, or nil if absent.
func (c *GiftCatalog) Find(id uint64) *Gift {
	for i := range c.Gifts {
		if c.Gifts[i].ID == id {
			return &c.Gifts[i]
		}
	}
	return nil
}

// Enabled returns only the gifts currently sendable.
func (c *GiftCatalog) EnabledGifts() []Gift {
	out := make([]Gift, 0, len(c.Gifts))
	for _, g := range c.Gifts {
		if g.Enabled {
			out = append(out, g)
		}
	}
	return out
}
