// Package listings reads listing metadata owned by the marketplace's listings
// service. Favorites only needs the category for filtering and a few display
// fields for the shared-folder view.
package listings

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"os"
	"sync"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
)

// Catalog looks up listings by ID. IDs it does not know are absent from the
// result rather than an error.
type Catalog interface {
	Listings(ctx context.Context, ids []string) (map[string]domain.Listing, error)
}

// StaticCatalog is an in-memory catalog, loaded from a JSON file or filled
// directly. Used in development and tests.
type StaticCatalog struct {
	mu       sync.RWMutex
	listings map[string]domain.Listing
}

var _ Catalog = (*StaticCatalog)(nil)

// NewStaticCatalog creates a catalog holding the given listings.
func NewStaticCatalog(items ...domain.Listing) *StaticCatalog {
	c := &StaticCatalog{listings: make(map[string]domain.Listing, len(items))}
	for _, l := range items {
		c.listings[l.ID] = l
	}
	return c
}

// LoadFile reads a JSON array of listings.
func LoadFile(path string) (*StaticCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var items []domain.Listing
	if err := json.UnmarshalRead(f, &items); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return NewStaticCatalog(items...), nil
}

// Put adds or replaces a listing.
func (c *StaticCatalog) Put(l domain.Listing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[l.ID] = l
}

// Len returns the number of listings.
func (c *StaticCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listings)
}

// Listings implements Catalog.
func (c *StaticCatalog) Listings(_ context.Context, ids []string) (map[string]domain.Listing, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]domain.Listing, len(ids))
	for _, id := range ids {
		if l, ok := c.listings[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}
