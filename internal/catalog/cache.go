// Package catalog maintains the client-side snapshot of the product catalog.
//
// The cache is refreshed wholesale from the remote product-list endpoint and
// mirrored into the durable store so title/stock lookups keep working offline
// (for example when rendering historical orders). A failed refresh never
// regresses the snapshot: the last good value, including one restored from
// the durable store after a restart, keeps being served.
package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/avlonitis/go-shop-backend/internal/domain"
	"github.com/avlonitis/go-shop-backend/internal/store"
)

// ErrNotFound reports that an id resolves to no catalog entry. It is distinct
// from a found entry whose stock is zero; callers must not conflate the two.
var ErrNotFound = errors.New("catalog entry not found")

// Lister is the slice of the remote client the cache needs.
type Lister interface {
	ListProducts(ctx context.Context) ([]domain.CatalogEntry, error)
}

var refreshes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_refreshes_total",
		Help: "Catalog refresh attempts by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(refreshes)
}

// Hit is a successful FindByID resolution. Parent is non-nil only when the
// id was composite and Entry is a variant inside Parent.
type Hit struct {
	Entry  domain.CatalogEntry
	Parent *domain.CatalogEntry
}

// Cache holds the storefront-visible catalog snapshot. Safe for concurrent
// use. Construct with New, which restores any snapshot persisted by a
// previous process.
type Cache struct {
	lister Lister
	kv     store.KV
	log    zerolog.Logger

	mu       sync.RWMutex
	snapshot []domain.CatalogEntry
}

// New builds a Cache and restores the durable snapshot if one exists.
func New(lister Lister, kv store.KV, log zerolog.Logger) *Cache {
	c := &Cache{lister: lister, kv: kv, log: log}
	var persisted []domain.CatalogEntry
	found, err := store.GetJSON(context.Background(), kv, store.KeyCatalog, &persisted)
	if err != nil {
		log.Warn().Err(err).Msg("catalog: restore snapshot")
	} else if found {
		c.snapshot = persisted
	}
	return c
}

// Refresh replaces the snapshot with the storefront-visible subset of the
// remote list and persists it durably. On failure the previous snapshot is
// retained and the error returned.
func (c *Cache) Refresh(ctx context.Context) ([]domain.CatalogEntry, error) {
	all, err := c.lister.ListProducts(ctx)
	if err != nil {
		refreshes.WithLabelValues("failure").Inc()
		c.log.Warn().Err(err).Msg("catalog: refresh failed, serving stale snapshot")
		return nil, err
	}
	visible := filterVisible(all)

	c.mu.Lock()
	c.snapshot = visible
	c.mu.Unlock()

	if err := store.PutJSON(ctx, c.kv, store.KeyCatalog, visible); err != nil {
		c.log.Error().Err(err).Msg("catalog: persist snapshot")
	}
	refreshes.WithLabelValues("success").Inc()
	return c.Snapshot(), nil
}

// Snapshot returns a copy of the current (possibly stale) snapshot.
func (c *Cache) Snapshot() []domain.CatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.CatalogEntry, len(c.snapshot))
	copy(out, c.snapshot)
	return out
}

// FindByID resolves a simple id to a top-level entry, or a composite
// "group/variant" id to the variant plus its parent group. Missing entries
// return ErrNotFound; a found entry with zero stock is still a Hit.
func (c *Cache) FindByID(id string) (Hit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	groupID, variantID, composite := domain.SplitCompositeID(id)
	if !composite {
		for _, e := range c.snapshot {
			if e.ID == id {
				return Hit{Entry: e}, nil
			}
		}
		return Hit{}, ErrNotFound
	}

	for i := range c.snapshot {
		g := &c.snapshot[i]
		if g.ID != groupID || !g.IsGroup() {
			continue
		}
		for _, v := range g.Variants {
			if v.ID == variantID {
				parent := *g
				return Hit{Entry: v, Parent: &parent}, nil
			}
		}
		return Hit{}, ErrNotFound
	}
	return Hit{}, ErrNotFound
}

// AvailableStock resolves the purchasable stock for a product id. A group id
// aggregates its variants; an unknown stock count reads as zero.
func (c *Cache) AvailableStock(id string) (int, error) {
	hit, err := c.FindByID(id)
	if err != nil {
		return 0, err
	}
	return hit.Entry.TotalStock(), nil
}

// TitleFor returns the display title for a product id, used for offline
// rendering of historical orders. Falls back to the raw id when the entry
// left the catalog.
func (c *Cache) TitleFor(id string) string {
	hit, err := c.FindByID(id)
	if err != nil {
		return id
	}
	if hit.Parent != nil {
		return hit.Parent.Title + " / " + hit.Entry.Title
	}
	return hit.Entry.Title
}

// filterVisible keeps storefront-visible entries, dropping hidden variants
// inside kept groups as well.
func filterVisible(all []domain.CatalogEntry) []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, 0, len(all))
	for _, e := range all {
		if !e.Visible {
			continue
		}
		if e.IsGroup() {
			vs := make([]domain.CatalogEntry, 0, len(e.Variants))
			for _, v := range e.Variants {
				if v.Visible {
					vs = append(vs, v)
				}
			}
			e.Variants = vs
		}
		out = append(out, e)
	}
	return out
}
