package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/avlonitis/go-shop-backend/internal/domain"
	"github.com/avlonitis/go-shop-backend/internal/store"
)

// ----- Fake lister -----

type fakeLister struct {
	entries []domain.CatalogEntry
	err     error
	calls   int
}

func (f *fakeLister) ListProducts(ctx context.Context) ([]domain.CatalogEntry, error) {
	f.calls++
	return f.entries, f.err
}

func intp(n int) *int { return &n }

func sampleCatalog() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{ID: "P1", Title: "Mug", Category: "kitchen", Price: 9.99, StockCount: intp(4), Visible: true},
		{ID: "P2", Title: "Hidden", Price: 1, StockCount: intp(1), Visible: false},
		{
			ID: "G1", Title: "T-Shirt", Category: "apparel", Visible: true,
			Variants: []domain.CatalogEntry{
				{ID: "V1", Title: "Small", Price: 15, StockCount: intp(2), Visible: true},
				{ID: "V2", Title: "Large", Price: 17, StockCount: intp(3), Visible: true},
				{ID: "V3", Title: "Discontinued", Price: 17, StockCount: intp(9), Visible: false},
			},
		},
	}
}

// ----- Tests -----

func TestRefresh_FiltersHiddenEntriesAndVariants(t *testing.T) {
	lister := &fakeLister{entries: sampleCatalog()}
	c := New(lister, store.NewEphemeral(), zerolog.Nop())

	got, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("visible entries = %d; want 2", len(got))
	}
	for _, e := range got {
		if e.ID == "P2" {
			t.Fatalf("hidden product survived the filter")
		}
	}
	if g := got[1]; g.ID != "G1" || len(g.Variants) != 2 {
		t.Fatalf("group variants = %d; want 2 (hidden variant dropped)", len(g.Variants))
	}
}

func TestRefresh_FailureKeepsStaleSnapshot(t *testing.T) {
	lister := &fakeLister{entries: sampleCatalog()}
	c := New(lister, store.NewEphemeral(), zerolog.Nop())
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	lister.err = errors.New("endpoint down")
	if _, err := c.Refresh(context.Background()); err == nil {
		t.Fatalf("Refresh on failing endpoint = nil error")
	}
	if got := c.Snapshot(); len(got) != 2 {
		t.Fatalf("snapshot regressed to %d entries after failed refresh", len(got))
	}
}

func TestNew_RestoresPersistedSnapshot(t *testing.T) {
	kv := store.NewEphemeral()
	lister := &fakeLister{entries: sampleCatalog()}

	first := New(lister, kv, zerolog.Nop())
	if _, err := first.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// A fresh cache over the same store serves the persisted snapshot without
	// touching the endpoint.
	second := New(&fakeLister{err: errors.New("offline")}, kv, zerolog.Nop())
	if got := second.Snapshot(); len(got) != 2 {
		t.Fatalf("restored snapshot = %d entries; want 2", len(got))
	}
	if second.TitleFor("P1") != "Mug" {
		t.Fatalf("TitleFor(P1) = %q after restore", second.TitleFor("P1"))
	}
}

func TestFindByID_SimpleAndComposite(t *testing.T) {
	c := New(&fakeLister{entries: sampleCatalog()}, store.NewEphemeral(), zerolog.Nop())
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	hit, err := c.FindByID("P1")
	if err != nil || hit.Entry.Title != "Mug" || hit.Parent != nil {
		t.Fatalf("FindByID(P1) = %+v, %v", hit, err)
	}

	hit, err = c.FindByID("G1/V2")
	if err != nil {
		t.Fatalf("FindByID(G1/V2): %v", err)
	}
	if hit.Entry.Title != "Large" || hit.Parent == nil || hit.Parent.ID != "G1" {
		t.Fatalf("composite hit = %+v", hit)
	}

	for _, id := range []string{"NOPE", "G1/V9", "P1/V1"} {
		if _, err := c.FindByID(id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("FindByID(%q) = %v; want ErrNotFound", id, err)
		}
	}
}

func TestAvailableStock_ZeroIsNotMissing(t *testing.T) {
	entries := []domain.CatalogEntry{
		{ID: "OUT", Title: "Sold out", Price: 5, StockCount: intp(0), Visible: true},
		{ID: "UNKNOWN", Title: "No count", Price: 5, Visible: true},
	}
	c := New(&fakeLister{entries: entries}, store.NewEphemeral(), zerolog.Nop())
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if n, err := c.AvailableStock("OUT"); err != nil || n != 0 {
		t.Fatalf("AvailableStock(OUT) = %d, %v; want 0, nil", n, err)
	}
	if n, err := c.AvailableStock("UNKNOWN"); err != nil || n != 0 {
		t.Fatalf("AvailableStock(UNKNOWN) = %d, %v; want 0, nil", n, err)
	}
	if _, err := c.AvailableStock("GONE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AvailableStock(GONE) = %v; want ErrNotFound", err)
	}
}

func TestAvailableStock_GroupAggregatesVariants(t *testing.T) {
	c := New(&fakeLister{entries: sampleCatalog()}, store.NewEphemeral(), zerolog.Nop())
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Hidden variant V3 was filtered out; 2 + 3 remain.
	if n, err := c.AvailableStock("G1"); err != nil || n != 5 {
		t.Fatalf("AvailableStock(G1) = %d, %v; want 5", n, err)
	}
	if n, err := c.AvailableStock("G1/V1"); err != nil || n != 2 {
		t.Fatalf("AvailableStock(G1/V1) = %d, %v; want 2", n, err)
	}
}

func TestTitleFor_CompositeAndFallback(t *testing.T) {
	c := New(&fakeLister{entries: sampleCatalog()}, store.NewEphemeral(), zerolog.Nop())
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if got := c.TitleFor("G1/V1"); got != "T-Shirt / Small" {
		t.Fatalf("TitleFor(G1/V1) = %q", got)
	}
	if got := c.TitleFor("deleted-id"); got != "deleted-id" {
		t.Fatalf("TitleFor(deleted-id) = %q; want raw id fallback", got)
	}
}
