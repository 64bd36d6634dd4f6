// Package cart implements the persisted shopping cart.
//
// The cart is a mapping of product identity to one line each, kept in
// insertion order because the storefront renders it that way. Every mutation
// is written through to the durable store under the cart key, so the cart
// survives process restarts. All mutations preserve two invariants: no two
// lines share a product id, and no line has a quantity below one.
package cart

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/avlonitis/go-shop-backend/internal/domain"
	"github.com/avlonitis/go-shop-backend/internal/store"
)

// Store is the persisted cart. Safe for concurrent use. Construct with New,
// which restores the persisted contents if any exist.
type Store struct {
	kv  store.KV
	log zerolog.Logger

	mu    sync.Mutex
	lines []domain.CartLine
}

// New builds a Store and restores the durable cart contents.
func New(kv store.KV, log zerolog.Logger) *Store {
	s := &Store{kv: kv, log: log}
	var persisted []domain.CartLine
	found, err := store.GetJSON(context.Background(), kv, store.KeyCart, &persisted)
	if err != nil {
		log.Warn().Err(err).Msg("cart: restore")
	} else if found {
		s.lines = persisted
	}
	return s
}

// Add merges line into the cart: an existing line with the same product id
// has the quantities summed in place (insertion order preserved), otherwise
// the line is appended. Lines with quantity < 1 are ignored.
func (s *Store) Add(ctx context.Context, line domain.CartLine) {
	if line.Quantity < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == line.ProductID {
			s.lines[i].Quantity += line.Quantity
			s.persistLocked(ctx)
			return
		}
	}
	s.lines = append(s.lines, line)
	s.persistLocked(ctx)
}

// Remove deletes the line for productID, if present.
func (s *Store) Remove(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.persistLocked(ctx)
			return
		}
	}
}

// SetQuantity updates the quantity for productID. A value of zero or less
// removes the line entirely; a quantity <= 0 is never stored.
func (s *Store) SetQuantity(ctx context.Context, productID string, n int) {
	if n <= 0 {
		s.Remove(ctx, productID)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines[i].Quantity = n
			s.persistLocked(ctx)
			return
		}
	}
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.persistLocked(ctx)
}

// Lines returns a copy of the cart in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Total sums price times quantity over all lines without intermediate
// rounding. Round only at the point of display or submission.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum float64
	for _, l := range s.lines {
		sum += l.Price * float64(l.Quantity)
	}
	return sum
}

// persistLocked writes the current lines through to the durable store.
func (s *Store) persistLocked(ctx context.Context) {
	if err := store.PutJSON(ctx, s.kv, store.KeyCart, s.lines); err != nil {
		s.log.Error().Err(err).Msg("cart: persist")
	}
}

// FormatAmount renders an amount for display in the given locale, rounding
// to two decimals at this point only.
func FormatAmount(tag language.Tag, amount float64) string {
	rounded := math.Round(amount*100) / 100
	p := message.NewPrinter(tag)
	return p.Sprintf("%.2f", rounded)
}
