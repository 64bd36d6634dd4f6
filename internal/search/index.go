// Package search provides a small, deterministic, concurrency-safe in-memory
// product search index built from a catalog snapshot. It is dependency-free
// and read-only after construction, so a fresh index is built per catalog
// refresh and swapped in atomically by the caller.
//
// Scoring uses Jaccard similarity between the query token set and each
// product's token set (title, category, and variant titles):
// score = |Q ∩ P| / |Q ∪ P|. Ties break deterministically by id.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/avlonitis/go-shop-backend/internal/domain"
)

// Result is one ranked product with its similarity score.
type Result struct {
	Product domain.CatalogEntry
	Score   float64
}

// Index ranks products against free-text queries.
type Index interface {
	TopK(query string, k int) []Result
}

// Option tunes index construction.
type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	maxK      int
}

func defaultConfig() config {
	return config{maxK: 50}
}

// WithStopwords removes the given words from both documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxResults caps the number of results TopK may return.
func WithMaxResults(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxK = n
		}
	}
}

type doc struct {
	entry  domain.CatalogEntry
	tokens map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index from a catalog snapshot. Entries with no
// tokenizable text are skipped.
func NewIndex(entries []domain.CatalogEntry, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(entries))
	for _, e := range entries {
		toks := tokenize(docText(e), cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{entry: e, tokens: toks})
	}
	return &index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching products by Jaccard similarity.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 || k > i.cfg.maxK {
		k = i.cfg.maxK
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}

	scored := make([]Result, 0, len(i.docs))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(qTokens) + len(d.tokens) - over)
		scored = append(scored, Result{Product: d.entry, Score: float64(over) / union})
	}
	if len(scored) == 0 {
		return nil
	}

	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].Product.ID < scored[b].Product.ID
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// docText flattens the searchable text of one entry.
func docText(e domain.CatalogEntry) string {
	parts := []string{e.Title, e.Category}
	for _, v := range e.Variants {
		parts = append(parts, v.Title)
	}
	return strings.Join(parts, " ")
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
