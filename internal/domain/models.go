// Package domain defines the data model shared by the session state layer:
// notifications, catalog entries (including grouped/variant products), cart
// lines, and order submission intents. The types here are plain values; the
// GORM-mapped persistence rows live in persistence.go.
package domain

import (
	"strings"
	"time"
)

// NotificationKind classifies a transient user-facing message.
type NotificationKind string

// Allowed notification kinds.
const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
	KindInfo    NotificationKind = "info"
)

// Notification is a transient user-facing message delivered by the broker.
//
// Fields:
//   - ID: opaque unique identifier (UUID).
//   - Message: human-readable text, safe to display.
//   - Kind: one of success/error/info.
//   - CreatedAt: enqueue time; drives lifetime expiry and FIFO eviction.
type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	CreatedAt time.Time        `json:"created_at"`
}

// CatalogEntry is one product in the catalog snapshot. A top-level entry with
// a non-empty Variants slice is a group; its own Price and StockCount are not
// meaningful and callers must derive ranges/aggregates from the variants.
//
// Identity: top-level IDs are unique across the catalog; variant IDs are
// unique within their group and addressed externally as "groupID/variantID".
type CatalogEntry struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Category   string         `json:"category"`
	Price      float64        `json:"price"`
	ImageURL   string         `json:"image_url"`
	StockCount *int           `json:"stock_count,omitempty"`
	Visible    bool           `json:"visible"`
	Variants   []CatalogEntry `json:"variants,omitempty"`
}

// IsGroup reports whether the entry is a variant group.
func (e CatalogEntry) IsGroup() bool { return len(e.Variants) > 0 }

// PriceRange returns the minimum and maximum price across the entry. For a
// plain product both values equal Price.
func (e CatalogEntry) PriceRange() (lo, hi float64) {
	if !e.IsGroup() {
		return e.Price, e.Price
	}
	lo, hi = e.Variants[0].Price, e.Variants[0].Price
	for _, v := range e.Variants[1:] {
		if v.Price < lo {
			lo = v.Price
		}
		if v.Price > hi {
			hi = v.Price
		}
	}
	return lo, hi
}

// TotalStock returns the aggregate stock of the entry: the variant sum for a
// group, otherwise the entry's own count. Unknown stock counts as zero.
func (e CatalogEntry) TotalStock() int {
	if !e.IsGroup() {
		if e.StockCount == nil {
			return 0
		}
		return *e.StockCount
	}
	sum := 0
	for _, v := range e.Variants {
		if v.StockCount != nil {
			sum += *v.StockCount
		}
	}
	return sum
}

// CompositeID joins a group id and a variant id into the external
// "group/variant" form.
func CompositeID(groupID, variantID string) string {
	return groupID + "/" + variantID
}

// SplitCompositeID splits an external product id into its group and variant
// parts. For a simple id the group part is empty and ok is false.
func SplitCompositeID(id string) (groupID, variantID string, ok bool) {
	i := strings.IndexByte(id, '/')
	if i <= 0 || i == len(id)-1 {
		return "", id, false
	}
	return id[:i], id[i+1:], true
}

// CartLine is one entry in the persisted shopping cart. ProductID may be a
// composite "group/variant" id; GroupID is set in that case for display.
// Quantity is always >= 1; a line reduced to zero is removed, never stored.
type CartLine struct {
	ProductID string  `json:"product_id"`
	GroupID   string  `json:"group_id,omitempty"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url"`
	Quantity  int     `json:"quantity"`
}

// OrderLine is the submission form of a cart line.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderIntent is a single order submission attempt. It is never persisted
// beyond the attempt; duplicate submissions are rejected by the checkout
// latch while one is in flight.
type OrderIntent struct {
	UserEmail      string            `json:"user_email"`
	Lines          []OrderLine       `json:"lines"`
	PaymentMethod  string            `json:"payment_method"`
	CouponCode     string            `json:"coupon_code,omitempty"`
	ClientMetadata map[string]string `json:"client_metadata,omitempty"`
}

// Order is the server's view of a submitted order.
type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	UserEmail string      `json:"user_email"`
	Status    string      `json:"status"`
	Lines     []OrderLine `json:"lines"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
}

// Ticket is a customer support ticket as served by the remote endpoint.
type Ticket struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Status    string    `json:"status"` // open|resolved|denied
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// StaffMember is a back-office account with an assigned role.
type StaffMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserAccount is a storefront customer account.
type UserAccount struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Credit  float64 `json:"credit"`
	Blocked bool    `json:"blocked"`
}

// AuditEntry is one appended line of the remote audit log.
type AuditEntry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
