// GORM-mapped persistence rows backing the durable key-value store and the
// checkout idempotency receipts.
package domain

import "time"

// KVEntry is one row of the durable key-value store. Each key is owned by
// exactly one component (cart, catalog snapshot, notification queue, order
// index, recent orders); writes are last-writer-wins at the key level.
type KVEntry struct {
	Key       string    `json:"key"       gorm:"type:varchar(128);primaryKey"`
	Value     []byte    `json:"-"         gorm:"type:blob;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for KVEntry.
func (KVEntry) TableName() string { return "kv_entries" }

// CheckoutReceipt records a completed checkout keyed by the client-supplied
// Idempotency-Key, so a retried submission is answered with the original
// order id instead of creating a second order.
//
// Fields:
//   - Key: normalized Idempotency-Key header value (unique per user).
//   - UserID: submitting user; part of the uniqueness scope.
//   - OrderID: order created by the first successful submission.
//   - CreatedAt / ExpiresAt: receipts are ignored once expired.
type CheckoutReceipt struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Key       string    `json:"key"        gorm:"type:varchar(200);not null;uniqueIndex:ux_receipt_user_key"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_receipt_user_key"`
	OrderID   string    `json:"order_id"   gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

// TableName returns the database table name for CheckoutReceipt.
func (CheckoutReceipt) TableName() string { return "checkout_receipts" }
