// Helpers for the CheckoutReceipt rows used to implement safe-retry semantics
// for the order submission endpoint.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avlonitis/go-shop-backend/internal/domain"
)

// ErrNotFound indicates an absent (or expired) receipt.
var ErrNotFound = errors.New("not found")

// ErrDuplicate indicates a receipt already exists for the (user, key) pair.
var ErrDuplicate = errors.New("duplicate")

// GetReceipt returns a non-expired receipt or ErrNotFound.
func GetReceipt(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.CheckoutReceipt, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.CheckoutReceipt
	err := db.WithContext(ctx).
		Where("user_id = ? AND key = ? AND expires_at > ?", userID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateReceipt inserts a receipt and returns ErrDuplicate on unique violation.
func CreateReceipt(ctx context.Context, db *gorm.DB, userID, key, orderID string, ttl time.Duration) (*domain.CheckoutReceipt, error) {
	now := time.Now().UTC()
	rec := &domain.CheckoutReceipt{
		ID:        uuid.NewString(),
		Key:       key,
		UserID:    userID,
		OrderID:   orderID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often reports UNIQUE violations as plain-text errors.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
