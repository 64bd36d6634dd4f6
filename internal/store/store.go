// Package store implements the persisted key-value spaces used by the session
// state layer: a durable store that survives process restarts (GORM + SQLite)
// and an ephemeral store scoped to the current process. Both satisfy the same
// KV contract, including an atomic Drain (read + clear as one step) used by
// the notification replay path to guarantee exactly-once delivery.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/avlonitis/go-shop-backend/internal/domain"
)

// Well-known keys. Each key is written by exactly one component.
const (
	KeyCart          = "cart"
	KeyCatalog       = "catalog"
	KeyNotifications = "notifications"
	KeyOrderIndex    = "order_index"
	KeyRecentOrders  = "recent_orders"
)

// KV is the minimal key-value contract shared by the durable and ephemeral
// stores. Values are opaque byte slices; components encode their own JSON.
type KV interface {
	// Get returns the value for key. The bool reports presence.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Drain atomically reads and clears key. Concurrent drains of the same
	// key observe the value at most once between them.
	Drain(ctx context.Context, key string) ([]byte, bool, error)
}

// Durable is a KV backed by the kv_entries table. It is safe for concurrent
// use; per-key atomicity of Drain is provided by a transaction.
type Durable struct {
	db *gorm.DB
}

// NewDurable wraps an opened database handle.
func NewDurable(db *gorm.DB) *Durable { return &Durable{db: db} }

// Get implements KV.
func (d *Durable) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row domain.KVEntry
	err := d.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.Value, true, nil
}

// Put implements KV. An existing row is overwritten in place.
func (d *Durable) Put(ctx context.Context, key string, value []byte) error {
	row := domain.KVEntry{Key: key, Value: value}
	return d.db.WithContext(ctx).Save(&row).Error
}

// Delete implements KV.
func (d *Durable) Delete(ctx context.Context, key string) error {
	return d.db.WithContext(ctx).Where("key = ?", key).Delete(&domain.KVEntry{}).Error
}

// Drain implements KV. The read and the delete run in one transaction so two
// concurrent drains cannot both observe the value.
func (d *Durable) Drain(ctx context.Context, key string) (value []byte, found bool, err error) {
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row domain.KVEntry
		if e := tx.Where("key = ?", key).First(&row).Error; e != nil {
			if errors.Is(e, gorm.ErrRecordNotFound) {
				return nil
			}
			return e
		}
		value, found = row.Value, true
		return tx.Where("key = ?", key).Delete(&domain.KVEntry{}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Ephemeral is an in-memory KV scoped to the process lifetime. It backs
// session-scoped state that must not outlive a restart.
type Ephemeral struct {
	mu sync.Mutex
	m  map[string][]byte
}

// NewEphemeral returns an empty ephemeral store.
func NewEphemeral() *Ephemeral {
	return &Ephemeral{m: make(map[string][]byte)}
}

// Get implements KV.
func (e *Ephemeral) Get(_ context.Context, key string) ([]byte, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.m[key]
	return v, ok, nil
}

// Put implements KV.
func (e *Ephemeral) Put(_ context.Context, key string, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.m[key] = value
	return nil
}

// Delete implements KV.
func (e *Ephemeral) Delete(_ context.Context, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.m, key)
	return nil
}

// Drain implements KV. Read and clear happen under one lock acquisition.
func (e *Ephemeral) Drain(_ context.Context, key string) ([]byte, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.m[key]
	if ok {
		delete(e.m, key)
	}
	return v, ok, nil
}

// GetJSON reads key and unmarshals it into out. Absent keys leave out
// untouched and report found=false.
func GetJSON(ctx context.Context, kv KV, key string, out any) (bool, error) {
	b, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

// PutJSON marshals v and stores it under key.
func PutJSON(ctx context.Context, kv KV, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return kv.Put(ctx, key, b)
}

// DrainJSON atomically reads-and-clears key into out.
func DrainJSON(ctx context.Context, kv KV, key string, out any) (bool, error) {
	b, ok, err := kv.Drain(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}
