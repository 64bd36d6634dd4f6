// Package notify implements the bounded, TTL-evicting notification broker.
//
// The broker delivers transient user-facing messages to subscribers and keeps
// the live queue persisted so a message raised immediately before a shutdown
// or redirect is not lost: on construction the persisted queue is drained
// (read + clear as one atomic step) and any entry still inside the replay
// window is delivered exactly once. A periodic sweep drops entries older than
// the configured lifetime.
//
// Invariants:
//   - The live queue never exceeds the configured capacity; overflow drops the
//     oldest entries first, and the newest notification is never the one dropped.
//   - An entry is removed once now-CreatedAt exceeds the lifetime.
//   - A persisted batch is replayed at most once, even when two brokers are
//     constructed concurrently over the same store (Drain is atomic).
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avlonitis/go-shop-backend/internal/domain"
	"github.com/avlonitis/go-shop-backend/internal/store"
)

// Defaults mirror the product behavior: up to three visible messages, a 30
// second auto-dismiss, a short replay window across restarts, and a sweep
// every few seconds.
const (
	DefaultCapacity     = 3
	DefaultLifetime     = 30 * time.Second
	DefaultReplayWindow = 5 * time.Second
	DefaultSweepEvery   = 3 * time.Second
)

// Listener receives notifications as they are enqueued or replayed.
type Listener func(domain.Notification)

// Options tune a Broker. Zero values fall back to the defaults above.
type Options struct {
	Capacity     int
	Lifetime     time.Duration
	ReplayWindow time.Duration
	SweepEvery   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.Lifetime <= 0 {
		o.Lifetime = DefaultLifetime
	}
	if o.ReplayWindow <= 0 {
		o.ReplayWindow = DefaultReplayWindow
	}
	if o.SweepEvery <= 0 {
		o.SweepEvery = DefaultSweepEvery
	}
	return o
}

// Broker is a bounded pub/sub queue for transient messages. It is safe for
// concurrent use. Side effects are limited to the persisted store and the
// listener callbacks; the broker never performs network calls.
type Broker struct {
	kv  store.KV
	opt Options
	log zerolog.Logger
	now func() time.Time

	mu    sync.Mutex
	queue []domain.Notification
	subs  map[int]Listener
	nextS int

	done chan struct{}
	once sync.Once
}

// New constructs a Broker over kv, replays any persisted batch, and starts
// the expiry sweep. Callers must Close the broker to stop the sweep.
func New(kv store.KV, opt Options, log zerolog.Logger) *Broker {
	b := &Broker{
		kv:   kv,
		opt:  opt.withDefaults(),
		log:  log,
		now:  time.Now,
		subs: make(map[int]Listener),
		done: make(chan struct{}),
	}
	b.replayPersisted()
	go b.sweepLoop()
	return b
}

// Notify enqueues a message and persists the resulting queue. Oversized
// bursts evict the oldest entries; the new entry is always kept.
func (b *Broker) Notify(message string, kind domain.NotificationKind) {
	n := domain.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		CreatedAt: b.now(),
	}

	b.mu.Lock()
	for len(b.queue) >= b.opt.Capacity {
		b.queue = b.queue[1:]
	}
	b.queue = append(b.queue, n)
	b.persistLocked()
	subs := b.listenersLocked()
	b.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (b *Broker) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextS
	b.nextS++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Dismiss removes a notification by id and re-persists the queue.
func (b *Broker) Dismiss(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.queue {
		if n.ID == id {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			b.persistLocked()
			return
		}
	}
}

// Live returns a copy of the current queue, oldest first.
func (b *Broker) Live() []domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Notification, len(b.queue))
	copy(out, b.queue)
	return out
}

// Close stops the sweep goroutine. The persisted queue is left in place so a
// successor broker can replay it.
func (b *Broker) Close() {
	b.once.Do(func() { close(b.done) })
}

// replayPersisted drains the persisted batch and re-enqueues every entry that
// is still inside the replay window. The drained batch is not written back;
// entries re-enter the store only through subsequent mutations.
func (b *Broker) replayPersisted() {
	var batch []domain.Notification
	found, err := store.DrainJSON(context.Background(), b.kv, store.KeyNotifications, &batch)
	if err != nil {
		b.log.Error().Err(err).Msg("notify: drain persisted queue")
		return
	}
	if !found || len(batch) == 0 {
		return
	}

	cutoff := b.now().Add(-b.opt.ReplayWindow)
	b.mu.Lock()
	for _, n := range batch {
		if n.CreatedAt.Before(cutoff) {
			continue
		}
		if len(b.queue) >= b.opt.Capacity {
			b.queue = b.queue[1:]
		}
		b.queue = append(b.queue, n)
	}
	subs := b.listenersLocked()
	replayed := make([]domain.Notification, len(b.queue))
	copy(replayed, b.queue)
	b.mu.Unlock()

	for _, n := range replayed {
		for _, fn := range subs {
			fn(n)
		}
	}
}

// sweepLoop trims expired entries at a fixed interval until Close.
func (b *Broker) sweepLoop() {
	t := time.NewTicker(b.opt.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			b.sweep()
		}
	}
}

// sweep removes entries older than the lifetime and re-persists the trimmed
// queue when anything changed.
func (b *Broker) sweep() {
	cutoff := b.now().Add(-b.opt.Lifetime)

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.queue[:0]
	for _, n := range b.queue {
		if !n.CreatedAt.Before(cutoff) {
			kept = append(kept, n)
		}
	}
	if len(kept) != len(b.queue) {
		b.queue = kept
		b.persistLocked()
	}
}

// persistLocked writes the current queue under the broker's key. Failures
// are logged; the live queue stays authoritative for this process.
func (b *Broker) persistLocked() {
	if err := store.PutJSON(context.Background(), b.kv, store.KeyNotifications, b.queue); err != nil {
		b.log.Error().Err(err).Msg("notify: persist queue")
	}
}

// listenersLocked snapshots the subscriber set for delivery outside the lock.
func (b *Broker) listenersLocked() []Listener {
	out := make([]Listener, 0, len(b.subs))
	for _, fn := range b.subs {
		out = append(out, fn)
	}
	return out
}
