// Package auth implements the administrator permission cache.
//
// The cache wraps the remote "is this identity an administrator" check in a
// small state machine (unknown → pending → granted|denied) with single-flight
// coalescing: no matter how many callers ask concurrently, at most one remote
// check is in flight, and every caller observes its outcome. Terminal results
// are memoized for the lifetime of the cache instance.
//
// A failed remote check is treated as denied and cached (fail-closed). That
// means a transient network failure during the first check produces a
// persistent denial until restart; this trade-off is deliberate and callers
// must not retry around it.
package auth

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle position of the cache.
type State int

// The permission cache transitions only unknown → pending → granted|denied;
// granted and denied are terminal until the process restarts.
const (
	StateUnknown State = iota
	StatePending
	StateGranted
	StateDenied
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Identity carries the signed-in principal handed to the remote check.
type Identity struct {
	UserID string
	Email  string
	Token  string
}

// CheckFunc performs the remote administrator check.
type CheckFunc func(ctx context.Context, id Identity) (bool, error)

var (
	permChecks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "permission_remote_checks_total",
		Help: "Remote administrator checks actually issued.",
	})
	permHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "permission_cache_hits_total",
		Help: "Permission queries answered from a terminal cached state.",
	})
)

func init() {
	prometheus.MustRegister(permChecks, permHits)
}

// PermissionCache coalesces and memoizes the administrator check. One
// instance serves one signed-in identity; construct a fresh instance per
// session scope. Safe for concurrent use.
type PermissionCache struct {
	check CheckFunc
	log   zerolog.Logger

	flight singleflight.Group

	mu    sync.Mutex
	state State
}

// NewPermissionCache returns a cache in the unknown state.
func NewPermissionCache(check CheckFunc, log zerolog.Logger) *PermissionCache {
	return &PermissionCache{check: check, log: log}
}

// State returns the current lifecycle state.
func (c *PermissionCache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CheckIsAdmin reports whether the identity is an administrator. Terminal
// states answer immediately with no network access. Concurrent first calls
// share a single remote check.
func (c *PermissionCache) CheckIsAdmin(ctx context.Context, id Identity) bool {
	c.mu.Lock()
	switch c.state {
	case StateGranted:
		c.mu.Unlock()
		permHits.Inc()
		return true
	case StateDenied:
		c.mu.Unlock()
		permHits.Inc()
		return false
	}
	c.state = StatePending
	c.mu.Unlock()

	// The constant key scopes coalescing to this instance: the app assumes a
	// single signed-in identity at a time.
	v, _, _ := c.flight.Do("admin", func() (any, error) {
		// A previous flight may have settled between the state check above and
		// this execution; never issue a second remote check after a terminal.
		c.mu.Lock()
		st := c.state
		c.mu.Unlock()
		if st == StateGranted || st == StateDenied {
			return st == StateGranted, nil
		}

		permChecks.Inc()
		granted, err := c.check(ctx, id)
		if err != nil {
			c.log.Warn().Err(err).Str("user_id", id.UserID).
				Msg("auth: remote check failed, caching denial")
			granted = false
		}
		c.settle(granted)
		return granted, nil
	})
	granted, _ := v.(bool)
	return granted
}

// settle records the terminal outcome.
func (c *PermissionCache) settle(granted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if granted {
		c.state = StateGranted
	} else {
		c.state = StateDenied
	}
}
