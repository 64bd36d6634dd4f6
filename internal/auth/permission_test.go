package auth

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestCheckIsAdmin_CoalescesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	check := func(ctx context.Context, id Identity) (bool, error) {
		calls.Add(1)
		<-release
		return true, nil
	}
	c := NewPermissionCache(check, zerolog.Nop())

	const callers = 10
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.CheckIsAdmin(context.Background(), Identity{UserID: "u1"})
		}(i)
	}

	// Let every caller pile onto the shared flight before it settles.
	for c.State() != StatePending {
		runtime.Gosched()
	}
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("remote check issued %d times; want 1", n)
	}
	for i, r := range results {
		if !r {
			t.Fatalf("caller %d saw denied; want granted", i)
		}
	}
	if c.State() != StateGranted {
		t.Fatalf("state = %v; want granted", c.State())
	}
}

func TestCheckIsAdmin_TerminalStateSkipsRemote(t *testing.T) {
	var calls atomic.Int32
	check := func(ctx context.Context, id Identity) (bool, error) {
		calls.Add(1)
		return false, nil
	}
	c := NewPermissionCache(check, zerolog.Nop())

	for i := 0; i < 5; i++ {
		if c.CheckIsAdmin(context.Background(), Identity{UserID: "u1"}) {
			t.Fatalf("call %d granted; want denied", i)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("remote check issued %d times; want 1", n)
	}
	if c.State() != StateDenied {
		t.Fatalf("state = %v; want denied", c.State())
	}
}

func TestCheckIsAdmin_FailClosedOnError(t *testing.T) {
	var calls atomic.Int32
	check := func(ctx context.Context, id Identity) (bool, error) {
		calls.Add(1)
		return false, errors.New("network down")
	}
	c := NewPermissionCache(check, zerolog.Nop())

	if c.CheckIsAdmin(context.Background(), Identity{UserID: "u1"}) {
		t.Fatalf("granted on remote failure; want denied")
	}
	if c.State() != StateDenied {
		t.Fatalf("state = %v; want denied", c.State())
	}

	// The denial is cached; the endpoint coming back does not rehabilitate it.
	if c.CheckIsAdmin(context.Background(), Identity{UserID: "u1"}) {
		t.Fatalf("granted after cached denial")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("remote check issued %d times; want 1", n)
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateUnknown: "unknown",
		StatePending: "pending",
		StateGranted: "granted",
		StateDenied:  "denied",
		State(99):    "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("State(%d).String() = %q; want %q", s, got, want)
		}
	}
}
