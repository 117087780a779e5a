package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestGetOrFetchSingleCallWithinTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewWithClock[string](clock)

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "sunny", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrFetch(ctx, "weather:52.52,13.40", 15*time.Minute, fetch)
		if err != nil {
			t.Fatalf("GetOrFetch: %v", err)
		}
		if v != "sunny" {
			t.Fatalf("GetOrFetch = %q, want sunny", v)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls)
	}
}

func TestGetOrFetchRefetchesAfterExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewWithClock[int](clock)

	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	if v, _ := c.GetOrFetch(ctx, "k", 10*time.Minute, fetch); v != 1 {
		t.Fatalf("first fetch = %d, want 1", v)
	}
	clock.Advance(10*time.Minute + time.Second)
	if v, _ := c.GetOrFetch(ctx, "k", 10*time.Minute, fetch); v != 2 {
		t.Fatalf("post-expiry fetch = %d, want 2", v)
	}
	if calls != 2 {
		t.Fatalf("fetch calls = %d, want 2", calls)
	}
}

func TestFailedFetchNotCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewWithClock[string](clockwork.NewFakeClock())

	calls := 0
	boom := errors.New("provider down")
	fetch := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "cloudy", nil
	}

	if _, err := c.GetOrFetch(ctx, "k", time.Minute, fetch); !errors.Is(err, boom) {
		t.Fatalf("first GetOrFetch error = %v, want provider error", err)
	}
	v, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
	if err != nil {
		t.Fatalf("second GetOrFetch: %v", err)
	}
	if v != "cloudy" {
		t.Fatalf("second GetOrFetch = %q, want cloudy", v)
	}
	if calls != 2 {
		t.Fatalf("fetch calls = %d, want 2 (no negative caching)", calls)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	c := NewWithClock[string](clock)

	c.Set("a", "1", time.Minute)
	c.Get("a")
	c.Get("b")

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats = %d/%d, want 1/1", hits, misses)
	}
}
