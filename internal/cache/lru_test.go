package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestLRUEvictsOldestAndFiresHook(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](2, time.Hour).OnEvict(func(key string, _ int) {
		evicted = append(evicted, key)
	})

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted as least recently used")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("unexpected evictions: %v", evicted)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUSlidingExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var evicted []string
	c := NewLRUCache[string](10, 10*time.Minute).
		WithClock(clock.Now).
		OnEvict(func(key string, _ string) { evicted = append(evicted, key) })

	c.Set("idle", "x")
	c.Set("busy", "y")

	clock.Advance(6 * time.Minute)
	if _, ok := c.Get("busy"); !ok {
		t.Fatal("busy should still be cached")
	}
	clock.Advance(6 * time.Minute)

	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if _, ok := c.Get("busy"); !ok {
		t.Fatal("access should have refreshed busy")
	}
	if len(evicted) != 1 || evicted[0] != "idle" {
		t.Fatalf("unexpected evictions: %v", evicted)
	}
}

func TestLRUDeleteAndClear(t *testing.T) {
	count := 0
	c := NewLRUCache[int](10, time.Hour).OnEvict(func(string, int) { count++ })
	c.Set("a", 1)
	c.Set("a", 2) // replacement fires the hook for the old value
	c.Set("b", 3)
	c.Delete("a")
	c.Delete("missing")
	c.Clear()
	if count != 3 || c.Size() != 0 {
		t.Fatalf("count=%d size=%d", count, c.Size())
	}
}

func TestManagerCleanNow(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.Now)
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(time.Hour)
	defer m.Stop()

	clock.Advance(2 * time.Minute)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow = %d, want 1", n)
	}
	m.Stop() // idempotent
}
