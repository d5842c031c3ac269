package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.now)

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v; want 1, true", v, ok)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("expected entry to expire")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Hour)
	c.Set("a", "A")
	c.Set("b", "B")
	c.Get("a")
	c.Set("c", "C")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Hour)
	c.Set("card:1:2024-01-10", 1)
	c.Set("card:1:2024-02-10", 2)
	c.Set("card:12:2024-01-10", 3)

	if n := c.DeletePrefix("card:1:"); n != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", n)
	}
	if _, ok := c.Get("card:12:2024-01-10"); !ok {
		t.Error("card 12 entry should survive")
	}
}

func TestManager_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager()
	m.Register(c)
	clock.t = clock.t.Add(time.Minute)

	if n := m.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
