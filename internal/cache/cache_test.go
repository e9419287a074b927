package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestQueryCache_GetSet(t *testing.T) {
	c := New(10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() on empty cache returned a value")
	}

	c.Set("k1", "answer one")
	got, ok := c.Get("k1")
	if !ok {
		t.Fatal("Get() after Set() returned no value")
	}
	if got != "answer one" {
		t.Errorf("Get() = %v, want answer one", got)
	}

	c.Set("k1", "answer two")
	got, _ = c.Get("k1")
	if got != "answer two" {
		t.Errorf("Get() after overwrite = %v, want answer two", got)
	}
}

func TestQueryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(3, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" is the LRU entry.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Get(a) miss")
	}

	c.Set("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("LRU entry b was not evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("entry %s unexpectedly evicted", k)
		}
	}

	if stats := c.Stats(); stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestQueryCache_TTLExpiry(t *testing.T) {
	c := New(10, time.Minute)

	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	c.Set("k", "value")

	current = current.Add(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry expired before TTL")
	}

	current = current.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("entry still served after TTL")
	}

	if stats := c.Stats(); stats.Size != 0 {
		t.Errorf("expired entry still counted, Size = %d", stats.Size)
	}
}

func TestQueryCache_Stats(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("k", "v")

	_, _ = c.Get("k")
	_, _ = c.Get("k")
	_, _ = c.Get("nope")

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if rate := stats.HitRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("HitRate() = %f, want ~0.667", rate)
	}
	if stats.MaxSize != 10 {
		t.Errorf("MaxSize = %d, want 10", stats.MaxSize)
	}
}

func TestQueryCache_Clear(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("k", "v")
	c.Clear()

	if _, ok := c.Get("k"); ok {
		t.Error("Get() returned value after Clear()")
	}
	if stats := c.Stats(); stats.Size != 0 {
		t.Errorf("Size = %d after Clear(), want 0", stats.Size)
	}
}

func TestKey(t *testing.T) {
	k1 := Key("what is the deadline", "exams", "moderate")
	k2 := Key("what is the deadline", "exams", "moderate")
	if k1 != k2 {
		t.Error("Key() not deterministic")
	}
	if len(k1) != 64 {
		t.Errorf("Key() length = %d, want 64 hex chars", len(k1))
	}

	variants := []string{
		Key("other question", "exams", "moderate"),
		Key("what is the deadline", "laws", "moderate"),
		Key("what is the deadline", "exams", "liberal"),
	}
	seen := map[string]bool{k1: true}
	for i, v := range variants {
		if seen[v] {
			t.Errorf("variant %d collides: %s", i, v)
		}
		seen[v] = true
	}
}

func TestQueryCache_ConcurrentAccess(t *testing.T) {
	c := New(50, time.Minute)
	done := make(chan struct{})

	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%60)
				c.Set(key, i)
				_, _ = c.Get(key)
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	if stats := c.Stats(); stats.Size > 50 {
		t.Errorf("Size = %d exceeds MaxSize 50", stats.Size)
	}
}
