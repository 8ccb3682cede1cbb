package credstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("get returns stored value", func(t *testing.T) {
		if err := store.Set(ctx, "k1", "v1", time.Minute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		val, err := store.Get(ctx, "k1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if val != "v1" {
			t.Fatalf("expected %q, got %q", "v1", val)
		}
	})

	t.Run("get of missing key returns ErrNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set overwrites existing value", func(t *testing.T) {
		if err := store.Set(ctx, "k1", "v2", time.Minute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		val, err := store.Get(ctx, "k1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if val != "v2" {
			t.Fatalf("expected %q, got %q", "v2", val)
		}
	})

	t.Run("delete removes key", func(t *testing.T) {
		if err := store.Delete(ctx, "k1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := store.Get(ctx, "k1")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "short", "v", 30*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Get(ctx, "short"); err != nil {
		t.Fatalf("value should exist before expiry: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	_, err := store.Get(ctx, "short")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestMemoryStore_Increment(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("counts from one", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			got, err := store.Increment(ctx, "ctr", time.Minute)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != want {
				t.Fatalf("expected %d, got %d", want, got)
			}
		}
	})

	t.Run("expired counter restarts at one", func(t *testing.T) {
		if _, err := store.Increment(ctx, "win", 30*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		time.Sleep(50 * time.Millisecond)

		got, err := store.Increment(ctx, "win", 30*time.Millisecond)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 1 {
			t.Fatalf("expected counter reset to 1, got %d", got)
		}
	})

	t.Run("increment does not extend the window", func(t *testing.T) {
		if _, err := store.Increment(ctx, "fixed", 60*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		time.Sleep(40 * time.Millisecond)
		if _, err := store.Increment(ctx, "fixed", 60*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		time.Sleep(40 * time.Millisecond)

		// 80ms after creation the window must have lapsed even though the
		// second increment happened 40ms ago.
		got, err := store.Increment(ctx, "fixed", 60*time.Millisecond)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 1 {
			t.Fatalf("expected fresh window, got counter %d", got)
		}
	})
}

func TestMemoryStore_TTL(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ttl, err := store.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl out of range: %s", ttl)
	}

	if _, err := store.TTL(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent key, got %v", err)
	}
}

func TestMemoryStore_ConcurrentIncrement(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.Increment(ctx, "parallel", time.Minute); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Increment(ctx, "parallel", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != goroutines+1 {
		t.Fatalf("expected %d after concurrent increments, got %d", goroutines+1, got)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Set(ctx, "k", "v", time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for cancelled context, got %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for cancelled context, got %v", err)
	}
}
