package kv

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestMemoryStore_Expiry(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(clk.now)
	ctx := context.Background()

	if err := s.Set(ctx, "a", "1", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "b", "2", 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if v, ok, _ := s.Get(ctx, "a"); !ok || v != "1" {
		t.Fatalf("expected a=1, got %q %v", v, ok)
	}

	clk.t = clk.t.Add(time.Hour)
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("expected a to expire")
	}
	if v, ok, _ := s.Get(ctx, "b"); !ok || v != "2" {
		t.Fatalf("expected b to persist, got %q %v", v, ok)
	}

	_ = s.Del(ctx, "b")
	if _, ok, _ := s.Get(ctx, "b"); ok {
		t.Fatalf("expected b deleted")
	}
}

func TestUntilEndOfDay(t *testing.T) {
	now := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)
	if got := UntilEndOfDay(0)(now); got != 90*time.Minute {
		t.Fatalf("expected 90m, got %s", got)
	}
	if got := UntilEndOfDay(time.Hour)(now); got != 150*time.Minute {
		t.Fatalf("expected 150m, got %s", got)
	}
}

func TestDeviceKey(t *testing.T) {
	if got := DeviceKey("d1", "budget", "balance"); got != "device:d1:budget:balance" {
		t.Fatalf("unexpected key %q", got)
	}
}
