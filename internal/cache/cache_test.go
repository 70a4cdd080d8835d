package cache

import (
	"context"
	"testing"
	"time"
)

func TestGetOrLoad_CachesUntilInvalidated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	loads := 0
	load := func(ctx context.Context) ([]string, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrLoad(ctx, s, KeyAgents, time.Minute, load)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("unexpected value %v", got)
		}
	}
	if loads != 1 {
		t.Fatalf("expected 1 load, got %d", loads)
	}

	if err := Invalidate(ctx, s); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := GetOrLoad(ctx, s, KeyAgents, time.Minute, load); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loads != 2 {
		t.Fatalf("expected reload after invalidation, got %d loads", loads)
	}
}

func TestMemoryStore_Expires(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewMemoryStore()
	s.clock = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"), time.Minute)
	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestGetOrLoad_NilStore(t *testing.T) {
	got, err := GetOrLoad(context.Background(), nil, "k", time.Minute, func(ctx context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Fatalf("expected passthrough, got %v %v", got, err)
	}
}
