package dedup

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryStoreSuppressesWithinTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(5 * time.Minute)

	ok, err := s.ShouldProcess(ctx, "msg-1")
	if err != nil || !ok {
		t.Fatalf("first sight should process, got ok=%v err=%v", ok, err)
	}
	if err := s.MarkProcessed(ctx, "msg-1"); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	ok, _ = s.ShouldProcess(ctx, "msg-1")
	if ok {
		t.Fatal("repeat within TTL should be suppressed")
	}

	// Unrelated identifier is unaffected.
	ok, _ = s.ShouldProcess(ctx, "msg-2")
	if !ok {
		t.Fatal("unseen identifier should process")
	}
}

func TestMemoryStoreExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(5 * time.Minute)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }

	_ = s.MarkProcessed(ctx, "msg-1")

	now = now.Add(4 * time.Minute)
	if ok, _ := s.ShouldProcess(ctx, "msg-1"); ok {
		t.Fatal("still inside TTL, should be suppressed")
	}

	now = now.Add(2 * time.Minute)
	ok, _ := s.ShouldProcess(ctx, "msg-1")
	if !ok {
		t.Fatal("after TTL elapses the identifier should process again")
	}
	if _, still := s.seen["msg-1"]; still {
		t.Fatal("expired entry should be evicted at lookup")
	}
}

func TestMemoryStorePrunesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(5 * time.Minute)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }

	for i := 0; i < pruneThreshold; i++ {
		_ = s.MarkProcessed(ctx, fmt.Sprintf("old-%d", i))
	}

	// All old entries expire; the next mark crosses the threshold and prunes.
	now = now.Add(6 * time.Minute)
	_ = s.MarkProcessed(ctx, "fresh")

	if len(s.seen) != 1 {
		t.Fatalf("expected prune to leave 1 entry, got %d", len(s.seen))
	}
	if _, ok := s.seen["fresh"]; !ok {
		t.Fatal("fresh entry should survive the prune")
	}
}
