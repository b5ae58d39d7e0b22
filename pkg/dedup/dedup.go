package dedup

import (
	"context"
	"sync"
	"time"
)

// Store suppresses reprocessing of a message identifier seen within a
// trailing time window. Callers check ShouldProcess first and call
// MarkProcessed once they commit to handling the message.
//
// Deduplication is best-effort idempotence only: the in-memory
// implementation does not survive a process restart.
type Store interface {
	ShouldProcess(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

const (
	// DefaultTTL is the window within which a repeated identifier is suppressed.
	DefaultTTL = 5 * time.Minute

	// pruneThreshold triggers a scan-and-evict pass to bound memory.
	// Correctness relies solely on the TTL check at lookup time.
	pruneThreshold = 100
)

// MemoryStore keeps identifier -> first-seen timestamps in a map.
type MemoryStore struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewMemoryStore creates an in-memory store. A ttl of zero uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (s *MemoryStore) ShouldProcess(_ context.Context, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	firstSeen, ok := s.seen[messageID]
	if ok {
		if now.Sub(firstSeen) < s.ttl {
			return false, nil
		}
		// Expired entry: evict and report not seen.
		delete(s.seen, messageID)
	}
	return true, nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	s.seen[messageID] = now

	if len(s.seen) > pruneThreshold {
		for id, ts := range s.seen {
			if now.Sub(ts) >= s.ttl {
				delete(s.seen, id)
			}
		}
	}
	return nil
}
