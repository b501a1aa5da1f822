package notify

import (
	"context"
	"sync"
	"time"
)

// Ledger remembers which notification ids were already delivered.
// An id, once recorded, is never removed.
type Ledger interface {
	// Deliver records id as delivered at at. It reports false when id was
	// already recorded; the check and the insert are atomic.
	Deliver(ctx context.Context, id int64, at time.Time) (bool, error)
}

// MemoryLedger lives as long as the poller that owns it.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[int64]time.Time
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[int64]time.Time)}
}

func (l *MemoryLedger) Deliver(_ context.Context, id int64, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[id]; ok {
		return false, nil
	}
	l.seen[id] = at
	return true, nil
}

// Len returns the number of recorded ids.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
