package telegram

import (
	"sync"
	"time"
)

// updateDedupe remembers recently seen update ids so a redelivered update is
// processed once. Entries expire after ttl and are pruned lazily.
type updateDedupe struct {
	mu      sync.Mutex
	entries map[int]time.Time
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

func newUpdateDedupe(ttl time.Duration, maxSize int) *updateDedupe {
	return &updateDedupe{
		entries: make(map[int]time.Time, 256),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// seen reports whether id was already recorded within the TTL window, and
// records it if not.
func (d *updateDedupe) seen(id int) bool {
	now := d.now()
	cutoff := now.Add(-d.ttl)

	d.mu.Lock()
	defer d.mu.Unlock()

	if ts, ok := d.entries[id]; ok && !ts.Before(cutoff) {
		return true
	}

	d.prune(cutoff)
	d.entries[id] = now
	return false
}

// prune drops expired ids, then the lowest ids while over maxSize.
// Update ids increase monotonically, so the lowest are the oldest.
// Must be called with d.mu held.
func (d *updateDedupe) prune(cutoff time.Time) {
	for id, ts := range d.entries {
		if ts.Before(cutoff) {
			delete(d.entries, id)
		}
	}

	for d.maxSize > 0 && len(d.entries) >= d.maxSize {
		oldest, first := 0, true
		for id := range d.entries {
			if first || id < oldest {
				oldest, first = id, false
			}
		}
		delete(d.entries, oldest)
	}
}

func (d *updateDedupe) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
