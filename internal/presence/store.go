package presence

import (
	"sync"
	"time"

	"github.com/network-analytics/internal/domain"
)

// Store keeps the latest snapshot per originating instance. Upsert is
// last-arrival-wins: an out-of-order delivery can replace a newer snapshot
// with an older one, which the protocol accepts rather than corrects. Writes
// are single-key replacements, so readers and the subscriber callback need no
// coordination beyond the lock.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]domain.InstanceSnapshot
}

// NewStore creates an empty snapshot store
func NewStore() *Store {
	return &Store{
		snapshots: make(map[string]domain.InstanceSnapshot),
	}
}

// Upsert replaces the stored snapshot for the originating instance
func (s *Store) Upsert(snap domain.InstanceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.InstanceID] = snap
}

// Sweep evicts snapshots older than ttl relative to now and returns how many
// were removed. A crashed or partitioned instance simply ages out here.
func (s *Store) Sweep(now time.Time, ttl time.Duration) int {
	expiry := now.Add(-ttl).Unix()
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, snap := range s.snapshots {
		if snap.TimeSent < expiry {
			delete(s.snapshots, id)
			evicted++
		}
	}
	return evicted
}

// SnapshotAll returns the live snapshots
func (s *Store) SnapshotAll() []domain.InstanceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.InstanceSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	return out
}

// Len returns the number of live instance entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
