package snapshot

import (
	"context"
	"sync"
)

// MemorySink keeps snapshots in process. It is safe for concurrent use.
type MemorySink struct {
	mu    sync.RWMutex
	keep  int
	byRun map[string][]*Snapshot
}

// NewMemorySink creates a memory sink holding at most keep snapshots per run, or
// all of them when keep is zero.
func NewMemorySink(keep int) *MemorySink {
	return &MemorySink{keep: keep, byRun: make(map[string][]*Snapshot)}
}

// Write stores snap, evicting the oldest snapshot of its run past the limit.
func (s *MemorySink) Write(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.byRun[snap.RunID], snap)
	if s.keep > 0 && len(list) > s.keep {
		list = list[len(list)-s.keep:]
	}
	s.byRun[snap.RunID] = list
	return nil
}

// Latest returns the newest snapshot of runID.
func (s *MemorySink) Latest(ctx context.Context, runID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.byRun[runID]
	if len(list) == 0 {
		return nil, nil
	}
	return list[len(list)-1], nil
}

// All returns the stored snapshots of runID, oldest first.
func (s *MemorySink) All(runID string) []*Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Snapshot(nil), s.byRun[runID]...)
}

// Close does nothing for the memory sink.
func (s *MemorySink) Close() error {
	return nil
}

// Ensure MemorySink implements Sink.
var _ Sink = (*MemorySink)(nil)
