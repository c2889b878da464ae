package memory

import (
	"context"
	"sync"

	"github.com/registrarkit/enroll/persistence/eventstream"
)

// SnapshotStore is an implementation of [eventstream.SnapshotStore] that
// keeps snapshots in memory.
//
// The zero-value is ready for use.
type SnapshotStore struct {
	m         sync.RWMutex
	snapshots map[string]eventstream.Snapshot
}

// WriteSnapshot implements [eventstream.SnapshotStore].
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, snap eventstream.Snapshot) error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.snapshots == nil {
		s.snapshots = map[string]eventstream.Snapshot{}
	}

	snap.State = append([]byte(nil), snap.State...)
	s.snapshots[snap.StreamID] = snap

	return ctx.Err()
}

// ReadSnapshot implements [eventstream.SnapshotStore].
func (s *SnapshotStore) ReadSnapshot(
	ctx context.Context,
	streamID string,
) (eventstream.Snapshot, bool, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	snap, ok := s.snapshots[streamID]
	if ok {
		snap.State = append([]byte(nil), snap.State...)
	}

	return snap, ok, ctx.Err()
}
