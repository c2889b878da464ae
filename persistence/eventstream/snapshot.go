package eventstream

import (
	"context"
	"time"
)

// Snapshot is an opaque capture of an aggregate's state as at a specific
// stream version.
//
// Snapshots only ever accelerate reconstruction. The stream remains the
// source of truth; a snapshot can be discarded at any time without loss.
type Snapshot struct {
	// StreamID is the stream the snapshot belongs to.
	StreamID string

	// Version is the version of the last record reflected in the state.
	Version uint64

	// State is the encoded aggregate state.
	State []byte

	// TakenAt is the time at which the snapshot was captured.
	TakenAt time.Time
}

// A SnapshotStore persists at most one snapshot per stream.
type SnapshotStore interface {
	// WriteSnapshot saves a snapshot, replacing any existing snapshot of the
	// same stream.
	WriteSnapshot(ctx context.Context, snap Snapshot) error

	// ReadSnapshot returns the most recent snapshot of a stream.
	//
	// ok is false if no snapshot of the stream exists.
	ReadSnapshot(ctx context.Context, streamID string) (snap Snapshot, ok bool, err error)
}
