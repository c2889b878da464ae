package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/registrarkit/enroll/persistence/eventstream"
	"go.uber.org/zap"
)

// DefaultSnapshotInterval is the number of events an enrollment may record
// before a new snapshot is taken, used when [Repository.SnapshotInterval] is
// zero.
const DefaultSnapshotInterval = 100

// A Repository binds enrollment identities to their event streams.
//
// It is the only component that touches storage on the aggregate's behalf;
// everything above it deals purely in state and events.
type Repository struct {
	// Streams is the event-stream store holding aggregate histories.
	Streams eventstream.Store

	// Snapshots is used to accelerate reconstruction.
	//
	// It may be nil, in which case every find replays the full event
	// history.
	Snapshots eventstream.SnapshotStore

	// SnapshotInterval is the number of events between snapshots. If it is
	// zero, DefaultSnapshotInterval is used.
	SnapshotInterval uint64

	// Logger is the target for messages about loading and saving. It may be
	// nil.
	Logger *zap.Logger
}

// Find loads an enrollment by identity.
//
// It returns (nil, nil) if the enrollment does not exist. Snapshot failures
// are never fatal: a stale, missing or unreadable snapshot degrades to a
// full replay of the event history.
func (r *Repository) Find(ctx context.Context, id ID) (*Enrollment, error) {
	streamID := id.StreamKey()

	e, fromVersion := r.fromSnapshot(ctx, id, streamID)

	records, err := r.Streams.Read(ctx, streamID, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("enrollment %s cannot be loaded: %w", id, err)
	}

	if e == nil {
		history, err := unmarshalHistory(records)
		if err != nil {
			return nil, fmt.Errorf("enrollment %s cannot be loaded: %w", id, err)
		}

		return Reconstruct(history)
	}

	for _, rec := range records {
		env, err := UnmarshalEnvelope(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("enrollment %s cannot be loaded: %w", id, err)
		}

		e, err = ApplyEvent(e, env)
		if err != nil {
			return nil, fmt.Errorf("enrollment %s cannot be loaded: %w", id, err)
		}
	}

	r.logger().Debug(
		"enrollment loaded from snapshot",
		zap.String("stream_id", streamID),
		zap.Uint64("snapshot_version", fromVersion-1),
		zap.Uint64("version", e.Version),
	)

	return e, nil
}

// fromSnapshot attempts to seed a load from the most recent snapshot. It
// returns a nil state and a from-version of 1 when no usable snapshot
// exists.
func (r *Repository) fromSnapshot(ctx context.Context, id ID, streamID string) (*Enrollment, uint64) {
	if r.Snapshots == nil {
		return nil, 1
	}

	snap, ok, err := r.Snapshots.ReadSnapshot(ctx, streamID)
	if err != nil {
		r.logger().Warn(
			"cannot read enrollment snapshot",
			zap.String("stream_id", streamID),
			zap.Error(err),
		)

		return nil, 1
	}
	if !ok {
		return nil, 1
	}

	e, err := UnmarshalState(snap.State)
	if err != nil {
		r.logger().Warn(
			"cannot decode enrollment snapshot",
			zap.String("stream_id", streamID),
			zap.Uint64("snapshot_version", snap.Version),
			zap.Error(err),
		)

		return nil, 1
	}

	return e, snap.Version + 1
}

// Save persists the event produced by a decision alongside the state it
// produced.
//
// The append's expected version is the aggregate version before the event
// was applied, so a concurrent writer that got in first causes a
// [*ConflictError], which is surfaced unchanged.
func (r *Repository) Save(ctx context.Context, e *Enrollment, env *Envelope) error {
	streamID := e.ID.StreamKey()

	rec, err := MarshalEnvelope(env)
	if err != nil {
		return fmt.Errorf("enrollment %s cannot be saved: %w", e.ID, err)
	}

	if err := r.Streams.Append(ctx, streamID, [][]byte{rec}, e.Version-1); err != nil {
		return err
	}

	r.logger().Debug(
		"enrollment event appended",
		zap.String("stream_id", streamID),
		zap.String("event_kind", string(env.Kind())),
		zap.Uint64("version", e.Version),
	)

	r.maybeSnapshot(ctx, e, streamID)

	return nil
}

// maybeSnapshot writes a snapshot if the aggregate's version has reached the
// snapshot interval. Failures are logged and discarded; snapshots are an
// acceleration, not a source of truth.
func (r *Repository) maybeSnapshot(ctx context.Context, e *Enrollment, streamID string) {
	if r.Snapshots == nil {
		return
	}

	interval := r.SnapshotInterval
	if interval == 0 {
		interval = DefaultSnapshotInterval
	}

	if e.Version%interval != 0 {
		return
	}

	state, err := MarshalState(e)
	if err != nil {
		r.logger().Warn(
			"cannot encode enrollment snapshot",
			zap.String("stream_id", streamID),
			zap.Uint64("version", e.Version),
			zap.Error(err),
		)

		return
	}

	if err := r.Snapshots.WriteSnapshot(ctx, eventstream.Snapshot{
		StreamID: streamID,
		Version:  e.Version,
		State:    state,
		TakenAt:  time.Now(),
	}); err != nil {
		r.logger().Warn(
			"cannot write enrollment snapshot",
			zap.String("stream_id", streamID),
			zap.Uint64("version", e.Version),
			zap.Error(err),
		)

		return
	}

	r.logger().Debug(
		"enrollment snapshot written",
		zap.String("stream_id", streamID),
		zap.Uint64("version", e.Version),
	)
}

// History returns the enrollment's full event history, for audit and
// debugging.
func (r *Repository) History(ctx context.Context, id ID) ([]*Envelope, error) {
	records, err := r.Streams.Read(ctx, id.StreamKey(), 1)
	if err != nil {
		return nil, err
	}

	return unmarshalHistory(records)
}

func (r *Repository) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}

	return r.Logger
}

func unmarshalHistory(records []eventstream.Record) ([]*Envelope, error) {
	var history []*Envelope
	for _, rec := range records {
		env, err := UnmarshalEnvelope(rec.Data)
		if err != nil {
			return nil, err
		}

		history = append(history, env)
	}

	return history, nil
}
