package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/registrarkit/enroll/persistence/eventstream"
)

// SnapshotStore is an implementation of [eventstream.SnapshotStore] that
// persists snapshots in a PostgreSQL table, keeping at most one snapshot per
// stream.
type SnapshotStore struct {
	// DB is the PostgreSQL connection pool.
	DB *pgxpool.Pool
}

// WriteSnapshot implements [eventstream.SnapshotStore].
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, snap eventstream.Snapshot) error {
	_, err := s.DB.Exec(
		ctx,
		`INSERT INTO enroll.snapshot (
			stream_id,
			version,
			state,
			taken_at
		) VALUES (
			$1, $2, $3, $4
		) ON CONFLICT (stream_id) DO UPDATE SET
			version = EXCLUDED.version,
			state = EXCLUDED.state,
			taken_at = EXCLUDED.taken_at`,
		snap.StreamID,
		snap.Version,
		snap.State,
		snap.TakenAt,
	)

	return err
}

// ReadSnapshot implements [eventstream.SnapshotStore].
func (s *SnapshotStore) ReadSnapshot(
	ctx context.Context,
	streamID string,
) (eventstream.Snapshot, bool, error) {
	snap := eventstream.Snapshot{
		StreamID: streamID,
	}

	err := s.DB.QueryRow(
		ctx,
		`SELECT
			version,
			state,
			taken_at
		FROM enroll.snapshot
		WHERE stream_id = $1`,
		streamID,
	).Scan(&snap.Version, &snap.State, &snap.TakenAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return eventstream.Snapshot{}, false, nil
	}
	if err != nil {
		return eventstream.Snapshot{}, false, err
	}

	return snap, true, nil
}
