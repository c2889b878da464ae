// Package postgres provides implementations of the persistence contracts
// that store data in a PostgreSQL database.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/registrarkit/enroll/persistence/eventstream"
)

// StreamStore is an implementation of [eventstream.Store] that persists
// records in a PostgreSQL table.
//
// The version check and the append are serialized by the primary key on
// (stream_id, version): a conditional insert either claims the version or
// reports a conflict, so no explicit locking is required.
type StreamStore struct {
	// DB is the PostgreSQL connection pool.
	DB *pgxpool.Pool
}

// Append implements [eventstream.Store].
func (s *StreamStore) Append(
	ctx context.Context,
	streamID string,
	records [][]byte,
	expectedVersion uint64,
) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i, rec := range records {
		res, err := tx.Exec(
			ctx,
			`INSERT INTO enroll.event_stream (
				stream_id,
				version,
				record
			) VALUES (
				$1, $2, $3
			) ON CONFLICT (stream_id, version) DO NOTHING`,
			streamID,
			expectedVersion+uint64(i)+1,
			rec,
		)
		if err != nil {
			return err
		}

		if res.RowsAffected() != 1 {
			actual, err := s.CurrentVersion(ctx, streamID)
			if err != nil {
				return err
			}

			return &eventstream.ConflictError{
				StreamID: streamID,
				Expected: expectedVersion,
				Actual:   actual,
			}
		}
	}

	// Versions are contiguous, so claiming the first version of the batch is
	// not enough: an append with an expected version above the current one
	// would otherwise leave a gap.
	if expectedVersion > 0 {
		var exists bool
		if err := tx.QueryRow(
			ctx,
			`SELECT EXISTS (
				SELECT 1
				FROM enroll.event_stream
				WHERE stream_id = $1
				AND version = $2
			)`,
			streamID,
			expectedVersion,
		).Scan(&exists); err != nil {
			return err
		}

		if !exists {
			actual, err := s.currentVersion(ctx, tx, streamID, expectedVersion)
			if err != nil {
				return err
			}

			return &eventstream.ConflictError{
				StreamID: streamID,
				Expected: expectedVersion,
				Actual:   actual,
			}
		}
	}

	return tx.Commit(ctx)
}

// currentVersion reports the stream version as seen by tx, ignoring the
// records inserted by tx itself.
func (s *StreamStore) currentVersion(
	ctx context.Context,
	tx pgx.Tx,
	streamID string,
	below uint64,
) (uint64, error) {
	var ver uint64
	err := tx.QueryRow(
		ctx,
		`SELECT COALESCE(MAX(version), 0)
		FROM enroll.event_stream
		WHERE stream_id = $1
		AND version < $2`,
		streamID,
		below,
	).Scan(&ver)

	return ver, err
}

// Read implements [eventstream.Store].
func (s *StreamStore) Read(
	ctx context.Context,
	streamID string,
	fromVersion uint64,
) ([]eventstream.Record, error) {
	rows, err := s.DB.Query(
		ctx,
		`SELECT
			version,
			record
		FROM enroll.event_stream
		WHERE stream_id = $1
		AND version >= $2
		ORDER BY version`,
		streamID,
		fromVersion,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []eventstream.Record
	for rows.Next() {
		var rec eventstream.Record
		if err := rows.Scan(&rec.Version, &rec.Data); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CurrentVersion implements [eventstream.Store].
func (s *StreamStore) CurrentVersion(ctx context.Context, streamID string) (uint64, error) {
	var ver uint64
	err := s.DB.QueryRow(
		ctx,
		`SELECT COALESCE(MAX(version), 0)
		FROM enroll.event_stream
		WHERE stream_id = $1`,
		streamID,
	).Scan(&ver)

	return ver, err
}

// Exists implements [eventstream.Store].
func (s *StreamStore) Exists(ctx context.Context, streamID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(
		ctx,
		`SELECT EXISTS (
			SELECT 1
			FROM enroll.event_stream
			WHERE stream_id = $1
		)`,
		streamID,
	).Scan(&exists)

	return exists, err
}

// CreateSchema creates the PostgreSQL schema used for storage of event
// streams and snapshots.
func CreateSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS enroll`); err != nil {
		return err
	}

	if _, err := db.Exec(
		ctx,
		`CREATE TABLE IF NOT EXISTS enroll.event_stream (
			stream_id TEXT NOT NULL,
			version   BIGINT NOT NULL,
			record    BYTEA NOT NULL,

			PRIMARY KEY (stream_id, version)
		)`,
	); err != nil {
		return err
	}

	if _, err := db.Exec(
		ctx,
		`CREATE TABLE IF NOT EXISTS enroll.snapshot (
			stream_id TEXT NOT NULL,
			version   BIGINT NOT NULL,
			state     BYTEA NOT NULL,
			taken_at  TIMESTAMPTZ NOT NULL,

			PRIMARY KEY (stream_id)
		)`,
	); err != nil {
		return err
	}

	return nil
}
