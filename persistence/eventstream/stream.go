// Package eventstream defines the contract for append-only, per-stream event
// storage with optimistic concurrency control.
package eventstream

import (
	"context"
	"errors"
	"fmt"
)

// Record is a single entry within a stream.
//
// The data is an opaque, encoded domain event. The store never inspects it.
type Record struct {
	// Version is the position of the record within its stream. The first
	// record of a stream is always at version 1.
	Version uint64

	// Data is the encoded event.
	Data []byte
}

// ErrConflict is the sentinel matched by [ConflictError] values, allowing
// callers to test for optimistic concurrency conflicts with [errors.Is]
// without inspecting the version numbers.
var ErrConflict = errors.New("optimistic concurrency conflict")

// ConflictError indicates that an append was rejected because the stream's
// actual version did not match the version the writer expected.
//
// It is safe to retry the operation by re-reading the stream and recomputing
// the change; the store itself never retries.
type ConflictError struct {
	// StreamID is the stream the append was made against.
	StreamID string

	// Expected is the version the writer expected the stream to be at.
	Expected uint64

	// Actual is the version the stream was actually at.
	Actual uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"optimistic concurrency conflict on stream %q: expected version %d, actual version %d",
		e.StreamID,
		e.Expected,
		e.Actual,
	)
}

// Is makes [errors.Is] report true for [ErrConflict].
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// A Store is an append-only log of event records, partitioned into streams.
//
// Streams are fully independent of one another: operations on different
// stream IDs require no coordination. Within one stream, Append is the sole
// mutation point and implementations must treat the version comparison and
// the write as a single atomic unit, via a per-stream lock or a conditional
// write in the backing store.
type Store interface {
	// Append adds records to the end of a stream.
	//
	// expectedVersion must equal the stream's current version, which is zero
	// for a stream that has never been appended to. Otherwise no records are
	// appended and a [*ConflictError] is returned. The append is
	// all-or-nothing for the batch.
	//
	// Each record is assigned the version expectedVersion+i+1, where i is
	// its index within records.
	Append(ctx context.Context, streamID string, records [][]byte, expectedVersion uint64) error

	// Read returns the records of a stream with a version greater than or
	// equal to fromVersion, in ascending version order.
	//
	// It returns an empty slice if the stream does not exist.
	Read(ctx context.Context, streamID string, fromVersion uint64) ([]Record, error)

	// CurrentVersion returns the version of the most recent record in a
	// stream, or zero if the stream has never been appended to.
	CurrentVersion(ctx context.Context, streamID string) (uint64, error)

	// Exists returns true if the stream has at least one record.
	Exists(ctx context.Context, streamID string) (bool, error)
}
