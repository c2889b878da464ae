// Package memory provides in-memory implementations of the persistence
// contracts, suitable for testing and local development.
package memory

import (
	"context"
	"sync"

	"github.com/registrarkit/enroll/persistence/eventstream"
)

// StreamStore is an implementation of [eventstream.Store] that keeps records
// in memory.
//
// The zero-value is ready for use. Each stream's version check and append are
// performed while holding that stream's lock, so two writers observing the
// same expected version can never both succeed.
type StreamStore struct {
	streams sync.Map // map[string]*streamState
}

// streamState stores the underlying state of a single stream.
type streamState struct {
	sync.RWMutex

	Records [][]byte
}

func (s *StreamStore) stream(streamID string) *streamState {
	state, ok := s.streams.Load(streamID)
	if !ok {
		state, _ = s.streams.LoadOrStore(streamID, &streamState{})
	}

	return state.(*streamState)
}

// Append implements [eventstream.Store].
func (s *StreamStore) Append(
	ctx context.Context,
	streamID string,
	records [][]byte,
	expectedVersion uint64,
) error {
	state := s.stream(streamID)

	state.Lock()
	defer state.Unlock()

	actual := uint64(len(state.Records))
	if actual != expectedVersion {
		return &eventstream.ConflictError{
			StreamID: streamID,
			Expected: expectedVersion,
			Actual:   actual,
		}
	}

	for _, rec := range records {
		// Copy the record so that the caller cannot mutate stored data.
		state.Records = append(
			state.Records,
			append([]byte(nil), rec...),
		)
	}

	return ctx.Err()
}

// Read implements [eventstream.Store].
func (s *StreamStore) Read(
	ctx context.Context,
	streamID string,
	fromVersion uint64,
) ([]eventstream.Record, error) {
	state := s.stream(streamID)

	state.RLock()
	defer state.RUnlock()

	if fromVersion < 1 {
		fromVersion = 1
	}

	var records []eventstream.Record
	for i := int(fromVersion) - 1; i < len(state.Records); i++ {
		records = append(records, eventstream.Record{
			Version: uint64(i + 1),
			Data:    append([]byte(nil), state.Records[i]...),
		})
	}

	return records, ctx.Err()
}

// CurrentVersion implements [eventstream.Store].
func (s *StreamStore) CurrentVersion(ctx context.Context, streamID string) (uint64, error) {
	state := s.stream(streamID)

	state.RLock()
	defer state.RUnlock()

	return uint64(len(state.Records)), ctx.Err()
}

// Exists implements [eventstream.Store].
func (s *StreamStore) Exists(ctx context.Context, streamID string) (bool, error) {
	state := s.stream(streamID)

	state.RLock()
	defer state.RUnlock()

	return len(state.Records) > 0, ctx.Err()
}
