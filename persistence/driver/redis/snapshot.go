// Package redis provides a snapshot store backed by Redis.
//
// Snapshots are disposable accelerations of stream reconstruction, so cache
// semantics are acceptable here; the event stream itself must live in a
// durable store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/registrarkit/enroll/persistence/eventstream"
)

// DefaultKeyPrefix is the key prefix used when [SnapshotStore.KeyPrefix] is
// empty.
const DefaultKeyPrefix = "enroll:snapshot:"

// SnapshotStore is an implementation of [eventstream.SnapshotStore] that
// keeps snapshots in Redis.
type SnapshotStore struct {
	// Client is the Redis client to use.
	Client redis.UniversalClient

	// KeyPrefix is prepended to stream IDs to form Redis keys. If it is
	// empty, DefaultKeyPrefix is used.
	KeyPrefix string

	// TTL is the expiry applied to snapshots. If it is non-positive,
	// snapshots do not expire.
	TTL time.Duration
}

type snapshotRecord struct {
	Version uint64    `json:"version"`
	State   []byte    `json:"state"`
	TakenAt time.Time `json:"taken_at"`
}

func (s *SnapshotStore) key(streamID string) string {
	prefix := s.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return prefix + streamID
}

// WriteSnapshot implements [eventstream.SnapshotStore].
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, snap eventstream.Snapshot) error {
	data, err := json.Marshal(snapshotRecord{
		Version: snap.Version,
		State:   snap.State,
		TakenAt: snap.TakenAt,
	})
	if err != nil {
		return err
	}

	return s.Client.Set(ctx, s.key(snap.StreamID), data, max(s.TTL, 0)).Err()
}

// ReadSnapshot implements [eventstream.SnapshotStore].
func (s *SnapshotStore) ReadSnapshot(
	ctx context.Context,
	streamID string,
) (eventstream.Snapshot, bool, error) {
	data, err := s.Client.Get(ctx, s.key(streamID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return eventstream.Snapshot{}, false, nil
	}
	if err != nil {
		return eventstream.Snapshot{}, false, err
	}

	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return eventstream.Snapshot{}, false, err
	}

	return eventstream.Snapshot{
		StreamID: streamID,
		Version:  rec.Version,
		State:    rec.State,
		TakenAt:  rec.TakenAt,
	}, true, nil
}
