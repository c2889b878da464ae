package memory_test

import (
	"testing"

	. "github.com/registrarkit/enroll/persistence/driver/memory"
	"github.com/registrarkit/enroll/persistence/eventstream"
)

func TestStreamStore(t *testing.T) {
	eventstream.RunTests(
		t,
		func(t *testing.T) eventstream.Store {
			return &StreamStore{}
		},
	)
}

func TestSnapshotStore(t *testing.T) {
	eventstream.RunSnapshotTests(
		t,
		func(t *testing.T) eventstream.SnapshotStore {
			return &SnapshotStore{}
		},
	)
}
