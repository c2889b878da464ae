package enrollment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/registrarkit/enroll/enrollment"
	"github.com/registrarkit/enroll/internal/zapx"
	"github.com/registrarkit/enroll/persistence/driver/memory"
	"github.com/registrarkit/enroll/persistence/eventstream"
)

func TestRepository(t *testing.T) {
	setup := func() (context.Context, *Repository, *memory.SnapshotStore) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		t.Cleanup(cancel)

		snapshots := &memory.SnapshotStore{}

		return ctx, &Repository{
			Streams:   &memory.StreamStore{},
			Snapshots: snapshots,
			Logger:    zapx.NewTesting("repository"),
		}, snapshots
	}

	t.Run("func Find()", func(t *testing.T) {
		t.Run("it returns no state for an unknown identity", func(t *testing.T) {
			ctx, repo, _ := setup()

			e, err := repo.Find(ctx, testID(t))
			if err != nil {
				t.Fatal(err)
			}
			if e != nil {
				t.Fatalf("expected no state, got %v", e)
			}
		})

		t.Run("it loads the state produced by the saved events", func(t *testing.T) {
			ctx, repo, _ := setup()

			expect := saveTo(t, ctx, repo, StatusApproved)

			actual, err := repo.Find(ctx, expect.ID)
			if err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(expect, actual); diff != "" {
				t.Fatalf("loaded state differs (-want +got):\n%s", diff)
			}
		})

		t.Run("it seeds the load from a snapshot and applies the tail", func(t *testing.T) {
			ctx, repo, snapshots := setup()
			repo.SnapshotInterval = 2

			expect := saveTo(t, ctx, repo, StatusCompleted)

			if _, ok, err := snapshots.ReadSnapshot(ctx, expect.ID.StreamKey()); err != nil || !ok {
				t.Fatalf("expected a snapshot to have been written: ok=%v err=%v", ok, err)
			}

			actual, err := repo.Find(ctx, expect.ID)
			if err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(expect, actual); diff != "" {
				t.Fatalf("loaded state differs (-want +got):\n%s", diff)
			}
		})

		t.Run("it degrades to a full replay when the snapshot store fails", func(t *testing.T) {
			ctx, repo, _ := setup()
			repo.Snapshots = failingSnapshotStore{}
			repo.SnapshotInterval = 2

			expect := saveTo(t, ctx, repo, StatusCompleted)

			actual, err := repo.Find(ctx, expect.ID)
			if err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(expect, actual); diff != "" {
				t.Fatalf("loaded state differs (-want +got):\n%s", diff)
			}
		})
	})

	t.Run("func Save()", func(t *testing.T) {
		t.Run("it surfaces the conflict when a concurrent writer got in first", func(t *testing.T) {
			ctx, repo, _ := setup()

			e := saveTo(t, ctx, repo, StatusRequested)

			// Two decisions computed from the same loaded state. The first
			// write wins; the second must conflict.
			first, env1, err := Approve(e, "registrar-1", EventOptions{Now: testNow})
			if err != nil {
				t.Fatal(err)
			}
			second, env2, err := Cancel(e, "withdrew", EventOptions{Now: testNow})
			if err != nil {
				t.Fatal(err)
			}

			if err := repo.Save(ctx, first, env1); err != nil {
				t.Fatal(err)
			}

			err = repo.Save(ctx, second, env2)
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("expected a conflict, got %v", err)
			}

			var conflict *ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("expected a conflict error, got %v", err)
			}
			if conflict.Expected != 1 || conflict.Actual != 2 {
				t.Fatalf("conflict names the wrong versions: %v", conflict)
			}

			actual, err := repo.Find(ctx, e.ID)
			if err != nil {
				t.Fatal(err)
			}
			if actual.Status != StatusApproved {
				t.Fatalf("the losing write modified the stream: status is %s", actual.Status)
			}
		})

		t.Run("it snapshots at the configured interval", func(t *testing.T) {
			ctx, repo, snapshots := setup()
			repo.SnapshotInterval = 2

			e := saveTo(t, ctx, repo, StatusApproved)

			snap, ok, err := snapshots.ReadSnapshot(ctx, e.ID.StreamKey())
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Fatal("expected a snapshot to have been written")
			}
			if snap.Version != 2 {
				t.Fatalf("unexpected snapshot version: got %d, want 2", snap.Version)
			}

			state, err := UnmarshalState(snap.State)
			if err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(e, state); diff != "" {
				t.Fatalf("snapshotted state differs (-want +got):\n%s", diff)
			}
		})

		t.Run("it does not snapshot between intervals", func(t *testing.T) {
			ctx, repo, snapshots := setup()
			repo.SnapshotInterval = 5

			e := saveTo(t, ctx, repo, StatusApproved)

			_, ok, err := snapshots.ReadSnapshot(ctx, e.ID.StreamKey())
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Fatal("a snapshot was written before the interval was reached")
			}
		})

		t.Run("it tolerates snapshot write failures", func(t *testing.T) {
			ctx, repo, _ := setup()
			repo.Snapshots = failingSnapshotStore{}
			repo.SnapshotInterval = 1

			e := saveTo(t, ctx, repo, StatusRequested)

			actual, err := repo.Find(ctx, e.ID)
			if err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(e, actual); diff != "" {
				t.Fatalf("loaded state differs (-want +got):\n%s", diff)
			}
		})
	})

	t.Run("func History()", func(t *testing.T) {
		t.Run("it returns the full ordered event history", func(t *testing.T) {
			ctx, repo, _ := setup()
			repo.SnapshotInterval = 2

			e := saveTo(t, ctx, repo, StatusCompleted)

			history, err := repo.History(ctx, e.ID)
			if err != nil {
				t.Fatal(err)
			}

			if len(history) != 3 {
				t.Fatalf("unexpected history length: got %d, want 3", len(history))
			}

			for i, env := range history {
				if env.Version != uint64(i+1) {
					t.Fatalf("unexpected version at index %d: got %d", i, env.Version)
				}
			}

			if history[0].Kind() != KindRequested {
				t.Fatalf("unexpected first event kind: got %s", history[0].Kind())
			}
		})
	})
}

// saveTo drives an enrollment to the given status, saving each event through
// the repository as a real caller would.
func saveTo(
	t *testing.T,
	ctx context.Context,
	repo *Repository,
	status Status,
) *Enrollment {
	t.Helper()

	e, history := buildTo(t, status)

	var prior *Enrollment
	for _, env := range history {
		next, err := ApplyEvent(prior, env)
		if err != nil {
			t.Fatal(err)
		}

		if err := repo.Save(ctx, next, env); err != nil {
			t.Fatal(err)
		}

		prior = next
	}

	return e
}

// failingSnapshotStore fails every operation, for exercising the repository's
// tolerance of snapshot outages.
type failingSnapshotStore struct{}

func (failingSnapshotStore) WriteSnapshot(context.Context, eventstream.Snapshot) error {
	return errors.New("snapshot store is down")
}

func (failingSnapshotStore) ReadSnapshot(
	context.Context,
	string,
) (eventstream.Snapshot, bool, error) {
	return eventstream.Snapshot{}, false, errors.New("snapshot store is down")
}
