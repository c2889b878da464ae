package eventstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RunTests runs tests that confirm a stream store implementation behaves
// correctly.
func RunTests(
	t *testing.T,
	newStore func(t *testing.T) Store,
) {
	t.Run("func Append()", func(t *testing.T) {
		t.Run("it assigns contiguous versions starting at one", func(t *testing.T) {
			t.Parallel()

			ctx, store, stream := setup(t, newStore)

			records := [][]byte{
				[]byte("<record-1>"),
				[]byte("<record-2>"),
				[]byte("<record-3>"),
			}

			if err := store.Append(ctx, stream, records, 0); err != nil {
				t.Fatal(err)
			}

			actual, err := store.Read(ctx, stream, 1)
			if err != nil {
				t.Fatal(err)
			}

			var expect []Record
			for i, rec := range records {
				expect = append(expect, Record{
					Version: uint64(i + 1),
					Data:    rec,
				})
			}

			if diff := cmp.Diff(expect, actual); diff != "" {
				t.Fatalf("unexpected records (-want +got):\n%s", diff)
			}
		})

		t.Run("it continues versioning from the expected version", func(t *testing.T) {
			t.Parallel()

			ctx, store, stream := setup(t, newStore)

			if err := store.Append(ctx, stream, [][]byte{[]byte("<a>")}, 0); err != nil {
				t.Fatal(err)
			}

			if err := store.Append(ctx, stream, [][]byte{[]byte("<b>"), []byte("<c>")}, 1); err != nil {
				t.Fatal(err)
			}

			ver, err := store.CurrentVersion(ctx, stream)
			if err != nil {
				t.Fatal(err)
			}
			if ver != 3 {
				t.Fatalf("unexpected current version, want 3, got %d", ver)
			}
		})

		t.Run("it rejects a stale expected version and leaves the stream unchanged", func(t *testing.T) {
			t.Parallel()

			ctx, store, stream := setup(t, newStore)

			records := [][]byte{
				[]byte("<record-1>"),
				[]byte("<record-2>"),
				[]byte("<record-3>"),
			}

			if err := store.Append(ctx, stream, records, 0); err != nil {
				t.Fatal(err)
			}

			err := store.Append(ctx, stream, [][]byte{[]byte("<late>")}, 1)

			var conflict *ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("expected a conflict error, got %v", err)
			}
			if conflict.Expected != 1 {
				t.Fatalf("unexpected expected version, want 1, got %d", conflict.Expected)
			}
			if conflict.Actual != 3 {
				t.Fatalf("unexpected actual version, want 3, got %d", conflict.Actual)
			}
			if !errors.Is(err, ErrConflict) {
				t.Fatal("conflict error does not match the ErrConflict sentinel")
			}

			after, err := store.Read(ctx, stream, 1)
			if err != nil {
				t.Fatal(err)
			}
			if len(after) != len(records) {
				t.Fatalf("stream was modified by a rejected append, want %d records, got %d", len(records), len(after))
			}
		})

		t.Run("it rejects the entire batch on conflict", func(t *testing.T) {
			t.Parallel()

			ctx, store, stream := setup(t, newStore)

			if err := store.Append(ctx, stream, [][]byte{[]byte("<existing>")}, 0); err != nil {
				t.Fatal(err)
			}

			err := store.Append(
				ctx,
				stream,
				[][]byte{[]byte("<x>"), []byte("<y>"), []byte("<z>")},
				0,
			)
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("expected a conflict error, got %v", err)
			}

			ver, err := store.CurrentVersion(ctx, stream)
			if err != nil {
				t.Fatal(err)
			}
			if ver != 1 {
				t.Fatalf("partial batch was appended, want version 1, got %d", ver)
			}
		})

		t.Run("it allows exactly one of two racing writers to win", func(t *testing.T) {
			t.Parallel()

			ctx, store, stream := setup(t, newStore)

			if err := store.Append(ctx, stream, [][]byte{[]byte("<base>")}, 0); err != nil {
				t.Fatal(err)
			}

			const writers = 8

			var wins atomic.Int32
			g, gctx := errgroup.WithContext(ctx)

			for i := 0; i < writers; i++ {
				rec := []byte(fmt.Sprintf("<contender-%d>", i))

				g.Go(func() error {
					err := store.Append(gctx, stream, [][]byte{rec}, 1)
					if err == nil {
						wins.Add(1)
						return nil
					}
					if errors.Is(err, ErrConflict) {
						return nil
					}
					return err
				})
			}

			if err := g.Wait(); err != nil {
				t.Fatal(err)
			}

			if n := wins.Load(); n != 1 {
				t.Fatalf("expected exactly one writer to win, got %d", n)
			}

			ver, err := store.CurrentVersion(ctx, stream)
			if err != nil {
				t.Fatal(err)
			}
			if ver != 2 {
				t.Fatalf("unexpected current version, want 2, got %d", ver)
			}
		})
	})

	t.Run("func Read()", func(t *testing.T) {
		t.Run("it returns an empty slice for an unknown stream", func(t *testing.T) {
			t.Parallel()

			ctx, store, stream := setup(t, newStore)

			records, err := store.Read(ctx, stream, 1)
			if err != nil {
				t.Fatal(err)
			}
			if len(records) != 0 {
				t.Fatalf("expected no records, got %d", len(records))
			}
		})

		t.Run("it honors the from-version lower bound", func(t *testing.T) {
			t.Parallel()

			ctx, store, stream := setup(t, newStore)

			var records [][]byte
			for i := 0; i < 5; i++ {
				records = append(records, []byte(fmt.Sprintf("<record-%d>", i+1)))
			}

			if err := store.Append(ctx, stream, records, 0); err != nil {
				t.Fatal(err)
			}

			tail, err := store.Read(ctx, stream, 4)
			if err != nil {
				t.Fatal(err)
			}

			if len(tail) != 2 {
				t.Fatalf("unexpected record count, want 2, got %d", len(tail))
			}
			for i, rec := range tail {
				wantVer := uint64(4 + i)
				if rec.Version != wantVer {
					t.Fatalf("unexpected version at index %d, want %d, got %d", i, wantVer, rec.Version)
				}
				if !bytes.Equal(rec.Data, records[wantVer-1]) {
					t.Fatalf("unexpected record data at version %d", wantVer)
				}
			}
		})
	})

	t.Run("func CurrentVersion()", func(t *testing.T) {
		t.Run("it returns zero for an unknown stream", func(t *testing.T) {
			t.Parallel()

			ctx, store, stream := setup(t, newStore)

			ver, err := store.CurrentVersion(ctx, stream)
			if err != nil {
				t.Fatal(err)
			}
			if ver != 0 {
				t.Fatalf("unexpected version, want 0, got %d", ver)
			}
		})
	})

	t.Run("func Exists()", func(t *testing.T) {
		t.Run("it reflects whether the stream has records", func(t *testing.T) {
			t.Parallel()

			ctx, store, stream := setup(t, newStore)

			ok, err := store.Exists(ctx, stream)
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Fatal("stream reported as existing before any append")
			}

			if err := store.Append(ctx, stream, [][]byte{[]byte("<record>")}, 0); err != nil {
				t.Fatal(err)
			}

			ok, err = store.Exists(ctx, stream)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Fatal("stream reported as absent after an append")
			}
		})
	})
}

// RunSnapshotTests runs tests that confirm a snapshot store implementation
// behaves correctly.
func RunSnapshotTests(
	t *testing.T,
	newStore func(t *testing.T) SnapshotStore,
) {
	t.Run("func ReadSnapshot()", func(t *testing.T) {
		t.Run("it reports the absence of a snapshot", func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			t.Cleanup(cancel)

			store := newStore(t)

			_, ok, err := store.ReadSnapshot(ctx, uuid.NewString())
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Fatal("returned ok == true for a non-existent snapshot")
			}
		})

		t.Run("it returns the most recently written snapshot", func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			t.Cleanup(cancel)

			store := newStore(t)
			stream := uuid.NewString()

			stale := Snapshot{
				StreamID: stream,
				Version:  5,
				State:    []byte("<stale>"),
				TakenAt:  time.Now().Add(-time.Hour).UTC().Truncate(time.Second),
			}
			if err := store.WriteSnapshot(ctx, stale); err != nil {
				t.Fatal(err)
			}

			expect := Snapshot{
				StreamID: stream,
				Version:  10,
				State:    []byte("<fresh>"),
				TakenAt:  time.Now().UTC().Truncate(time.Second),
			}
			if err := store.WriteSnapshot(ctx, expect); err != nil {
				t.Fatal(err)
			}

			actual, ok, err := store.ReadSnapshot(ctx, stream)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Fatal("expected snapshot to exist")
			}

			if diff := cmp.Diff(expect, actual); diff != "" {
				t.Fatalf("unexpected snapshot (-want +got):\n%s", diff)
			}
		})
	})
}

func setup(
	t *testing.T,
	newStore func(t *testing.T) Store,
) (context.Context, Store, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	return ctx, newStore(t), uuid.NewString()
}
