package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/registrarkit/enroll/persistence/driver/postgres"
	"github.com/registrarkit/enroll/persistence/eventstream"
)

// openPool connects to the database identified by ENROLL_POSTGRES_DSN, or
// skips the test if the variable is not set.
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("ENROLL_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set ENROLL_POSTGRES_DSN to run this test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if err := CreateSchema(ctx, pool); err != nil {
		t.Fatal(err)
	}

	return pool
}

func TestStreamStore(t *testing.T) {
	eventstream.RunTests(
		t,
		func(t *testing.T) eventstream.Store {
			return &StreamStore{
				DB: openPool(t),
			}
		},
	)
}

func TestSnapshotStore(t *testing.T) {
	eventstream.RunSnapshotTests(
		t,
		func(t *testing.T) eventstream.SnapshotStore {
			return &SnapshotStore{
				DB: openPool(t),
			}
		},
	)
}
