package enroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/registrarkit/enroll"
	"github.com/registrarkit/enroll/enrollment"
	"github.com/registrarkit/enroll/registrar"
)

type everyStudent struct{}

func (everyStudent) Exists(context.Context, string) (bool, error) {
	return true, nil
}

func (everyStudent) Status(context.Context, string) (registrar.StudentStatus, error) {
	return registrar.StudentActive, nil
}

type everyCourse struct{}

func (everyCourse) Exists(context.Context, string) (bool, error) {
	return true, nil
}

func (everyCourse) IsOffered(context.Context, string, enrollment.Term) (bool, error) {
	return true, nil
}

func (everyCourse) Capacity(context.Context, string, enrollment.Term) (registrar.Capacity, error) {
	return registrar.Capacity{Max: 30}, nil
}

func TestSystem(t *testing.T) {
	t.Run("it drives an enrollment through its full lifecycle", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

		sys := enroll.New(
			everyStudent{},
			everyCourse{},
			enroll.WithClock(func() time.Time { return now }),
		)

		if _, err := sys.Commands.Enroll(ctx, registrar.EnrollCommand{
			StudentID: "student-1",
			CourseID:  "course-1",
			Term:      "2026-fall",
		}); err != nil {
			t.Fatal(err)
		}

		if _, err := sys.Commands.Approve(ctx, registrar.ApproveCommand{
			StudentID:  "student-1",
			CourseID:   "course-1",
			Term:       "2026-fall",
			ApprovedBy: "registrar-1",
		}); err != nil {
			t.Fatal(err)
		}

		resp, err := sys.Commands.Complete(ctx, registrar.CompleteCommand{
			StudentID: "student-1",
			CourseID:  "course-1",
			Term:      "2026-fall",
		})
		if err != nil {
			t.Fatal(err)
		}

		if resp.Status != enrollment.StatusCompleted {
			t.Fatalf("unexpected status: got %s, want %s", resp.Status, enrollment.StatusCompleted)
		}
		if resp.Version != 3 {
			t.Fatalf("unexpected version: got %d, want 3", resp.Version)
		}

		found, err := sys.Queries.Get(ctx, registrar.GetQuery{
			StudentID: "student-1",
			CourseID:  "course-1",
			Term:      "2026-fall",
		})
		if err != nil {
			t.Fatal(err)
		}
		if found == nil || found.Status != enrollment.StatusCompleted {
			t.Fatalf("unexpected query result: %v", found)
		}

		history, err := sys.Repository.History(ctx, mustID(t))
		if err != nil {
			t.Fatal(err)
		}
		if len(history) != 3 {
			t.Fatalf("unexpected history length: got %d, want 3", len(history))
		}
	})
}

func mustID(t *testing.T) enrollment.ID {
	t.Helper()

	id, err := enrollment.NewID("student-1", "course-1", "2026-fall")
	if err != nil {
		t.Fatal(err)
	}

	return id
}
