package registrar_test

import (
	"testing"

	"github.com/registrarkit/enroll/enrollment"
	. "github.com/registrarkit/enroll/registrar"
)

func TestQueryHandlerGet(t *testing.T) {
	query := GetQuery{
		StudentID: "student-1",
		CourseID:  "course-1",
		Term:      "2026-fall",
	}

	t.Run("it returns nothing for an unknown enrollment", func(t *testing.T) {
		f := setup(t)
		q := NewQueryHandler(f.repo)

		resp, err := q.Get(f.ctx, query)
		if err != nil {
			t.Fatal(err)
		}
		if resp != nil {
			t.Fatalf("expected no response, got %v", resp)
		}
	})

	t.Run("it projects the current state", func(t *testing.T) {
		f := setup(t)
		q := NewQueryHandler(f.repo)

		if _, err := f.handler.Enroll(f.ctx, enrollCommand()); err != nil {
			t.Fatal(err)
		}

		resp, err := q.Get(f.ctx, query)
		if err != nil {
			t.Fatal(err)
		}

		if resp == nil {
			t.Fatal("expected a response")
		}
		if resp.Status != enrollment.StatusRequested {
			t.Fatalf("unexpected status: got %s", resp.Status)
		}
		if resp.StudentID != "student-1" || resp.CourseID != "course-1" || resp.Term != "2026-fall" {
			t.Fatalf("unexpected identity: %s/%s/%s", resp.StudentID, resp.CourseID, resp.Term)
		}
	})

	t.Run("it rejects a structurally invalid query", func(t *testing.T) {
		f := setup(t)
		q := NewQueryHandler(f.repo)

		_, err := q.Get(f.ctx, GetQuery{StudentID: "student-1"})
		expectCode(t, err, "INVALID_COMMAND_FORMAT")
	})
}

func TestQueryHandlerHistory(t *testing.T) {
	t.Run("it returns the ordered event history", func(t *testing.T) {
		f := setup(t)
		q := NewQueryHandler(f.repo)

		if _, err := f.handler.Enroll(f.ctx, enrollCommand()); err != nil {
			t.Fatal(err)
		}

		if _, err := f.handler.Cancel(f.ctx, CancelCommand{
			StudentID: "student-1",
			CourseID:  "course-1",
			Term:      "2026-fall",
			Reason:    "withdrew",
		}); err != nil {
			t.Fatal(err)
		}

		history, err := q.History(f.ctx, GetQuery{
			StudentID: "student-1",
			CourseID:  "course-1",
			Term:      "2026-fall",
		})
		if err != nil {
			t.Fatal(err)
		}

		if len(history) != 2 {
			t.Fatalf("unexpected history length: got %d, want 2", len(history))
		}
		if history[0].Kind() != enrollment.KindRequested {
			t.Fatalf("unexpected first kind: got %s", history[0].Kind())
		}
		if history[1].Kind() != enrollment.KindCancelled {
			t.Fatalf("unexpected second kind: got %s", history[1].Kind())
		}
	})
}
