package enrollment_test

import (
	"errors"
	"testing"

	. "github.com/registrarkit/enroll/enrollment"
)

func TestParseTerm(t *testing.T) {
	t.Run("it parses a well-formed term", func(t *testing.T) {
		term, err := ParseTerm("2026-fall")
		if err != nil {
			t.Fatal(err)
		}

		if term.Year != 2026 {
			t.Fatalf("unexpected year: got %d, want 2026", term.Year)
		}
		if term.Season != Fall {
			t.Fatalf("unexpected season: got %s, want %s", term.Season, Fall)
		}
		if term.String() != "2026-fall" {
			t.Fatalf("unexpected string form: got %s", term)
		}
	})

	t.Run("it rejects malformed terms", func(t *testing.T) {
		cases := []string{
			"",
			"2026",
			"fall",
			"fall-2026",
			"2026-monsoon",
			"0-spring",
			"-3-spring",
			"twenty-spring",
		}

		for _, s := range cases {
			t.Run(s, func(t *testing.T) {
				_, err := ParseTerm(s)

				var v ValidationError
				if !errors.As(err, &v) {
					t.Fatalf("expected a validation error, got %v", err)
				}
				if v.Field != "term" {
					t.Fatalf("unexpected field: got %s, want term", v.Field)
				}
			})
		}
	})
}

func TestNewID(t *testing.T) {
	t.Run("it builds the identity triple", func(t *testing.T) {
		id, err := NewID("student-1", "course-1", "2026-spring")
		if err != nil {
			t.Fatal(err)
		}

		if id.String() != "student-1/course-1/2026-spring" {
			t.Fatalf("unexpected string form: got %s", id)
		}
	})

	t.Run("it rejects blank components", func(t *testing.T) {
		cases := map[string]struct {
			student, course, term string
			field                 string
		}{
			"blank student": {"", "course-1", "2026-spring", "student_id"},
			"blank course":  {"student-1", "  ", "2026-spring", "course_id"},
			"blank term":    {"student-1", "course-1", "", "term"},
		}

		for name, c := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := NewID(c.student, c.course, c.term)

				var v ValidationError
				if !errors.As(err, &v) {
					t.Fatalf("expected a validation error, got %v", err)
				}
				if v.Field != c.field {
					t.Fatalf("unexpected field: got %s, want %s", v.Field, c.field)
				}
			})
		}
	})
}

func TestStreamKey(t *testing.T) {
	t.Run("it is deterministic", func(t *testing.T) {
		a, err := NewID("student-1", "course-1", "2026-spring")
		if err != nil {
			t.Fatal(err)
		}

		b, err := NewID("student-1", "course-1", "2026-spring")
		if err != nil {
			t.Fatal(err)
		}

		if a.StreamKey() != b.StreamKey() {
			t.Fatal("equal identities produced different stream keys")
		}
	})

	t.Run("it is collision-free across ambiguous components", func(t *testing.T) {
		// Naive concatenation would map both of these to the same key.
		a, err := NewID("s/c", "x", "2026-spring")
		if err != nil {
			t.Fatal(err)
		}

		b, err := NewID("s", "c/x", "2026-spring")
		if err != nil {
			t.Fatal(err)
		}

		if a.StreamKey() == b.StreamKey() {
			t.Fatalf("distinct identities share the stream key %q", a.StreamKey())
		}
	})
}
