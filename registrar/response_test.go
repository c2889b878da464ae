package registrar_test

import (
	"errors"
	"testing"

	"github.com/registrarkit/enroll/enrollment"
	. "github.com/registrarkit/enroll/registrar"
)

func TestNewErrorResponse(t *testing.T) {
	cases := map[string]struct {
		err  error
		kind string
		code string
	}{
		"validation": {
			err:  enrollment.ValidationError{Field: "term", Value: "garbage"},
			kind: "validation",
			code: "INVALID_COMMAND_FORMAT",
		},
		"business rule": {
			err:  enrollment.BusinessRuleError{Rule: RuleCapacityExceeded},
			kind: "business_rule",
			code: RuleCapacityExceeded,
		},
		"not found": {
			err:  enrollment.NotFoundError{Entity: "student", ID: "student-1"},
			kind: "not_found",
			code: "STUDENT_NOT_FOUND",
		},
		"concurrency": {
			err:  &enrollment.ConflictError{StreamID: "s", Expected: 1, Actual: 3},
			kind: "concurrency",
			code: "CONCURRENCY_CONFLICT",
		},
		"internal": {
			err:  errors.New("the database is on fire"),
			kind: "internal",
			code: "INTERNAL",
		},
	}

	for name, c := range cases {
		t.Run("it maps a "+name+" error", func(t *testing.T) {
			resp := NewErrorResponse(c.err)

			if resp.Kind != c.kind {
				t.Fatalf("unexpected kind: got %s, want %s", resp.Kind, c.kind)
			}
			if resp.Code != c.code {
				t.Fatalf("unexpected code: got %s, want %s", resp.Code, c.code)
			}
			if resp.Message == "" {
				t.Fatal("response carries no message")
			}
			if resp.Timestamp.IsZero() {
				t.Fatal("response carries no timestamp")
			}
		})
	}

	t.Run("it carries the conflicting versions", func(t *testing.T) {
		resp := NewErrorResponse(&enrollment.ConflictError{StreamID: "s", Expected: 1, Actual: 3})

		if resp.Details["expected_version"] != uint64(1) {
			t.Fatalf("unexpected expected version: got %v", resp.Details["expected_version"])
		}
		if resp.Details["actual_version"] != uint64(3) {
			t.Fatalf("unexpected actual version: got %v", resp.Details["actual_version"])
		}
	})
}
