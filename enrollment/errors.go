package enrollment

import (
	"fmt"

	"github.com/registrarkit/enroll/persistence/eventstream"
)

// ConflictError is the optimistic concurrency conflict reported by the
// event-stream store. The repository surfaces it unchanged; callers may
// retry by re-reading the aggregate and recomputing the command.
type ConflictError = eventstream.ConflictError

// ErrConflict matches [ConflictError] values via [errors.Is].
var ErrConflict = eventstream.ErrConflict

// Rule codes for the business constraints enforced by this package.
const (
	// RuleTermOutOfRange rejects enrollment requests for terms outside the
	// allowed window around the current date.
	RuleTermOutOfRange = "TERM_OUT_OF_RANGE"
)

// A ValidationError indicates that an input value is malformed. It is always
// a client error and is never retried automatically.
type ValidationError struct {
	// Field is the name of the offending input field.
	Field string

	// Value is the rejected value.
	Value string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// Code returns the stable error code carried by the error.
func (e ValidationError) Code() string {
	return "INVALID_COMMAND_FORMAT"
}

// A BusinessRuleError indicates that a named business constraint was
// violated. The rule name doubles as the stable error code; the context
// carries enough detail for the caller to explain the rejection.
type BusinessRuleError struct {
	// Rule is the code of the violated constraint.
	Rule string

	// Context describes the violation, keyed by detail name.
	Context map[string]any
}

func (e BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violated: %s %v", e.Rule, e.Context)
}

// Code returns the stable error code carried by the error.
func (e BusinessRuleError) Code() string {
	return e.Rule
}

// A NotFoundError indicates that a referenced entity does not exist.
type NotFoundError struct {
	// Entity is the kind of the missing entity, such as "student".
	Entity string

	// ID identifies the missing entity.
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Code returns the stable error code carried by the error.
func (e NotFoundError) Code() string {
	switch e.Entity {
	case "student":
		return "STUDENT_NOT_FOUND"
	case "course":
		return "COURSE_NOT_FOUND"
	case "enrollment":
		return "ENROLLMENT_NOT_FOUND"
	default:
		return "NOT_FOUND"
	}
}

// A TransitionError indicates that an event kind is not applicable to the
// aggregate's current status. The transition graph is closed: any pair
// outside it is rejected, never coerced.
type TransitionError struct {
	// From is the status the aggregate was in. It is empty if the event was
	// applied to an absent aggregate.
	From Status

	// Kind is the kind of the rejected event.
	Kind Kind
}

func (e TransitionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("event %s cannot create an enrollment", e.Kind)
	}

	return fmt.Sprintf("event %s is not applicable to status %s", e.Kind, e.From)
}

// Code returns the stable error code carried by the error.
func (e TransitionError) Code() string {
	return "INVALID_STATE_TRANSITION"
}

// A SequenceError indicates a malformed event stream: a version gap, a
// duplicate version, or a first event that is not the creation event.
//
// Reconstruction never repairs such a stream; a corrupted history must fail
// loudly rather than produce a plausible-looking but wrong state.
type SequenceError struct {
	// Expected is the version the next event was required to have.
	Expected uint64

	// Got is the version actually encountered.
	Got uint64

	// Reason qualifies the failure when the versions alone do not, such as a
	// non-creation first event.
	Reason string
}

func (e SequenceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid event sequence: %s", e.Reason)
	}

	return fmt.Sprintf("invalid event sequence: expected version %d, got %d", e.Expected, e.Got)
}

// Code returns the stable error code carried by the error.
func (e SequenceError) Code() string {
	return "INVALID_EVENT_SEQUENCE"
}
