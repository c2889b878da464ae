package enrollment

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTermWindowYears is the number of years either side of the current
// date within which an enrollment request's term must fall, used when
// [RequestOptions.TermWindowYears] is zero.
const DefaultTermWindowYears = 1

// EventOptions carries the metadata shared by all decision functions.
type EventOptions struct {
	// Now is the decision time. The zero value means time.Now().
	Now time.Time

	// CorrelationID and CausationID are propagated onto the produced event.
	CorrelationID string
	CausationID   string
}

func (o EventOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}

	return o.Now
}

// RequestOptions configures the creation of an enrollment.
type RequestOptions struct {
	EventOptions

	// TermWindowYears overrides DefaultTermWindowYears when positive.
	TermWindowYears int
}

// Request decides the creation of an enrollment.
//
// The state and its creation event are produced by the same call so that the
// two can never drift apart. The returned state has version 1.
//
// The identity must already be well-formed; business constraints are checked
// here: the term must fall within the allowed window of years around the
// decision time.
func Request(id ID, opts RequestOptions) (*Enrollment, *Envelope, error) {
	if strings.TrimSpace(id.StudentID) == "" {
		return nil, nil, ValidationError{Field: "student_id", Value: id.StudentID}
	}
	if strings.TrimSpace(id.CourseID) == "" {
		return nil, nil, ValidationError{Field: "course_id", Value: id.CourseID}
	}
	if id.Term.IsZero() {
		return nil, nil, ValidationError{Field: "term", Value: id.Term.String()}
	}

	now := opts.now()

	window := opts.TermWindowYears
	if window <= 0 {
		window = DefaultTermWindowYears
	}

	if id.Term.Year < now.Year()-window || id.Term.Year > now.Year()+window {
		return nil, nil, BusinessRuleError{
			Rule: RuleTermOutOfRange,
			Context: map[string]any{
				"term":         id.Term.String(),
				"window_years": window,
				"current_year": now.Year(),
			},
		}
	}

	return decide(
		nil,
		id,
		Requested{RequestedAt: now},
		opts.EventOptions,
	)
}

// Approve decides the approval of a pending enrollment request.
func Approve(e *Enrollment, approvedBy string, opts EventOptions) (*Enrollment, *Envelope, error) {
	if strings.TrimSpace(approvedBy) == "" {
		return nil, nil, ValidationError{Field: "approved_by", Value: approvedBy}
	}

	return decide(
		e,
		e.ID,
		Approved{
			ApprovedBy: approvedBy,
			ApprovedAt: opts.now(),
		},
		opts,
	)
}

// Cancel decides the cancellation of an enrollment, before or after
// approval.
func Cancel(e *Enrollment, reason string, opts EventOptions) (*Enrollment, *Envelope, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, nil, ValidationError{Field: "reason", Value: reason}
	}

	return decide(
		e,
		e.ID,
		Cancelled{
			Reason:      reason,
			CancelledAt: opts.now(),
		},
		opts,
	)
}

// Complete decides the successful completion of an approved enrollment.
func Complete(e *Enrollment, opts EventOptions) (*Enrollment, *Envelope, error) {
	return decide(
		e,
		e.ID,
		Completed{CompletedAt: opts.now()},
		opts,
	)
}

// Fail decides the unsuccessful end of an approved enrollment.
func Fail(e *Enrollment, opts EventOptions) (*Enrollment, *Envelope, error) {
	return decide(
		e,
		e.ID,
		Failed{FailedAt: opts.now()},
		opts,
	)
}

// decide wraps a payload in an envelope versioned for the current state,
// then applies it, returning the new state alongside the event.
func decide(
	e *Enrollment,
	id ID,
	payload Payload,
	opts EventOptions,
) (*Enrollment, *Envelope, error) {
	var version uint64 = 1
	if e != nil {
		version = e.Version + 1
	}

	env := &Envelope{
		EventID:       uuid.NewString(),
		EnrollmentID:  id,
		Version:       version,
		OccurredAt:    opts.now(),
		CorrelationID: opts.CorrelationID,
		CausationID:   opts.CausationID,
		Payload:       payload,
	}

	next, err := ApplyEvent(e, env)
	if err != nil {
		return nil, nil, err
	}

	return next, env, nil
}

// ApplyEvent applies a single event to the current state, producing the next
// state. It is a pure, total function over every (status, kind) pair.
//
// It returns a [TransitionError] for any pair outside the transition graph:
//
//	(none)    → Requested
//	Requested → Approved | Cancelled
//	Approved  → Cancelled | Completed | Failed
//
// and a [SequenceError] if the event's version is not exactly one more than
// the current version (or not 1 when there is no current state).
func ApplyEvent(current *Enrollment, env *Envelope) (*Enrollment, error) {
	if current == nil {
		if env.Version != 1 {
			return nil, SequenceError{Expected: 1, Got: env.Version}
		}

		p, ok := env.Payload.(Requested)
		if !ok {
			return nil, TransitionError{Kind: env.Kind()}
		}

		return &Enrollment{
			ID:          env.EnrollmentID,
			Version:     1,
			Status:      StatusRequested,
			RequestedAt: p.RequestedAt,
		}, nil
	}

	if env.Version != current.Version+1 {
		return nil, SequenceError{Expected: current.Version + 1, Got: env.Version}
	}

	next := *current
	next.Version = env.Version

	switch p := env.Payload.(type) {
	case Approved:
		if current.Status != StatusRequested {
			return nil, TransitionError{From: current.Status, Kind: env.Kind()}
		}
		next.Status = StatusApproved
		next.ApprovedAt = p.ApprovedAt
		next.ApprovedBy = p.ApprovedBy

	case Cancelled:
		if current.Status != StatusRequested && current.Status != StatusApproved {
			return nil, TransitionError{From: current.Status, Kind: env.Kind()}
		}
		next.Status = StatusCancelled
		next.CancelledAt = p.CancelledAt
		next.CancelReason = p.Reason

	case Completed:
		if current.Status != StatusApproved {
			return nil, TransitionError{From: current.Status, Kind: env.Kind()}
		}
		next.Status = StatusCompleted
		next.CompletedAt = p.CompletedAt

	case Failed:
		if current.Status != StatusApproved {
			return nil, TransitionError{From: current.Status, Kind: env.Kind()}
		}
		next.Status = StatusFailed
		next.FailedAt = p.FailedAt

	case Requested:
		return nil, TransitionError{From: current.Status, Kind: env.Kind()}

	default:
		return nil, TransitionError{From: current.Status, Kind: env.Kind()}
	}

	return &next, nil
}

// Reconstruct folds an ordered event history into the state it produces.
//
// It returns (nil, nil) for an empty history. The input is sorted by version
// as a defense in depth; callers are expected to provide sorted input
// already. A version gap, a duplicate version, or a first event that is not
// the creation event is a hard [SequenceError]; a malformed stream is never
// silently repaired.
func Reconstruct(history []*Envelope) (*Enrollment, error) {
	if len(history) == 0 {
		return nil, nil
	}

	sorted := slices.Clone(history)
	slices.SortFunc(sorted, func(a, b *Envelope) int {
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		default:
			return 0
		}
	})

	if sorted[0].Version != 1 {
		return nil, SequenceError{Expected: 1, Got: sorted[0].Version}
	}

	if sorted[0].Kind() != KindRequested {
		return nil, SequenceError{
			Expected: 1,
			Got:      1,
			Reason:   "first event is not the creation event",
		}
	}

	var e *Enrollment
	for _, env := range sorted {
		var err error
		e, err = ApplyEvent(e, env)
		if err != nil {
			return nil, err
		}
	}

	return e, nil
}
