package enrollment

import "time"

// Kind discriminates the domain event types.
type Kind string

// The event kinds recorded by the enrollment aggregate.
const (
	KindRequested Kind = "enrollment.requested"
	KindApproved  Kind = "enrollment.approved"
	KindCancelled Kind = "enrollment.cancelled"
	KindCompleted Kind = "enrollment.completed"
	KindFailed    Kind = "enrollment.failed"
)

// A Payload is the kind-specific body of a domain event.
//
// The set of payloads is closed; each corresponds to exactly one [Kind].
type Payload interface {
	kind() Kind
}

// Requested is recorded when a student requests enrollment in a course
// offering. It is always the first event of a stream.
type Requested struct {
	RequestedAt time.Time `json:"requested_at"`
}

// Approved is recorded when a pending enrollment request is approved.
type Approved struct {
	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}

// Cancelled is recorded when an enrollment is cancelled, before or after
// approval.
type Cancelled struct {
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Completed is recorded when an approved enrollment runs to completion.
type Completed struct {
	CompletedAt time.Time `json:"completed_at"`
}

// Failed is recorded when an approved enrollment ends unsuccessfully.
type Failed struct {
	FailedAt time.Time `json:"failed_at"`
}

func (Requested) kind() Kind { return KindRequested }
func (Approved) kind() Kind  { return KindApproved }
func (Cancelled) kind() Kind { return KindCancelled }
func (Completed) kind() Kind { return KindCompleted }
func (Failed) kind() Kind    { return KindFailed }

// An Envelope is an immutable domain event together with the metadata shared
// by all event kinds. Envelopes are never mutated or deleted once appended
// to a stream.
type Envelope struct {
	// EventID uniquely identifies this event.
	EventID string

	// EnrollmentID is the identity of the aggregate that recorded the event.
	EnrollmentID ID

	// Version is the aggregate version this event produced. The first event
	// of a stream has version 1.
	Version uint64

	// OccurredAt is the time at which the event occurred.
	OccurredAt time.Time

	// CorrelationID and CausationID link the event to the request that
	// triggered it, for traceability. Either may be empty.
	CorrelationID string
	CausationID   string

	// Payload is the kind-specific event body.
	Payload Payload
}

// Kind returns the kind of the event carried by the envelope.
func (e *Envelope) Kind() Kind {
	return e.Payload.kind()
}
