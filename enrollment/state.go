package enrollment

import (
	"encoding/json"
	"time"
)

// Status is the variant of an enrollment's lifecycle state.
type Status string

// The enrollment statuses. Requested and Approved are the only non-terminal
// statuses; see the transition graph in [ApplyEvent].
const (
	StatusRequested Status = "requested"
	StatusApproved  Status = "approved"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further events may be applied to an
// enrollment with this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Enrollment is the state of one enrollment aggregate.
//
// It is a derived, disposable projection of the aggregate's event stream,
// never the authority. The timestamp fields are populated according to the
// status; a cancelled enrollment that had been approved retains its approval
// fields.
type Enrollment struct {
	ID      ID     `json:"-"`
	Version uint64 `json:"version"`
	Status  Status `json:"status"`

	RequestedAt  time.Time `json:"requested_at"`
	ApprovedAt   time.Time `json:"approved_at,omitzero"`
	ApprovedBy   string    `json:"approved_by,omitempty"`
	CancelledAt  time.Time `json:"cancelled_at,omitzero"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	CompletedAt  time.Time `json:"completed_at,omitzero"`
	FailedAt     time.Time `json:"failed_at,omitzero"`
}

// snapshotState is the JSON form of an [Enrollment] as stored by a snapshot
// store. The identity is carried explicitly because the state's ID field is
// excluded from its own JSON form.
type snapshotState struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	Term      string `json:"term"`

	Enrollment
}

// MarshalState encodes an enrollment for storage as an opaque snapshot.
func MarshalState(e *Enrollment) ([]byte, error) {
	return json.Marshal(snapshotState{
		StudentID:  e.ID.StudentID,
		CourseID:   e.ID.CourseID,
		Term:       e.ID.Term.String(),
		Enrollment: *e,
	})
}

// UnmarshalState decodes an enrollment from its snapshot form.
func UnmarshalState(data []byte) (*Enrollment, error) {
	var s snapshotState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	id, err := NewID(s.StudentID, s.CourseID, s.Term)
	if err != nil {
		return nil, err
	}

	e := s.Enrollment
	e.ID = id

	return &e, nil
}
