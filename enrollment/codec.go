package enrollment

import (
	"encoding/json"
	"fmt"
	"time"
)

// envelopeRecord is the JSON wire form of an [Envelope] as stored in an
// event stream.
type envelopeRecord struct {
	EventID       string          `json:"event_id"`
	StudentID     string          `json:"student_id"`
	CourseID      string          `json:"course_id"`
	Term          string          `json:"term"`
	Kind          Kind            `json:"kind"`
	Version       uint64          `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CausationID   string          `json:"causation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// MarshalEnvelope encodes an envelope to its stream-record form.
func MarshalEnvelope(env *Envelope) ([]byte, error) {
	payload, err := json.Marshal(env.Payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelopeRecord{
		EventID:       env.EventID,
		StudentID:     env.EnrollmentID.StudentID,
		CourseID:      env.EnrollmentID.CourseID,
		Term:          env.EnrollmentID.Term.String(),
		Kind:          env.Kind(),
		Version:       env.Version,
		OccurredAt:    env.OccurredAt,
		CorrelationID: env.CorrelationID,
		CausationID:   env.CausationID,
		Payload:       payload,
	})
}

// UnmarshalEnvelope decodes an envelope from its stream-record form.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var rec envelopeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	id, err := NewID(rec.StudentID, rec.CourseID, rec.Term)
	if err != nil {
		return nil, fmt.Errorf("record is corrupt: %w", err)
	}

	payload, err := unmarshalPayload(rec.Kind, rec.Payload)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		EventID:       rec.EventID,
		EnrollmentID:  id,
		Version:       rec.Version,
		OccurredAt:    rec.OccurredAt,
		CorrelationID: rec.CorrelationID,
		CausationID:   rec.CausationID,
		Payload:       payload,
	}, nil
}

func unmarshalPayload(kind Kind, data []byte) (Payload, error) {
	switch kind {
	case KindRequested:
		var p Requested
		err := json.Unmarshal(data, &p)
		return p, err
	case KindApproved:
		var p Approved
		err := json.Unmarshal(data, &p)
		return p, err
	case KindCancelled:
		var p Cancelled
		err := json.Unmarshal(data, &p)
		return p, err
	case KindCompleted:
		var p Completed
		err := json.Unmarshal(data, &p)
		return p, err
	case KindFailed:
		var p Failed
		err := json.Unmarshal(data, &p)
		return p, err
	default:
		return nil, fmt.Errorf("record is corrupt: unrecognized event kind %q", kind)
	}
}
