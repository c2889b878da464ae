// Package registrar orchestrates enrollment commands and queries: it
// sequences validation, business-rule checks, the aggregate decision,
// persistence and event publication.
package registrar

import (
	"context"

	"github.com/registrarkit/enroll/enrollment"
)

// StudentStatus is a student's standing as reported by the student
// directory.
type StudentStatus string

// The student statuses. Only active students may enroll.
const (
	StudentActive    StudentStatus = "active"
	StudentInactive  StudentStatus = "inactive"
	StudentGraduated StudentStatus = "graduated"
	StudentWithdrawn StudentStatus = "withdrawn"
)

// A StudentDirectory answers read-only questions about students. It is an
// external collaborator; no implementation is provided by this module.
type StudentDirectory interface {
	// Exists reports whether a student is known to the directory.
	Exists(ctx context.Context, studentID string) (bool, error)

	// Status returns a student's standing.
	Status(ctx context.Context, studentID string) (StudentStatus, error)
}

// Capacity is a course offering's seat capacity for a term.
type Capacity struct {
	// Max is the seat limit.
	Max int

	// Enrolled is the number of seats already taken.
	Enrolled int
}

// A CourseCatalog answers read-only questions about course offerings. It is
// an external collaborator; no implementation is provided by this module.
type CourseCatalog interface {
	// Exists reports whether a course is known to the catalog.
	Exists(ctx context.Context, courseID string) (bool, error)

	// IsOffered reports whether a course is offered in the given term.
	IsOffered(ctx context.Context, courseID string, term enrollment.Term) (bool, error)

	// Capacity returns a course offering's seat capacity for a term.
	Capacity(ctx context.Context, courseID string, term enrollment.Term) (Capacity, error)
}

// An EventPublisher delivers accepted events to downstream consumers.
//
// Publication is best-effort: a failure to publish never rolls back a
// persisted state change.
type EventPublisher interface {
	Publish(ctx context.Context, events []*enrollment.Envelope) error
}

// A NotificationSink is notified of each accepted event, fire-and-forget.
type NotificationSink interface {
	Notify(ctx context.Context, event *enrollment.Envelope)
}
