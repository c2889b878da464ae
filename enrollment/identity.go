// Package enrollment implements the event-sourced enrollment aggregate: a
// student's registration in a course offering for a specific academic term.
//
// The aggregate's state is never stored directly. It is reconstructed by
// folding the ordered events of its stream, and mutated exclusively through
// the pure decision functions in this package.
package enrollment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/registrarkit/enroll/internal/streamkey"
)

// Season is one of the four academic term seasons.
type Season string

// The supported seasons, in academic-year order.
const (
	Spring Season = "spring"
	Summer Season = "summer"
	Fall   Season = "fall"
	Winter Season = "winter"
)

// Term identifies an academic term, such as "2025-spring".
type Term struct {
	Year   int
	Season Season
}

// ParseTerm parses a term from its "<year>-<season>" string form.
func ParseTerm(s string) (Term, error) {
	year, season, ok := strings.Cut(s, "-")
	if !ok {
		return Term{}, ValidationError{
			Field: "term",
			Value: s,
		}
	}

	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return Term{}, ValidationError{
			Field: "term",
			Value: s,
		}
	}

	switch Season(season) {
	case Spring, Summer, Fall, Winter:
	default:
		return Term{}, ValidationError{
			Field: "term",
			Value: s,
		}
	}

	return Term{
		Year:   y,
		Season: Season(season),
	}, nil
}

func (t Term) String() string {
	return fmt.Sprintf("%d-%s", t.Year, t.Season)
}

// IsZero reports whether t is the zero term.
func (t Term) IsZero() bool {
	return t == Term{}
}

// ID is the immutable identity of an enrollment aggregate. It never changes
// across the aggregate's lifetime and is the key of its event stream.
type ID struct {
	StudentID string
	CourseID  string
	Term      Term
}

// NewID returns the identity formed by the given triple.
//
// It returns a [ValidationError] if any component is malformed.
func NewID(studentID, courseID, term string) (ID, error) {
	if strings.TrimSpace(studentID) == "" {
		return ID{}, ValidationError{
			Field: "student_id",
			Value: studentID,
		}
	}

	if strings.TrimSpace(courseID) == "" {
		return ID{}, ValidationError{
			Field: "course_id",
			Value: courseID,
		}
	}

	t, err := ParseTerm(term)
	if err != nil {
		return ID{}, err
	}

	return ID{
		StudentID: studentID,
		CourseID:  courseID,
		Term:      t,
	}, nil
}

// StreamKey returns the identifier of the aggregate's event stream.
//
// The encoding is deterministic and collision-free, so distinct identities
// can never share a stream.
func (id ID) StreamKey() string {
	return streamkey.New(id.StudentID, id.CourseID, id.Term.String())
}

func (id ID) String() string {
	return fmt.Sprintf("%s/%s/%s", id.StudentID, id.CourseID, id.Term)
}
