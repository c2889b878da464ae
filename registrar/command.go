package registrar

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/registrarkit/enroll/enrollment"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EnrollCommand requests the creation of an enrollment.
type EnrollCommand struct {
	StudentID string `validate:"required"`
	CourseID  string `validate:"required"`
	Term      string `validate:"required"`

	// CorrelationID links the resulting event to the caller's request. It
	// may be empty.
	CorrelationID string

	// Metadata is opaque caller context. It is not interpreted by the
	// handler.
	Metadata map[string]string
}

// ApproveCommand approves a pending enrollment request.
type ApproveCommand struct {
	StudentID  string `validate:"required"`
	CourseID   string `validate:"required"`
	Term       string `validate:"required"`
	ApprovedBy string `validate:"required"`

	CorrelationID string
}

// CancelCommand cancels an enrollment, before or after approval.
type CancelCommand struct {
	StudentID string `validate:"required"`
	CourseID  string `validate:"required"`
	Term      string `validate:"required"`
	Reason    string `validate:"required"`

	CorrelationID string
}

// CompleteCommand marks an approved enrollment as completed.
type CompleteCommand struct {
	StudentID string `validate:"required"`
	CourseID  string `validate:"required"`
	Term      string `validate:"required"`

	CorrelationID string
}

// FailCommand marks an approved enrollment as failed.
type FailCommand struct {
	StudentID string `validate:"required"`
	CourseID  string `validate:"required"`
	Term      string `validate:"required"`

	CorrelationID string
}

// GetQuery looks up a single enrollment by identity.
type GetQuery struct {
	StudentID string `validate:"required"`
	CourseID  string `validate:"required"`
	Term      string `validate:"required"`
}

// checkStruct runs structural validation over a command or query, mapping
// the first violation to the domain's validation error.
func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if errors.As(err, &violations) && len(violations) > 0 {
		f := violations[0]

		return enrollment.ValidationError{
			Field: f.Field(),
			Value: fieldValue(f),
		}
	}

	return err
}

func fieldValue(f validator.FieldError) string {
	if s, ok := f.Value().(string); ok {
		return s
	}

	return ""
}
