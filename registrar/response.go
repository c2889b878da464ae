package registrar

import (
	"errors"
	"time"

	"github.com/registrarkit/enroll/enrollment"
)

// Response is the shape of an enrollment as exposed to callers.
//
// The timestamp fields are populated according to the status; absent
// timestamps are omitted from the encoded form.
type Response struct {
	StudentID string            `json:"student_id"`
	CourseID  string            `json:"course_id"`
	Term      string            `json:"term"`
	Status    enrollment.Status `json:"status"`
	Version   uint64            `json:"version"`

	RequestedAt  time.Time `json:"requested_at"`
	ApprovedAt   time.Time `json:"approved_at,omitzero"`
	ApprovedBy   string    `json:"approved_by,omitempty"`
	CancelledAt  time.Time `json:"cancelled_at,omitzero"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	CompletedAt  time.Time `json:"completed_at,omitzero"`
	FailedAt     time.Time `json:"failed_at,omitzero"`
}

// NewResponse projects an enrollment's state into its response shape.
func NewResponse(e *enrollment.Enrollment) *Response {
	return &Response{
		StudentID:    e.ID.StudentID,
		CourseID:     e.ID.CourseID,
		Term:         e.ID.Term.String(),
		Status:       e.Status,
		Version:      e.Version,
		RequestedAt:  e.RequestedAt,
		ApprovedAt:   e.ApprovedAt,
		ApprovedBy:   e.ApprovedBy,
		CancelledAt:  e.CancelledAt,
		CancelReason: e.CancelReason,
		CompletedAt:  e.CompletedAt,
		FailedAt:     e.FailedAt,
	}
}

// ErrorResponse is the shape of a rejected command or query as exposed to
// callers.
//
// Code is stable and suitable for client branching; Message is
// human-readable and carries no stability guarantee.
type ErrorResponse struct {
	Kind      string         `json:"kind"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewErrorResponse maps an error returned by a handler to its response
// shape.
func NewErrorResponse(err error) *ErrorResponse {
	resp := &ErrorResponse{
		Kind:      "internal",
		Code:      "INTERNAL",
		Message:   err.Error(),
		Timestamp: time.Now(),
	}

	var validation enrollment.ValidationError
	var rule enrollment.BusinessRuleError
	var notFound enrollment.NotFoundError
	var conflict *enrollment.ConflictError

	switch {
	case errors.As(err, &validation):
		resp.Kind = "validation"
		resp.Code = validation.Code()
		resp.Details = map[string]any{
			"field": validation.Field,
			"value": validation.Value,
		}

	case errors.As(err, &rule):
		resp.Kind = "business_rule"
		resp.Code = rule.Code()
		resp.Details = rule.Context

	case errors.As(err, &notFound):
		resp.Kind = "not_found"
		resp.Code = notFound.Code()
		resp.Details = map[string]any{
			"entity": notFound.Entity,
			"id":     notFound.ID,
		}

	case errors.As(err, &conflict):
		resp.Kind = "concurrency"
		resp.Code = "CONCURRENCY_CONFLICT"
		resp.Details = map[string]any{
			"expected_version": conflict.Expected,
			"actual_version":   conflict.Actual,
		}
	}

	return resp
}
