package registrar

import (
	"context"

	"github.com/registrarkit/enroll/enrollment"
)

// A QueryHandler answers read-only enrollment lookups.
//
// It performs no mutation and evaluates no business rules; it is a pure
// projection from the repository to the response shape.
type QueryHandler struct {
	repo *enrollment.Repository
}

// NewQueryHandler returns a query handler that reads through repo.
func NewQueryHandler(repo *enrollment.Repository) *QueryHandler {
	return &QueryHandler{
		repo: repo,
	}
}

// Get looks up a single enrollment by identity.
//
// It returns (nil, nil) if the enrollment does not exist.
func (h *QueryHandler) Get(ctx context.Context, q GetQuery) (*Response, error) {
	if err := checkStruct(q); err != nil {
		return nil, err
	}

	id, err := enrollment.NewID(q.StudentID, q.CourseID, q.Term)
	if err != nil {
		return nil, err
	}

	e, err := h.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}

	return NewResponse(e), nil
}

// History returns an enrollment's full event history, for audit and
// debugging.
func (h *QueryHandler) History(ctx context.Context, q GetQuery) ([]*enrollment.Envelope, error) {
	if err := checkStruct(q); err != nil {
		return nil, err
	}

	id, err := enrollment.NewID(q.StudentID, q.CourseID, q.Term)
	if err != nil {
		return nil, err
	}

	return h.repo.History(ctx, id)
}
