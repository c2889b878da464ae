package registrar

import (
	"context"
	"errors"
	"time"

	"github.com/registrarkit/enroll/enrollment"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Rule codes for the business constraints enforced by the command handler.
const (
	RuleStudentNotActive    = "STUDENT_NOT_ACTIVE"
	RuleCourseNotOffered    = "COURSE_NOT_OFFERED"
	RuleCapacityExceeded    = "CAPACITY_EXCEEDED"
	RuleDuplicateEnrollment = "DUPLICATE_ENROLLMENT"
)

// Config is the command handler's policy configuration. It is passed in
// explicitly at construction; the handler reads no ambient state.
type Config struct {
	// AllowDuplicates disables the duplicate-enrollment rejection.
	AllowDuplicates bool

	// TermWindowYears overrides the default window of years around the
	// current date within which a requested term must fall.
	TermWindowYears int

	// Clock overrides the time source. The zero value means time.Now.
	Clock func() time.Time
}

func (c Config) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}

	return c.Clock()
}

// A Handler processes enrollment commands.
//
// Each command runs the same pipeline: structural validation, business-rule
// checks against the read-only collaborators, the pure aggregate decision,
// persistence, and finally best-effort event publication. The pipeline stops
// at the first failing step; only publication failures are tolerated.
//
// Handlers are stateless and safe for concurrent use.
type Handler struct {
	repo      *enrollment.Repository
	students  StudentDirectory
	catalog   CourseCatalog
	publisher EventPublisher
	notifier  NotificationSink
	config    Config
	logger    *zap.Logger
}

// NewHandler returns a command handler that persists through repo and
// consults the given collaborators.
//
// publisher and notifier may be nil, in which case accepted events are not
// delivered anywhere. logger may be nil.
func NewHandler(
	repo *enrollment.Repository,
	students StudentDirectory,
	catalog CourseCatalog,
	publisher EventPublisher,
	notifier NotificationSink,
	config Config,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		repo:      repo,
		students:  students,
		catalog:   catalog,
		publisher: publisher,
		notifier:  notifier,
		config:    config,
		logger:    logger,
	}
}

// Enroll processes an enrollment request.
func (h *Handler) Enroll(ctx context.Context, cmd EnrollCommand) (*Response, error) {
	if err := checkStruct(cmd); err != nil {
		return nil, err
	}

	id, err := enrollment.NewID(cmd.StudentID, cmd.CourseID, cmd.Term)
	if err != nil {
		return nil, err
	}

	if err := h.checkPrerequisites(ctx, id); err != nil {
		return nil, err
	}

	// The duplicate lookup is a courtesy fast path only; under racing
	// commands for the same identity the store's version-0 precondition is
	// the authoritative guard.
	if !h.config.AllowDuplicates {
		existing, err := h.repo.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, duplicateError(id)
		}
	}

	e, env, err := enrollment.Request(id, enrollment.RequestOptions{
		EventOptions: enrollment.EventOptions{
			Now:           h.config.now(),
			CorrelationID: cmd.CorrelationID,
		},
		TermWindowYears: h.config.TermWindowYears,
	})
	if err != nil {
		return nil, err
	}

	if err := h.repo.Save(ctx, e, env); err != nil {
		var conflict *enrollment.ConflictError
		if errors.As(err, &conflict) && conflict.Expected == 0 {
			return nil, duplicateError(id)
		}

		return nil, err
	}

	h.publish(ctx, env)

	return NewResponse(e), nil
}

// Approve processes the approval of a pending enrollment request.
func (h *Handler) Approve(ctx context.Context, cmd ApproveCommand) (*Response, error) {
	if err := checkStruct(cmd); err != nil {
		return nil, err
	}

	return h.update(
		ctx,
		cmd.StudentID, cmd.CourseID, cmd.Term, cmd.CorrelationID,
		func(e *enrollment.Enrollment, opts enrollment.EventOptions) (*enrollment.Enrollment, *enrollment.Envelope, error) {
			return enrollment.Approve(e, cmd.ApprovedBy, opts)
		},
	)
}

// Cancel processes the cancellation of an enrollment.
func (h *Handler) Cancel(ctx context.Context, cmd CancelCommand) (*Response, error) {
	if err := checkStruct(cmd); err != nil {
		return nil, err
	}

	return h.update(
		ctx,
		cmd.StudentID, cmd.CourseID, cmd.Term, cmd.CorrelationID,
		func(e *enrollment.Enrollment, opts enrollment.EventOptions) (*enrollment.Enrollment, *enrollment.Envelope, error) {
			return enrollment.Cancel(e, cmd.Reason, opts)
		},
	)
}

// Complete marks an approved enrollment as completed.
func (h *Handler) Complete(ctx context.Context, cmd CompleteCommand) (*Response, error) {
	if err := checkStruct(cmd); err != nil {
		return nil, err
	}

	return h.update(
		ctx,
		cmd.StudentID, cmd.CourseID, cmd.Term, cmd.CorrelationID,
		enrollment.Complete,
	)
}

// Fail marks an approved enrollment as failed.
func (h *Handler) Fail(ctx context.Context, cmd FailCommand) (*Response, error) {
	if err := checkStruct(cmd); err != nil {
		return nil, err
	}

	return h.update(
		ctx,
		cmd.StudentID, cmd.CourseID, cmd.Term, cmd.CorrelationID,
		enrollment.Fail,
	)
}

// update loads an existing enrollment, applies a decision to it and persists
// the result.
func (h *Handler) update(
	ctx context.Context,
	studentID, courseID, term, correlationID string,
	decide func(*enrollment.Enrollment, enrollment.EventOptions) (*enrollment.Enrollment, *enrollment.Envelope, error),
) (*Response, error) {
	id, err := enrollment.NewID(studentID, courseID, term)
	if err != nil {
		return nil, err
	}

	existing, err := h.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, enrollment.NotFoundError{
			Entity: "enrollment",
			ID:     id.String(),
		}
	}

	e, env, err := decide(existing, enrollment.EventOptions{
		Now:           h.config.now(),
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}

	if err := h.repo.Save(ctx, e, env); err != nil {
		return nil, err
	}

	h.publish(ctx, env)

	return NewResponse(e), nil
}

// checkPrerequisites consults the read-only collaborators. The checks are
// independent, so they run concurrently; the first failure wins.
func (h *Handler) checkPrerequisites(ctx context.Context, id enrollment.ID) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ok, err := h.students.Exists(ctx, id.StudentID)
		if err != nil {
			return err
		}
		if !ok {
			return enrollment.NotFoundError{
				Entity: "student",
				ID:     id.StudentID,
			}
		}

		status, err := h.students.Status(ctx, id.StudentID)
		if err != nil {
			return err
		}
		if status != StudentActive {
			return enrollment.BusinessRuleError{
				Rule: RuleStudentNotActive,
				Context: map[string]any{
					"student_id": id.StudentID,
					"status":     string(status),
				},
			}
		}

		return nil
	})

	g.Go(func() error {
		ok, err := h.catalog.Exists(ctx, id.CourseID)
		if err != nil {
			return err
		}
		if !ok {
			return enrollment.NotFoundError{
				Entity: "course",
				ID:     id.CourseID,
			}
		}

		offered, err := h.catalog.IsOffered(ctx, id.CourseID, id.Term)
		if err != nil {
			return err
		}
		if !offered {
			return enrollment.BusinessRuleError{
				Rule: RuleCourseNotOffered,
				Context: map[string]any{
					"course_id": id.CourseID,
					"term":      id.Term.String(),
				},
			}
		}

		seats, err := h.catalog.Capacity(ctx, id.CourseID, id.Term)
		if err != nil {
			return err
		}
		if seats.Enrolled >= seats.Max {
			return enrollment.BusinessRuleError{
				Rule: RuleCapacityExceeded,
				Context: map[string]any{
					"course_id": id.CourseID,
					"term":      id.Term.String(),
					"max":       seats.Max,
					"enrolled":  seats.Enrolled,
				},
			}
		}

		return nil
	})

	return g.Wait()
}

// publish delivers an accepted event to the publisher and the notification
// sink. Delivery is best-effort: a failure is logged but never converts a
// successful persist into a failure response.
func (h *Handler) publish(ctx context.Context, env *enrollment.Envelope) {
	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, []*enrollment.Envelope{env}); err != nil {
			h.logger.Warn(
				"cannot publish enrollment event",
				zap.String("event_id", env.EventID),
				zap.String("event_kind", string(env.Kind())),
				zap.String("enrollment_id", env.EnrollmentID.String()),
				zap.Error(err),
			)
		}
	}

	if h.notifier != nil {
		h.notifier.Notify(ctx, env)
	}
}

func duplicateError(id enrollment.ID) error {
	return enrollment.BusinessRuleError{
		Rule: RuleDuplicateEnrollment,
		Context: map[string]any{
			"student_id": id.StudentID,
			"course_id":  id.CourseID,
			"term":       id.Term.String(),
		},
	}
}
