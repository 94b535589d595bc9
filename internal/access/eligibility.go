package access

import (
	"context"
	"errors"

	"github.com/geocoder89/feedbackhub/internal/actorctx"
	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/domain/feedback"
	"github.com/geocoder89/feedbackhub/internal/schema"
	"github.com/google/uuid"
)

type FeedbackStore interface {
	GetTeacher(ctx context.Context, id string) (account.Account, error)
	// Submit must append studentID to the teacher's rated-by set and insert fb
	// as one conditional write, returning feedback.ErrAlreadySubmitted when the
	// student was already present.
	Submit(ctx context.Context, studentID string, fb feedback.Feedback) error
}

type EligibilityGate struct {
	store FeedbackStore
}

func NewEligibilityGate(store FeedbackStore) *EligibilityGate {
	return &EligibilityGate{store: store}
}

func teacherNotFound() error {
	return apperr.New(apperr.KindNotFound, "Teacher not found")
}

func alreadySubmitted() error {
	return apperr.New(apperr.KindAlreadySubmitted, "You have already given feedback to this teacher")
}

// Submit consumes the student's one-time eligibility for the teacher.
func (g *EligibilityGate) Submit(ctx context.Context, studentID, teacherID string, in schema.Feedback) (feedback.Feedback, error) {
	if _, err := uuid.Parse(teacherID); err != nil {
		return feedback.Feedback{}, teacherNotFound()
	}

	teacher, err := g.store.GetTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return feedback.Feedback{}, teacherNotFound()
		}
		return feedback.Feedback{}, apperr.Internal(err)
	}

	// fast path only; Submit below is what actually enforces one-per-student
	if teacher.HasRated(studentID) {
		return feedback.Feedback{}, alreadySubmitted()
	}

	fb := feedback.New(teacher.ID, in.CreateRequest())

	err = g.store.Submit(ctx, studentID, fb)
	switch {
	case err == nil:
		return fb, nil
	case errors.Is(err, feedback.ErrAlreadySubmitted):
		return feedback.Feedback{}, alreadySubmitted()
	case errors.Is(err, feedback.ErrTeacherNotFound):
		return feedback.Feedback{}, teacherNotFound()
	default:
		return feedback.Feedback{}, apperr.Internal(err)
	}
}

type submittedKey struct{}

func SubmittedFrom(ctx context.Context) (feedback.Feedback, bool) {
	fb, ok := ctx.Value(submittedKey{}).(feedback.Feedback)
	return fb, ok
}

// Gate must run after Authenticate, RequireRole(student) and Validate(ShapeFeedback).
func (g *EligibilityGate) Gate() Gate {
	return func(ctx context.Context, req *Request) (context.Context, error) {
		id, ok := actorctx.IdentityFrom(ctx)
		if !ok {
			return ctx, apperr.New(apperr.KindUnauthenticated, "Missing identity context")
		}
		in, ok := PayloadFrom[schema.Feedback](ctx)
		if !ok {
			return ctx, missingPayload()
		}

		fb, err := g.Submit(ctx, id.AccountID, req.TeacherID, in)
		if err != nil {
			return ctx, err
		}
		return context.WithValue(ctx, submittedKey{}, fb), nil
	}
}
