package handlers

import (
	"context"
	"errors"

	"github.com/geocoder89/feedbackhub/internal/access"
	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/http/middlewares"
	"github.com/geocoder89/feedbackhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StudentReader interface {
	GetStudent(ctx context.Context, id string) (account.Account, error)
	GetTeacher(ctx context.Context, id string) (account.Account, error)
	ListTeachers(ctx context.Context) ([]account.Account, error)
}

type StudentsHandler struct {
	store StudentReader
	prom  *observability.Prom
}

func NewStudentsHandler(store StudentReader, prom *observability.Prom) *StudentsHandler {
	return &StudentsHandler{store: store, prom: prom}
}

type TeacherListing struct {
	account.Summary
	Rated bool `json:"rated"`
}

type StudentDashboard struct {
	Student  account.Summary  `json:"student"`
	Teachers []TeacherListing `json:"teachers"`
}

type FeedbackForm struct {
	Student account.Summary `json:"student"`
	Teacher account.Summary `json:"teacher"`
	Rated   bool            `json:"rated"`
}

// loadStudent resolves the logged-in student. A token for a student that no
// longer exists is treated as an invalid session.
func (h *StudentsHandler) loadStudent(ctx *gin.Context) (account.Account, bool) {
	id, ok := identityFrom(ctx)
	if !ok {
		return account.Account{}, false
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	student, err := h.store.GetStudent(cctx, id.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			middlewares.Fail(ctx, apperr.New(apperr.KindUnauthenticated, "Invalid or expired session"))
			return account.Account{}, false
		}
		middlewares.Fail(ctx, apperr.Internal(err))
		return account.Account{}, false
	}
	return student, true
}

func (h *StudentsHandler) Dashboard(ctx *gin.Context) {
	student, ok := h.loadStudent(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	teachers, err := h.store.ListTeachers(cctx)
	if err != nil {
		middlewares.Fail(ctx, apperr.Internal(err))
		return
	}

	out := StudentDashboard{
		Student:  student.Summary(),
		Teachers: make([]TeacherListing, 0, len(teachers)),
	}
	for _, t := range teachers {
		out.Teachers = append(out.Teachers, TeacherListing{
			Summary: t.Summary(),
			Rated:   t.HasRated(student.ID),
		})
	}

	RespondOK(ctx, out)
}

func (h *StudentsHandler) FeedbackForm(ctx *gin.Context) {
	student, ok := h.loadStudent(ctx)
	if !ok {
		return
	}

	teacherID := ctx.Query("id")
	if _, err := uuid.Parse(teacherID); err != nil {
		middlewares.Fail(ctx, apperr.New(apperr.KindNotFound, "Teacher not found"))
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	teacher, err := h.store.GetTeacher(cctx, teacherID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			middlewares.Fail(ctx, apperr.New(apperr.KindNotFound, "Teacher not found"))
			return
		}
		middlewares.Fail(ctx, apperr.Internal(err))
		return
	}

	RespondOK(ctx, FeedbackForm{
		Student: student.Summary(),
		Teacher: teacher.Summary(),
		Rated:   teacher.HasRated(student.ID),
	})
}

// SubmitFeedback runs after the eligibility gate has already stored the record.
func (h *StudentsHandler) SubmitFeedback(ctx *gin.Context) {
	if _, ok := access.SubmittedFrom(ctx.Request.Context()); !ok {
		middlewares.Fail(ctx, apperr.New(apperr.KindInternal, "feedback missing after eligibility gate"))
		return
	}

	RespondMessage(ctx, "Feedback submitted successfully")
}

// TrackSubmission counts submission outcomes, including those rejected by a gate.
func (h *StudentsHandler) TrackSubmission() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		result := "accepted"
		if last := ctx.Errors.Last(); last != nil {
			result = apperr.KindOf(last.Err).String()
		}
		h.prom.ObserveFeedback(result)
	}
}
