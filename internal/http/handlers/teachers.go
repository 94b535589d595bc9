package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/feedbackhub/internal/analytics"
	"github.com/geocoder89/feedbackhub/internal/apperr"
	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/domain/feedback"
	"github.com/geocoder89/feedbackhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type TeacherReader interface {
	GetTeacher(ctx context.Context, id string) (account.Account, error)
	ListStudents(ctx context.Context) ([]account.Account, error)
	ListFeedbackByTeacher(ctx context.Context, teacherID string) ([]feedback.Feedback, error)
}

type TeachersHandler struct {
	store TeacherReader
}

func NewTeachersHandler(store TeacherReader) *TeachersHandler {
	return &TeachersHandler{store: store}
}

type TeacherDashboard struct {
	Teacher            account.Summary           `json:"teacher"`
	Feedback           []feedback.Feedback       `json:"feedback"`
	Count              int                       `json:"count"`
	AverageRating      float64                   `json:"averageRating"`
	Sentiment          analytics.SentimentCounts `json:"countBySentiment"`
	CoveragePercentage float64                   `json:"coveragePercentage"`
}

type TeacherAnalytics struct {
	Teacher  account.Summary     `json:"teacher"`
	Students []account.Summary   `json:"students"`
	Feedback []feedback.Feedback `json:"feedback"`
	analytics.Stats
}

type teacherView struct {
	teacher  account.Account
	feedback []feedback.Feedback
	roster   []account.Account
	stats    analytics.Stats
}

func (h *TeachersHandler) load(ctx *gin.Context) (teacherView, bool) {
	id, ok := identityFrom(ctx)
	if !ok {
		return teacherView{}, false
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	teacher, err := h.store.GetTeacher(cctx, id.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			middlewares.Fail(ctx, apperr.New(apperr.KindUnauthenticated, "Invalid or expired session"))
			return teacherView{}, false
		}
		middlewares.Fail(ctx, apperr.Internal(err))
		return teacherView{}, false
	}

	items, err := h.store.ListFeedbackByTeacher(cctx, teacher.ID)
	if err != nil {
		middlewares.Fail(ctx, apperr.Internal(err))
		return teacherView{}, false
	}

	roster, err := h.store.ListStudents(cctx)
	if err != nil {
		middlewares.Fail(ctx, apperr.Internal(err))
		return teacherView{}, false
	}

	return teacherView{
		teacher:  teacher,
		feedback: items,
		roster:   roster,
		stats:    analytics.Aggregate(items, roster, teacher.RatedBy),
	}, true
}

func (h *TeachersHandler) Dashboard(ctx *gin.Context) {
	v, ok := h.load(ctx)
	if !ok {
		return
	}

	RespondOK(ctx, TeacherDashboard{
		Teacher:            v.teacher.Summary(),
		Feedback:           v.feedback,
		Count:              v.stats.Count,
		AverageRating:      v.stats.AverageRating,
		Sentiment:          v.stats.Sentiment,
		CoveragePercentage: v.stats.CoveragePercentage,
	})
}

func (h *TeachersHandler) Analytics(ctx *gin.Context) {
	v, ok := h.load(ctx)
	if !ok {
		return
	}

	students := make([]account.Summary, 0, len(v.roster))
	for _, s := range v.roster {
		students = append(students, s.Summary())
	}

	RespondJSONWithETag(ctx, http.StatusOK, TeacherAnalytics{
		Teacher:  v.teacher.Summary(),
		Students: students,
		Feedback: v.feedback,
		Stats:    v.stats,
	})
}
