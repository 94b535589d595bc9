package feedback

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

const (
	MinRating = 1
	MaxRating = 5
)

var (
	ErrTeacherNotFound  = errors.New("teacher not found")
	ErrAlreadySubmitted = errors.New("feedback already submitted for teacher")
)

// Feedback is anonymous: it references its teacher but never the student.
type Feedback struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacherId"`
	Sentiment Sentiment `json:"sentiment"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateRequest struct {
	Sentiment Sentiment
	Rating    int
}

// A factory to build a Feedback owned by teacherID from a validated request.
func New(teacherID string, req CreateRequest) Feedback {
	return Feedback{
		ID:        uuid.NewString(),
		TeacherID: teacherID,
		Sentiment: req.Sentiment,
		Rating:    req.Rating,
		CreatedAt: time.Now().UTC(),
	}
}
