// Package analytics turns a teacher's feedback set into dashboard statistics.
package analytics

import (
	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/domain/feedback"
)

type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

type Stats struct {
	Count              int               `json:"count"`
	AverageRating      float64           `json:"averageRating"`
	Sentiment          SentimentCounts   `json:"countBySentiment"`
	RosterSize         int               `json:"rosterSize"`
	SubmittedStudents  []account.Summary `json:"submittedStudents"`
	LeftOutStudents    []account.Summary `json:"leftOutStudents"`
	CoveragePercentage float64           `json:"coveragePercentage"`
}

// Aggregate is pure. AverageRating is 0 for an empty feedback set and
// CoveragePercentage is 0 for an empty roster. Student lists keep roster order.
func Aggregate(items []feedback.Feedback, roster []account.Account, ratedBy []string) Stats {
	st := Stats{
		Count:             len(items),
		RosterSize:        len(roster),
		SubmittedStudents: make([]account.Summary, 0),
		LeftOutStudents:   make([]account.Summary, 0),
	}

	sum := 0
	for _, fb := range items {
		sum += fb.Rating
		switch fb.Sentiment {
		case feedback.Positive:
			st.Sentiment.Positive++
		case feedback.Negative:
			st.Sentiment.Negative++
		case feedback.Neutral:
			st.Sentiment.Neutral++
		}
	}
	if st.Count > 0 {
		st.AverageRating = float64(sum) / float64(st.Count)
	}

	rated := make(map[string]struct{}, len(ratedBy))
	for _, id := range ratedBy {
		rated[id] = struct{}{}
	}

	for _, s := range roster {
		if _, ok := rated[s.ID]; ok {
			st.SubmittedStudents = append(st.SubmittedStudents, s.Summary())
		} else {
			st.LeftOutStudents = append(st.LeftOutStudents, s.Summary())
		}
	}

	if st.RosterSize > 0 {
		st.CoveragePercentage = float64(st.Count) / float64(st.RosterSize) * 100
	}

	return st
}
