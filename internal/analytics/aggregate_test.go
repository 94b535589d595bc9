package analytics

import (
	"reflect"
	"testing"

	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/domain/feedback"
)

func student(id, name string) account.Account {
	return account.Account{ID: id, Role: account.RoleStudent, Name: name, Email: name + "@school.test"}
}

func fb(s feedback.Sentiment, rating int) feedback.Feedback {
	return feedback.Feedback{TeacherID: "t1", Sentiment: s, Rating: rating}
}

func names(in []account.Summary) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, s.Name)
	}
	return out
}

func TestAggregate_EmptyFeedbackHasZeroAverage(t *testing.T) {
	st := Aggregate(nil, []account.Account{student("s1", "ada")}, nil)

	if st.Count != 0 {
		t.Fatalf("expected count 0, got %d", st.Count)
	}
	if st.AverageRating != 0 {
		t.Fatalf("expected average 0 for no feedback, got %v", st.AverageRating)
	}
	if st.CoveragePercentage != 0 {
		t.Fatalf("expected coverage 0, got %v", st.CoveragePercentage)
	}
	if !reflect.DeepEqual(names(st.LeftOutStudents), []string{"ada"}) {
		t.Fatalf("expected ada left out, got %v", names(st.LeftOutStudents))
	}
}

func TestAggregate_EmptyRosterHasZeroCoverage(t *testing.T) {
	st := Aggregate([]feedback.Feedback{fb(feedback.Positive, 4)}, nil, nil)

	if st.CoveragePercentage != 0 {
		t.Fatalf("expected coverage 0 for empty roster, got %v", st.CoveragePercentage)
	}
	if st.AverageRating != 4 {
		t.Fatalf("expected average 4, got %v", st.AverageRating)
	}
	if st.SubmittedStudents == nil || st.LeftOutStudents == nil {
		t.Fatalf("expected non-nil student lists")
	}
}

func TestAggregate_Stats(t *testing.T) {
	roster := []account.Account{
		student("s1", "ada"),
		student("s2", "bob"),
		student("s3", "cy"),
		student("s4", "dee"),
	}
	items := []feedback.Feedback{
		fb(feedback.Positive, 5),
		fb(feedback.Negative, 2),
		fb(feedback.Positive, 4),
	}
	ratedBy := []string{"s3", "s1", "s2"}

	st := Aggregate(items, roster, ratedBy)

	if st.Count != 3 {
		t.Fatalf("expected count 3, got %d", st.Count)
	}
	if got, want := st.AverageRating, 11.0/3.0; got != want {
		t.Fatalf("expected average %v, got %v", want, got)
	}
	if want := (SentimentCounts{Positive: 2, Negative: 1, Neutral: 0}); st.Sentiment != want {
		t.Fatalf("expected sentiment %+v, got %+v", want, st.Sentiment)
	}
	if st.RosterSize != 4 {
		t.Fatalf("expected roster size 4, got %d", st.RosterSize)
	}
	if got := names(st.SubmittedStudents); !reflect.DeepEqual(got, []string{"ada", "bob", "cy"}) {
		t.Fatalf("expected submitted in roster order, got %v", got)
	}
	if got := names(st.LeftOutStudents); !reflect.DeepEqual(got, []string{"dee"}) {
		t.Fatalf("expected dee left out, got %v", got)
	}
	if st.CoveragePercentage != 75 {
		t.Fatalf("expected coverage 75, got %v", st.CoveragePercentage)
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	roster := []account.Account{student("s1", "ada"), student("s2", "bob")}
	items := []feedback.Feedback{fb(feedback.Neutral, 3)}

	a := Aggregate(items, roster, []string{"s2"})
	b := Aggregate(items, roster, []string{"s2"})

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical output, got %+v and %+v", a, b)
	}
}
