package postgres

import (
	"context"

	"github.com/geocoder89/feedbackhub/internal/domain/feedback"
	"github.com/geocoder89/feedbackhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FeedbackRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewFeedbackRepo(pool *pgxpool.Pool, prom *observability.Prom) *FeedbackRepo {
	return &FeedbackRepo{
		pool: pool,
		prom: prom,
	}
}

// Submit records fb and marks studentID as having rated the teacher.
//
// The rated-by append is a single conditional UPDATE: the row lock taken by
// the first writer makes a concurrent second UPDATE re-check the predicate
// after the first commits, so it matches zero rows and the caller sees
// ErrAlreadySubmitted. The feedback insert shares the transaction.
func (repo *FeedbackRepo) Submit(ctx context.Context, studentID string, fb feedback.Feedback) (err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var tag pgconn.CommandTag
	err = repo.prom.ObserveDB("feedback.submit.mark_rated", func() error {
		var e error
		tag, e = tx.Exec(ctx, `
			UPDATE teachers
			SET rated_by = array_append(rated_by, $2::uuid)
			WHERE id = $1 AND NOT ($2::uuid = ANY(rated_by))
		`, fb.TeacherID, studentID)
		return e
	})
	if err != nil {
		return
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		err = repo.prom.ObserveDB("feedback.submit.teacher_exists", func() error {
			return tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM teachers WHERE id = $1)`, fb.TeacherID).Scan(&exists)
		})
		if err != nil {
			return
		}
		if !exists {
			return feedback.ErrTeacherNotFound
		}
		return feedback.ErrAlreadySubmitted
	}

	err = repo.prom.ObserveDB("feedback.submit.insert", func() error {
		_, e := tx.Exec(ctx, `
			INSERT INTO feedback (id, teacher_id, sentiment, rating, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, fb.ID, fb.TeacherID, string(fb.Sentiment), fb.Rating, fb.CreatedAt)
		return e
	})
	if err != nil {
		if IsForeignKeyViolation(err) {
			return feedback.ErrTeacherNotFound
		}
		return
	}

	return tx.Commit(ctx)
}

func (repo *FeedbackRepo) ListFeedbackByTeacher(ctx context.Context, teacherID string) (out []feedback.Feedback, err error) {
	var rows pgx.Rows

	err = repo.prom.ObserveDB("feedback.list_by_teacher", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, `
			SELECT id, teacher_id, sentiment, rating, created_at
			FROM feedback
			WHERE teacher_id = $1
			ORDER BY created_at ASC, id ASC
		`, teacherID)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]feedback.Feedback, 0)
	for rows.Next() {
		var fb feedback.Feedback
		var sentiment string
		if scanErr := rows.Scan(&fb.ID, &fb.TeacherID, &sentiment, &fb.Rating, &fb.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		fb.Sentiment = feedback.Sentiment(sentiment)
		out = append(out, fb)
	}
	return out, rows.Err()
}
