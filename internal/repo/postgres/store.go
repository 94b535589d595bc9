package postgres

import (
	"context"

	"github.com/geocoder89/feedbackhub/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store groups the repositories behind the single store the HTTP layer consumes.
type Store struct {
	*AccountsRepo
	*FeedbackRepo
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool, prom *observability.Prom) *Store {
	return &Store{
		AccountsRepo: NewAccountsRepo(pool, prom),
		FeedbackRepo: NewFeedbackRepo(pool, prom),
		pool:         pool,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
