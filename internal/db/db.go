package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	retryBase = 500 * time.Millisecond
	retryCap  = 10 * time.Second
)

func NewPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)

	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 5

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)

	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)

	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)

	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Connect calls NewPool up to attempts times, sleeping with exponential backoff
// between failures. A malformed URL is returned immediately.
func Connect(ctx context.Context, log *slog.Logger, dbURL string, attempts int) (*pgxpool.Pool, error) {
	if _, err := pgxpool.ParseConfig(dbURL); err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		pool, err := NewPool(ctx, dbURL)
		if err == nil {
			if attempt > 0 {
				log.Info("db connected", "attempt", attempt+1)
			}
			return pool, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := Backoff(attempt, retryBase, retryCap)
		log.Warn("db connect failed, retrying",
			"attempt", attempt+1,
			"max_attempts", attempts,
			"retry_in", delay.String(),
			"err", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("db connect: giving up after %d attempts: %w", attempts, lastErr)
}
