package storage

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "parse postgres dsn", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "connect to postgres", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "ping postgres", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

func (p *Pool) exec(ctx context.Context, sql string) error {
	_, err := p.Exec(ctx, sql)

	return err
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return stderrors.Is(err, pgx.ErrNoRows)
}
