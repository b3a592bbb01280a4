// Package postgres loads problem markup and persists attempt state in
// Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"capa-grader/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProblemLoader loads problem markup from Postgres.
type ProblemLoader struct {
	pool *pgxpool.Pool
}

func NewProblemLoader(pool *pgxpool.Pool) *ProblemLoader {
	return &ProblemLoader{pool: pool}
}

func (l *ProblemLoader) LoadProblem(ctx context.Context, problemID string) ([]byte, error) {
	var markup []byte
	err := l.pool.QueryRow(ctx, `SELECT markup FROM problems WHERE id=$1`, problemID).Scan(&markup)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProblemNotFound
		}
		return nil, fmt.Errorf("load problem: %w", err)
	}
	return markup, nil
}
