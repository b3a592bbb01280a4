package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"capa-grader/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StateStore persists attempt state as JSONB, one row per
// (student, problem) pair.
type StateStore struct {
	pool *pgxpool.Pool
}

func NewStateStore(pool *pgxpool.Pool) *StateStore {
	return &StateStore{pool: pool}
}

func (s *StateStore) Get(ctx context.Context, studentID, problemID string) (*domain.CorrectMap, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM attempt_state WHERE student_id=$1 AND problem_id=$2`,
		studentID, problemID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("load attempt state: %w", err)
	}
	cm := domain.NewCorrectMap()
	if err := json.Unmarshal(raw, cm); err != nil {
		return nil, fmt.Errorf("decode attempt state: %w", err)
	}
	return cm, nil
}

func (s *StateStore) Put(ctx context.Context, studentID, problemID string, cm *domain.CorrectMap) error {
	raw, err := json.Marshal(cm)
	if err != nil {
		return fmt.Errorf("encode attempt state: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO attempt_state (student_id, problem_id, state, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (student_id, problem_id)
		 DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		studentID, problemID, raw)
	if err != nil {
		return fmt.Errorf("store attempt state: %w", err)
	}
	return nil
}
