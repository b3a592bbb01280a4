package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"capa-grader/internal/domain"
	"github.com/redis/go-redis/v9"
)

// StateStore persists attempt state as JSON values keyed per
// (student, problem) pair, with an optional TTL.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

func stateKey(studentID, problemID string) string {
	return "capa:state:" + studentID + ":" + problemID
}

func (s *StateStore) Get(ctx context.Context, studentID, problemID string) (*domain.CorrectMap, error) {
	raw, err := s.client.Get(ctx, stateKey(studentID, problemID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
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
	if err := s.client.Set(ctx, stateKey(studentID, problemID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store attempt state: %w", err)
	}
	return nil
}
