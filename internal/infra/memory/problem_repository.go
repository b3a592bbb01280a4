package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"capa-grader/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ProblemLoader fetches problem markup from a backing store.
type ProblemLoader interface {
	LoadProblem(ctx context.Context, problemID string) ([]byte, error)
}

// ProblemRepository caches problem markup with TTL to avoid repeated
// backing-store hits; concurrent misses for the same problem are collapsed
// into one load.
type ProblemRepository struct {
	loader ProblemLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedProblem
}

type cachedProblem struct {
	data      []byte
	expiresAt time.Time
}

func NewProblemRepository(loader ProblemLoader, ttl time.Duration) *ProblemRepository {
	return &ProblemRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedProblem),
	}
}

func (r *ProblemRepository) GetProblem(ctx context.Context, problemID string) ([]byte, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[problemID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.data, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(problemID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[problemID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.data, nil
		}
		r.mu.RUnlock()

		data, err := r.loader.LoadProblem(ctx, problemID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[problemID] = cachedProblem{
			data:      data,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (r *ProblemRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticProblemLoader is a loader backed by an in-memory map (useful for
// tests/demos).
type StaticProblemLoader struct {
	problems map[string][]byte
}

func NewStaticProblemLoader(problems map[string][]byte) *StaticProblemLoader {
	return &StaticProblemLoader{problems: problems}
}

func (l *StaticProblemLoader) LoadProblem(_ context.Context, problemID string) ([]byte, error) {
	if data, ok := l.problems[problemID]; ok {
		return data, nil
	}
	return nil, domain.ErrProblemNotFound
}
