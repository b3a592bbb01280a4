package app

import (
	"context"
	"errors"
	"log"
	"time"

	"capa-grader/internal/capa"
	"capa-grader/internal/domain"
	"capa-grader/internal/dragdrop"
	"capa-grader/internal/xqueue"
)

// ProblemRepository loads problem markup (from cache/backing store).
type ProblemRepository interface {
	GetProblem(ctx context.Context, problemID string) ([]byte, error)
}

// StateStore persists attempt state per (student, problem) pair.
type StateStore interface {
	Get(ctx context.Context, studentID, problemID string) (*domain.CorrectMap, error)
	Put(ctx context.Context, studentID, problemID string, cm *domain.CorrectMap) error
}

// GradingService contains the core grading use cases: scoring submissions
// and applying asynchronous replies from external graders.
type GradingService struct {
	problems ProblemRepository
	state    StateStore
	queue    capa.QueueConfig
	checkers map[string]capa.CheckFunc
	seed     int64
	now      func() time.Time
}

// Option configures a GradingService.
type Option func(*GradingService)

// WithChecker registers a named checker for custom-graded responses.
func WithChecker(name string, fn capa.CheckFunc) Option {
	return func(s *GradingService) { s.checkers[name] = fn }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *GradingService) { s.now = now }
}

// WithSeed fixes the seed used for sampling and queue keys.
func WithSeed(seed int64) Option {
	return func(s *GradingService) { s.seed = seed }
}

func NewGradingService(problems ProblemRepository, state StateStore, queue capa.QueueConfig, opts ...Option) *GradingService {
	s := &GradingService{
		problems: problems,
		state:    state,
		queue:    queue,
		// Built-in checkers, available to any custom response without
		// explicit registration.
		checkers: map[string]capa.CheckFunc{
			"check_draganddrop": dragdrop.Check,
		},
		seed: time.Now().UnixNano(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GradingService) buildProblem(ctx context.Context, studentID, problemID string) (*capa.Problem, error) {
	data, err := s.problems.GetProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	return capa.NewProblem(problemID, data, &capa.Context{
		Seed:      s.seed,
		StudentID: studentID,
		Checkers:  s.checkers,
		Queue:     s.queue,
		Now:       s.now,
	})
}

// Submit grades a student's answers for a problem and persists the merged
// attempt state. Answers the student did not resubmit keep their previous
// entries.
func (s *GradingService) Submit(ctx context.Context, studentID, problemID string, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	problem, err := s.buildProblem(ctx, studentID, problemID)
	if err != nil {
		return nil, err
	}
	old, err := s.state.Get(ctx, studentID, problemID)
	if err != nil && !errors.Is(err, domain.ErrStateNotFound) {
		return nil, err
	}
	cm, err := problem.EvaluateAnswers(ctx, answers, old)
	if err != nil {
		return nil, err
	}
	if err := s.state.Put(ctx, studentID, problemID, cm); err != nil {
		return nil, err
	}
	return cm, nil
}

// State returns the stored attempt state for a (student, problem) pair.
func (s *GradingService) State(ctx context.Context, studentID, problemID string) (*domain.CorrectMap, error) {
	return s.state.Get(ctx, studentID, problemID)
}

// Answers returns the displayable correct answers for a problem.
func (s *GradingService) Answers(ctx context.Context, studentID, problemID string) (map[string]string, error) {
	problem, err := s.buildProblem(ctx, studentID, problemID)
	if err != nil {
		return nil, err
	}
	return problem.Answers(), nil
}

// HandleReply applies one asynchronous grader reply, routed by the echoed
// request header. Replies for unknown state or with stale correlation keys
// are logged and dropped; a reply that cannot be parsed still settles the
// answer so it never stays queued.
func (s *GradingService) HandleReply(ctx context.Context, reply xqueue.Reply) error {
	h := reply.Header
	if h.StudentID == "" || h.ProblemID == "" || h.AnswerID == "" {
		return &domain.InvalidGraderReplyError{Msg: "reply header missing routing fields"}
	}
	old, err := s.state.Get(ctx, h.StudentID, h.ProblemID)
	if err != nil {
		if errors.Is(err, domain.ErrStateNotFound) {
			log.Printf("dropping grader reply with no attempt state: student=%s problem=%s", h.StudentID, h.ProblemID)
			return nil
		}
		return err
	}
	problem, err := s.buildProblem(ctx, h.StudentID, h.ProblemID)
	if err != nil {
		return err
	}
	cm, applyErr := problem.UpdateScore(reply.Body, h.Key, h.AnswerID, old)
	if applyErr != nil {
		if errors.Is(applyErr, domain.ErrAnswerNotFound) {
			log.Printf("dropping grader reply for unknown answer id %s of problem %s", h.AnswerID, h.ProblemID)
			return nil
		}
		// The answer was settled as incorrect; record the malformed reply.
		log.Printf("grader reply for %s did not parse: %v", h.AnswerID, applyErr)
	}
	if cm == old {
		// Stale key or already settled entry: nothing changed.
		return nil
	}
	return s.state.Put(ctx, h.StudentID, h.ProblemID, cm)
}
