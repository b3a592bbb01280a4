package capa

import (
	"context"
	"errors"
	"fmt"

	"capa-grader/internal/domain"
)

// Problem is a parsed problem document: an ordered list of response
// handlers with stable answer ids.
type Problem struct {
	ID        string
	responses []Response
	ctx       *Context
}

// NewProblem parses problem markup and builds its response handlers. Answer
// ids are derived from the problem id and the position of each response
// block and input field, so they are stable across re-parses of the same
// document.
func NewProblem(id string, data []byte, ctx *Context) (*Problem, error) {
	root, err := ParseXML(data)
	if err != nil {
		return nil, domain.Specf("problem %s: bad markup: %v", id, err)
	}
	if root == nil || root.Tag != "problem" {
		return nil, domain.Specf("problem %s: root element must be <problem>", id)
	}
	if ctx == nil {
		ctx = &Context{}
	}
	ctx.ProblemID = id
	p := &Problem{ID: id, ctx: ctx}
	respIndex := 2 // historical numbering: the first response block is _2
	for _, node := range root.FindAny(responseTagSet()) {
		inputs := node.FindAny(inputTags)
		ids := make([]string, len(inputs))
		for i := range inputs {
			ids[i] = fmt.Sprintf("%s_%d_%d", id, respIndex, i+1)
		}
		entry := registry[node.Tag]
		r, err := entry.build(node, inputs, ids, ctx)
		if err != nil {
			return nil, err
		}
		p.responses = append(p.responses, r)
		respIndex++
	}
	return p, nil
}

func responseTagSet() map[string]bool {
	set := make(map[string]bool, len(registry))
	for t := range registry {
		set[t] = true
	}
	return set
}

// Responses returns the problem's response handlers in document order.
func (p *Problem) Responses() []Response { return p.responses }

// AnswerIDs returns every answer id in the problem, in document order.
func (p *Problem) AnswerIDs() []string {
	var ids []string
	for _, r := range p.responses {
		ids = append(ids, r.AnswerIDs()...)
	}
	return ids
}

// MaxScore is the total points across all response blocks.
func (p *Problem) MaxScore() float64 {
	var total float64
	for _, r := range p.responses {
		total += r.MaxScore()
	}
	return total
}

// Answers collects the displayable correct answers for the whole problem.
func (p *Problem) Answers() map[string]string {
	out := map[string]string{}
	for _, r := range p.responses {
		for id, v := range r.Answers() {
			out[id] = v
		}
	}
	return out
}

// EvaluateAnswers scores the student answers against every response block.
// A failure in one block never aborts its siblings: student-input errors
// become incorrect entries carrying the message, and other errors mark the
// block's answers incorrect with a generic message. When old is non-nil the
// fresh results are overlaid onto a clone of it, preserving entries for
// answer ids not covered this time.
func (p *Problem) EvaluateAnswers(ctx context.Context, answers domain.StudentAnswers, old *domain.CorrectMap) (*domain.CorrectMap, error) {
	result := domain.NewCorrectMap()
	if old != nil {
		result = old.Clone()
	}
	for _, r := range p.responses {
		if !anyAnswered(r, answers) {
			// Nothing submitted for this block: previous entries stand.
			continue
		}
		cm, err := r.Evaluate(ctx, answers)
		if err != nil {
			msg := "Error evaluating response"
			var sie *domain.StudentInputError
			if errors.As(err, &sie) {
				msg = sie.Msg
			}
			cm = domain.NewCorrectMap()
			for _, id := range r.AnswerIDs() {
				cm.Set(id, domain.CorrectMapEntry{
					Correctness:    domain.Incorrect,
					PointsPossible: r.MaxScore(),
					Message:        msg,
				})
			}
		}
		result.Update(cm)
	}
	normalizeUnknown(result)
	return result, nil
}

// UpdateScore routes an external grader reply to the response block owning
// the answer id.
func (p *Problem) UpdateScore(reply []byte, queueKey, answerID string, old *domain.CorrectMap) (*domain.CorrectMap, error) {
	for _, r := range p.responses {
		u, ok := r.(Updater)
		if !ok {
			continue
		}
		for _, id := range r.AnswerIDs() {
			if id == answerID {
				return u.UpdateScore(reply, queueKey, old, answerID)
			}
		}
	}
	return nil, domain.ErrAnswerNotFound
}

func anyAnswered(r Response, answers domain.StudentAnswers) bool {
	for _, id := range r.AnswerIDs() {
		if _, ok := answers[id]; ok {
			return true
		}
	}
	return false
}

// normalizeUnknown collapses internal unknown verdicts to incorrect before
// the map leaves the engine.
func normalizeUnknown(cm *domain.CorrectMap) {
	for _, id := range cm.AnswerIDs() {
		e, _ := cm.Get(id)
		if e.Correctness == domain.Unknown {
			e.Correctness = domain.Incorrect
			e.PointsEarned = 0
			cm.Set(id, e)
		}
	}
}
