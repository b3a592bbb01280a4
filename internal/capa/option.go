package capa

import (
	"context"

	"capa-grader/internal/domain"
)

func init() {
	Register(typeSpec{
		tag:           "optionresponse",
		allowedInputs: []string{"optioninput"},
	}, newOptionResponse)
}

// optionResponse grades one or more dropdown fields, each carrying its own
// correct option in markup.
type optionResponse struct {
	base
	correct []string // parallel to inputs
}

func newOptionResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["optionresponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	r := &optionResponse{base: b, correct: make([]string, len(inputs))}
	for i, in := range inputs {
		if !in.HasAttr("correct") {
			return nil, domain.Specf("optionresponse: <optioninput> missing correct attribute")
		}
		r.correct[i] = in.Attr("correct", "")
	}
	return r, nil
}

func (r *optionResponse) Evaluate(_ context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	cm := domain.NewCorrectMap()
	for i, id := range r.ids {
		e := domain.CorrectMapEntry{Correctness: domain.Incorrect, PointsPossible: r.points}
		if a, ok := answers[id]; ok && a.Text == r.correct[i] {
			e.Correctness = domain.Correct
			e.PointsEarned = r.points
		}
		cm.Set(id, e)
	}
	return cm, nil
}

// MaxScore counts every dropdown: each one is worth the block's points.
func (r *optionResponse) MaxScore() float64 {
	return r.points * float64(len(r.ids))
}

func (r *optionResponse) Answers() map[string]string {
	out := map[string]string{}
	for i, id := range r.ids {
		out[id] = r.correct[i]
	}
	return out
}
