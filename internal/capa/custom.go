package capa

import (
	"context"
	"strings"

	"capa-grader/internal/domain"
)

func init() {
	Register(typeSpec{
		tag: "customresponse",
	}, newCustomResponse)
}

// customResponse delegates grading to a named checker function registered
// in the evaluation context. The checker may return a single verdict for
// the whole block or one verdict per input field.
type customResponse struct {
	base
	expect      string
	checkerName string
	emptyAnswer string
}

func newCustomResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["customresponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	name := node.Attr("cfn", "")
	if name == "" {
		return nil, domain.Specf("customresponse: missing cfn attribute")
	}
	if ctx.Checkers == nil || ctx.Checkers[name] == nil {
		return nil, domain.Specf("customresponse: unknown checker %q", name)
	}
	expect := node.Attr("expect", "")
	if expect == "" {
		expect = node.Attr("answer", "")
	}
	return &customResponse{
		base:        b,
		expect:      ctx.Expand(expect),
		checkerName: name,
		emptyAnswer: node.Attr("empty_answer_err", "You did not enter an answer"),
	}, nil
}

func (r *customResponse) Evaluate(_ context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	submission := make([]string, len(r.ids))
	for i, id := range r.ids {
		submission[i] = answers[id].Text
	}
	// A blank single submission short-circuits: checkers are written
	// assuming real input.
	if len(submission) == 1 && strings.TrimSpace(submission[0]) == "" {
		return r.entriesFor([]CheckResult{{OK: false, Msg: r.emptyAnswer}}), nil
	}
	check := r.ctx.Checkers[r.checkerName]
	verdict, err := check(r.expect, submission)
	if err != nil {
		return nil, err
	}
	results, err := r.normalize(verdict)
	if err != nil {
		return nil, err
	}
	return r.entriesFor(results), nil
}

// normalize maps the accepted checker return shapes to one CheckResult per
// input field.
func (r *customResponse) normalize(verdict interface{}) ([]CheckResult, error) {
	broadcast := func(res CheckResult) []CheckResult {
		out := make([]CheckResult, len(r.ids))
		for i := range out {
			out[i] = res
		}
		return out
	}
	switch v := verdict.(type) {
	case bool:
		return broadcast(CheckResult{OK: v}), nil
	case CheckResult:
		return broadcast(v), nil
	case []bool:
		if len(v) != len(r.ids) {
			return nil, domain.Specf("customresponse: checker %q returned %d verdicts for %d inputs", r.checkerName, len(v), len(r.ids))
		}
		out := make([]CheckResult, len(v))
		for i, ok := range v {
			out[i] = CheckResult{OK: ok}
		}
		return out, nil
	case []CheckResult:
		if len(v) != len(r.ids) {
			return nil, domain.Specf("customresponse: checker %q returned %d verdicts for %d inputs", r.checkerName, len(v), len(r.ids))
		}
		return v, nil
	default:
		return nil, domain.Specf("customresponse: checker %q returned unsupported type %T", r.checkerName, verdict)
	}
}

func (r *customResponse) entriesFor(results []CheckResult) *domain.CorrectMap {
	cm := domain.NewCorrectMap()
	per := r.points / float64(len(r.ids))
	for i, id := range r.ids {
		e := domain.CorrectMapEntry{
			Correctness:    domain.Incorrect,
			PointsPossible: per,
			Message:        results[i].Msg,
		}
		if results[i].OK {
			e.Correctness = domain.Correct
			e.PointsEarned = per
		}
		cm.Set(id, e)
	}
	return cm
}
