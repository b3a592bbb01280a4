package capa

import (
	"context"
	"math"
	"math/cmplx"

	"capa-grader/internal/domain"
	"capa-grader/internal/formula"
)

func init() {
	Register(typeSpec{
		tag:           "numericalresponse",
		allowedInputs: []string{"textline"},
		maxInputs:     1,
		requiredAttrs: []string{"answer"},
		hintTag:       "numericalhint",
	}, newNumericalResponse)
}

// numericalResponse checks a numeric answer against an instructor value
// within a tolerance. Both sides may be expressions over context variables.
type numericalResponse struct {
	base
	answer    string
	tolerance string
}

func newNumericalResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["numericalresponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	r := &numericalResponse{base: b}
	r.answer = ctx.Expand(node.Attr("answer", ""))
	r.tolerance = ctx.Expand(r.responseParam("tolerance", "0"))
	// Validate the instructor answer up front so authoring mistakes fail
	// at parse time, not when the first student submits.
	if _, err := formula.EvalNumber(r.answer, ctx.Variables); err != nil {
		return nil, domain.Specf("numericalresponse: bad answer %q: %v", r.answer, err)
	}
	return r, nil
}

func (r *numericalResponse) Evaluate(_ context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	ans, err := r.answerFor(answers, 0)
	if err != nil {
		return nil, err
	}
	student, err := formula.EvalNumber(ans.Text, r.ctx.Variables)
	if err != nil {
		return nil, domain.Inputf("could not interpret %q as a number", ans.Text)
	}
	expected, err := formula.EvalNumber(r.answer, r.ctx.Variables)
	if err != nil {
		return nil, err
	}
	if cmplx.IsNaN(student) || cmplx.IsInf(student) || math.IsNaN(real(student)) {
		return r.verdict(false), nil
	}
	ok, err := formula.CompareWithTolerance(student, expected, r.tolerance)
	if err != nil {
		return nil, err
	}
	cm := r.verdict(ok)
	r.applyHints(r, ans, cm)
	return cm, nil
}

// matchesHint checks a <numericalhint answer=... tolerance=...> condition
// against the student's value.
func (r *numericalResponse) matchesHint(cond *Node, answer domain.Answer) bool {
	target := r.ctx.Expand(cond.Attr("answer", ""))
	tol := r.ctx.Expand(cond.Attr("tolerance", r.tolerance))
	student, err := formula.EvalNumber(answer.Text, r.ctx.Variables)
	if err != nil {
		return false
	}
	expected, err := formula.EvalNumber(target, r.ctx.Variables)
	if err != nil {
		return false
	}
	ok, err := formula.CompareWithTolerance(student, expected, tol)
	return err == nil && ok
}

func (r *numericalResponse) Answers() map[string]string {
	return map[string]string{r.ids[0]: r.answer}
}
