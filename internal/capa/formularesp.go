package capa

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"

	"capa-grader/internal/domain"
	"capa-grader/internal/formula"
)

func init() {
	Register(typeSpec{
		tag:           "formularesponse",
		allowedInputs: []string{"textline", "textbox"},
		maxInputs:     1,
		requiredAttrs: []string{"answer", "samples"},
		hintTag:       "formulahint",
	}, newFormulaResponse)
}

// formulaResponse checks a symbolic expression for numerical equivalence
// with the instructor expression: both are evaluated at randomly sampled
// variable assignments and compared within a tolerance at every point.
type formulaResponse struct {
	base
	answer        string
	samples       formula.SampleSpec
	tolerance     string
	caseSensitive bool
}

func newFormulaResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["formularesponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	spec, err := formula.ParseSamples(node.Attr("samples", ""))
	if err != nil {
		return nil, domain.Specf("formularesponse: %v", err)
	}
	r := &formulaResponse{
		base:          b,
		answer:        node.Attr("answer", ""),
		samples:       spec,
		tolerance:     b.responseParam("tolerance", "0.00001"),
		caseSensitive: strings.EqualFold(node.Attr("type", "ci"), "cs"),
	}
	return r, nil
}

// equivalent samples both expressions and compares each pair of values.
func (r *formulaResponse) equivalent(given string) (bool, error) {
	rng := rand.New(rand.NewSource(r.ctx.Seed))
	for i := 0; i < r.samples.Count; i++ {
		vars := r.samples.Draw(rng)
		want, err := formula.Eval(r.answer, vars, r.caseSensitive)
		if err != nil {
			return false, domain.Specf("formularesponse: bad instructor answer %q: %v", r.answer, err)
		}
		got, err := formula.Eval(given, vars, r.caseSensitive)
		if err != nil {
			if errors.Is(err, formula.ErrUndefinedVariable) {
				return false, domain.Inputf("your expression uses a variable not defined for this problem")
			}
			return false, domain.Inputf("could not interpret %q as a formula", given)
		}
		if math.IsNaN(got) || math.IsInf(got, 0) {
			return false, nil
		}
		ok, err := formula.CompareWithTolerance(complex(got, 0), complex(want, 0), r.tolerance)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (r *formulaResponse) Evaluate(_ context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	ans, err := r.answerFor(answers, 0)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(ans.Text) == "" {
		return nil, domain.Inputf("no formula entered")
	}
	ok, err := r.equivalent(ans.Text)
	if err != nil {
		return nil, err
	}
	cm := r.verdict(ok)
	r.applyHints(r, ans, cm)
	return cm, nil
}

// matchesHint checks a <formulahint answer=... samples=...> condition: the
// student expression must be equivalent to the hint's expression.
func (r *formulaResponse) matchesHint(cond *Node, answer domain.Answer) bool {
	hint := *r
	hint.answer = cond.Attr("answer", "")
	if s := cond.Attr("samples", ""); s != "" {
		spec, err := formula.ParseSamples(s)
		if err != nil {
			return false
		}
		hint.samples = spec
	}
	ok, err := hint.equivalent(answer.Text)
	return err == nil && ok
}

func (r *formulaResponse) Answers() map[string]string {
	return map[string]string{r.ids[0]: r.answer}
}
