package capa

import (
	"context"
	"strings"

	"capa-grader/internal/domain"
)

func init() {
	Register(typeSpec{
		tag:           "stringresponse",
		allowedInputs: []string{"textline"},
		maxInputs:     1,
		requiredAttrs: []string{"answer"},
		hintTag:       "stringhint",
	}, newStringResponse)
}

// stringResponse compares a text answer literally, with optional
// case-insensitive matching via type="ci".
type stringResponse struct {
	base
	answer        string
	caseSensitive bool
}

func newStringResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["stringresponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	return &stringResponse{
		base:          b,
		answer:        ctx.Expand(node.Attr("answer", "")),
		caseSensitive: !strings.EqualFold(node.Attr("type", "cs"), "ci"),
	}, nil
}

func (r *stringResponse) matches(given, want string) bool {
	given = strings.TrimSpace(given)
	want = strings.TrimSpace(want)
	if r.caseSensitive {
		return given == want
	}
	return strings.EqualFold(given, want)
}

func (r *stringResponse) Evaluate(_ context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	ans, err := r.answerFor(answers, 0)
	if err != nil {
		return nil, err
	}
	cm := r.verdict(r.matches(ans.Text, r.answer))
	r.applyHints(r, ans, cm)
	return cm, nil
}

// matchesHint checks a <stringhint answer=...> condition.
func (r *stringResponse) matchesHint(cond *Node, answer domain.Answer) bool {
	return r.matches(answer.Text, r.ctx.Expand(cond.Attr("answer", "")))
}

func (r *stringResponse) Answers() map[string]string {
	return map[string]string{r.ids[0]: r.answer}
}
