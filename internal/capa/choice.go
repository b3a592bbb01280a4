package capa

import (
	"context"

	"capa-grader/internal/domain"
)

func init() {
	Register(typeSpec{
		tag:           "choiceresponse",
		allowedInputs: []string{"checkboxgroup", "radiogroup"},
		maxInputs:     1,
	}, newChoiceResponse)
}

// choiceResponse grades a checkbox or radio group: the selected set must
// exactly equal the set of choices marked correct.
type choiceResponse struct {
	base
	correct map[string]bool
}

func newChoiceResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["choiceresponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	correct, err := collectChoices(node, inputs)
	if err != nil {
		return nil, err
	}
	return &choiceResponse{base: b, correct: correct}, nil
}

func (r *choiceResponse) Evaluate(_ context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	ans, err := r.answerFor(answers, 0)
	if err != nil {
		return nil, err
	}
	return r.verdict(setEqual(ans.Values(), r.correct)), nil
}

// setEqual compares the selection as a set against the correct choices, so
// repeating a choice never substitutes for a missing one.
func setEqual(selected []string, correct map[string]bool) bool {
	seen := make(map[string]bool, len(selected))
	for _, name := range selected {
		if !correct[name] {
			return false
		}
		seen[name] = true
	}
	return len(seen) == len(correct)
}
