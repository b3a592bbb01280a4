package capa

import (
	"context"
	"fmt"

	"capa-grader/internal/domain"
)

func init() {
	Register(typeSpec{
		tag:           "multiplechoiceresponse",
		allowedInputs: []string{"choicegroup"},
		maxInputs:     1,
	}, newMultipleChoiceResponse)
	Register(typeSpec{
		tag:           "truefalseresponse",
		allowedInputs: []string{"choicegroup"},
		maxInputs:     1,
	}, newTrueFalseResponse)
}

// multipleChoiceResponse grades a single-select choice group: the chosen
// option must be one of the options marked correct.
type multipleChoiceResponse struct {
	base
	correct map[string]bool
}

func collectChoices(node *Node, inputs []*Node) (map[string]bool, error) {
	if len(inputs) == 0 {
		return nil, domain.Specf("%s: missing choice group", node.Tag)
	}
	correct := map[string]bool{}
	for i, c := range inputs[0].FindAll("choice") {
		name := c.Attr("name", "")
		if name == "" {
			name = fmt.Sprintf("choice_%d", i)
			c.Attrs["name"] = name
		}
		if c.Attr("correct", "false") == "true" {
			correct[name] = true
		}
	}
	return correct, nil
}

func newMultipleChoiceResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["multiplechoiceresponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	correct, err := collectChoices(node, inputs)
	if err != nil {
		return nil, err
	}
	return &multipleChoiceResponse{base: b, correct: correct}, nil
}

func (r *multipleChoiceResponse) Evaluate(_ context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	ans, err := r.answerFor(answers, 0)
	if err != nil {
		return nil, err
	}
	return r.verdict(r.correct[ans.Text]), nil
}

// trueFalseResponse grades a multi-select choice group where the selection
// must exactly match the set of correct options.
type trueFalseResponse struct {
	base
	correct map[string]bool
}

func newTrueFalseResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["truefalseresponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	correct, err := collectChoices(node, inputs)
	if err != nil {
		return nil, err
	}
	return &trueFalseResponse{base: b, correct: correct}, nil
}

func (r *trueFalseResponse) Evaluate(_ context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	ans, err := r.answerFor(answers, 0)
	if err != nil {
		return nil, err
	}
	return r.verdict(setEqual(ans.Values(), r.correct)), nil
}
