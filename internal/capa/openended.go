package capa

import (
	"context"
	"encoding/json"
	"fmt"

	"capa-grader/internal/domain"
)

// openEndedCorrectFraction is the score fraction at or above which an
// externally graded essay counts as correct.
const openEndedCorrectFraction = 0.66

func init() {
	Register(typeSpec{
		tag:           "openendedresponse",
		allowedInputs: []string{"textbox", "openendedinput", "filesubmission"},
		maxInputs:     1,
	}, newOpenEndedResponse)
}

// openEndedResponse sends an essay answer to an external grading service
// together with the prompt and rubric, and applies the rubric-scored reply.
type openEndedResponse struct {
	base
	queueName string
	prompt    string
	rubric    string
	maxScore  float64
}

func newOpenEndedResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["openendedresponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	r := &openEndedResponse{base: b, queueName: node.Attr("queuename", ctx.Queue.DefaultName), maxScore: 1}
	if r.queueName == "" {
		return nil, domain.Specf("openendedresponse: no queue name configured")
	}
	op := node.Find("openendedparam")
	if op == nil {
		op = node.Find("oeparam")
	}
	if op == nil {
		return nil, domain.Specf("openendedresponse: missing <openendedparam>")
	}
	prompt := op.Find("prompt")
	rubric := op.Find("rubric")
	if prompt == nil || rubric == nil {
		return nil, domain.Specf("openendedresponse: prompt and rubric are required")
	}
	r.prompt = prompt.TrimmedText()
	r.rubric = rubric.TrimmedText()
	if ms := op.Find("max_score"); ms != nil {
		if _, err := fmt.Sscanf(ms.TrimmedText(), "%g", &r.maxScore); err != nil || r.maxScore <= 0 {
			return nil, domain.Specf("openendedresponse: bad max_score %q", ms.TrimmedText())
		}
	}
	return r, nil
}

func (r *openEndedResponse) Evaluate(ctx context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	ans, err := r.answerFor(answers, 0)
	if err != nil {
		return nil, err
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"prompt":    r.prompt,
		"rubric":    r.rubric,
		"max_score": r.maxScore,
	})
	return submitToQueue(ctx, &r.base, r.queueName, string(payload), ans.Text, r.points)
}

// UpdateScore applies an essay-grading reply. The reply must identify the
// grader and submission and carry a rubric score; correctness follows from
// the score fraction.
func (r *openEndedResponse) UpdateScore(reply []byte, queueKey string, old *domain.CorrectMap, answerID string) (*domain.CorrectMap, error) {
	return applyQueueReply(old, answerID, queueKey, r.points, func() (domain.CorrectMapEntry, error) {
		var msg struct {
			Score        *float64 `json:"score"`
			Feedback     *string  `json:"feedback"`
			GraderType   *string  `json:"grader_type"`
			Success      *bool    `json:"success"`
			GraderID     *int     `json:"grader_id"`
			SubmissionID *int     `json:"submission_id"`
		}
		if err := json.Unmarshal(reply, &msg); err != nil {
			return domain.CorrectMapEntry{}, &domain.InvalidGraderReplyError{Msg: err.Error()}
		}
		if msg.Score == nil || msg.Feedback == nil || msg.GraderType == nil ||
			msg.Success == nil || msg.GraderID == nil || msg.SubmissionID == nil {
			return domain.CorrectMapEntry{}, &domain.InvalidGraderReplyError{Msg: "reply missing required grading fields"}
		}
		if !*msg.Success {
			return domain.CorrectMapEntry{}, &domain.InvalidGraderReplyError{Msg: "grader reported failure"}
		}
		frac := *msg.Score / r.maxScore
		e := domain.CorrectMapEntry{Correctness: domain.Incorrect, Message: *msg.Feedback}
		if frac >= openEndedCorrectFraction {
			e.Correctness = domain.Correct
		}
		e.PointsEarned = clampPoints(frac*r.points, r.points)
		return e, nil
	})
}
