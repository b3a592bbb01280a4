package capa

import (
	"context"
	"encoding/json"
	"strings"

	"capa-grader/internal/domain"
	"capa-grader/internal/xqueue"
)

func init() {
	Register(typeSpec{
		tag:           "coderesponse",
		allowedInputs: []string{"textbox", "filesubmission"},
		maxInputs:     1,
	}, newCodeResponse)
}

// codeResponse submits program source to an external grader and applies the
// asynchronous score reply. Until the reply arrives the answer is queued:
// incomplete, carrying its correlation key.
type codeResponse struct {
	base
	queueName      string
	payload        string
	initialDisplay string
	answerDisplay  string
}

func newCodeResponse(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error) {
	b, err := newBase(registry["coderesponse"].spec, node, inputs, ids, ctx)
	if err != nil {
		return nil, err
	}
	r := &codeResponse{base: b, queueName: node.Attr("queuename", ctx.Queue.DefaultName)}
	if r.queueName == "" {
		return nil, domain.Specf("coderesponse: no queue name configured")
	}
	cp := node.Find("codeparam")
	if cp == nil {
		return nil, domain.Specf("coderesponse: missing <codeparam>")
	}
	gp := cp.Find("grader_payload")
	if gp == nil {
		return nil, domain.Specf("coderesponse: missing <grader_payload>")
	}
	r.payload = gp.TrimmedText()
	if d := cp.Find("initial_display"); d != nil {
		r.initialDisplay = d.TrimmedText()
	}
	if d := cp.Find("answer_display"); d != nil {
		r.answerDisplay = d.TrimmedText()
	}
	return r, nil
}

func (r *codeResponse) Evaluate(ctx context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error) {
	ans, err := r.answerFor(answers, 0)
	if err != nil {
		return nil, err
	}
	submission := ans.Text
	if ans.IsFile() {
		submission = strings.Join(ans.Files, "\n")
	}
	return submitToQueue(ctx, &r.base, r.queueName, r.payload, submission, r.points)
}

// UpdateScore applies a grader reply. A key mismatch is a silent no-op: the
// reply belongs to a submission that has since been superseded. A malformed
// body settles the answer as incorrect rather than leaving it queued.
func (r *codeResponse) UpdateScore(reply []byte, queueKey string, old *domain.CorrectMap, answerID string) (*domain.CorrectMap, error) {
	return applyQueueReply(old, answerID, queueKey, r.points, func() (domain.CorrectMapEntry, error) {
		var msg struct {
			Correct *bool    `json:"correct"`
			Score   *float64 `json:"score"`
			Msg     *string  `json:"msg"`
		}
		if err := json.Unmarshal(reply, &msg); err != nil {
			return domain.CorrectMapEntry{}, &domain.InvalidGraderReplyError{Msg: err.Error()}
		}
		if msg.Correct == nil || msg.Score == nil || msg.Msg == nil {
			return domain.CorrectMapEntry{}, &domain.InvalidGraderReplyError{Msg: "reply must carry correct, score and msg"}
		}
		e := domain.CorrectMapEntry{Correctness: domain.Incorrect, Message: *msg.Msg}
		if *msg.Correct {
			e.Correctness = domain.Correct
		}
		// The grader reports points directly; only negatives are sanitized.
		e.PointsEarned = *msg.Score
		if e.PointsEarned < 0 {
			e.PointsEarned = 0
		}
		return e, nil
	})
}

func (r *codeResponse) Answers() map[string]string {
	if r.answerDisplay == "" {
		return map[string]string{}
	}
	return map[string]string{r.ids[0]: r.answerDisplay}
}

// submitToQueue posts one submission to the external queue and returns the
// queued entry. A transport failure yields an incomplete entry asking the
// student to retry, never an error.
func submitToQueue(ctx context.Context, b *base, queueName, payload, submission string, points float64) (*domain.CorrectMap, error) {
	now := b.ctx.now()
	key := xqueue.MakeKey(b.ctx.Seed, now, b.ctx.StudentID, b.ids[0])
	req := xqueue.Request{
		Header: xqueue.Header{
			CallbackURL: b.ctx.Queue.CallbackURL,
			Key:         key,
			QueueName:   queueName,
			StudentID:   b.ctx.StudentID,
			ProblemID:   b.ctx.ProblemID,
			AnswerID:    b.ids[0],
		},
		Body: xqueue.Body{
			GraderPayload:   payload,
			StudentInfo:     xqueue.EncodeStudentInfo(b.ctx.StudentID, now),
			StudentResponse: submission,
			MaxScore:        points,
		},
	}
	if b.ctx.Queue.Submitter == nil {
		return nil, domain.Specf("%s: no queue submitter configured", b.spec.tag)
	}
	if err := b.ctx.Queue.Submitter.Submit(ctx, req); err != nil {
		return domain.NewSingleCorrectMap(b.ids[0], domain.CorrectMapEntry{
			Correctness:    domain.Incomplete,
			PointsPossible: points,
			Message:        "Unable to deliver your submission. Please try again later.",
		}), nil
	}
	return domain.NewSingleCorrectMap(b.ids[0], domain.CorrectMapEntry{
		Correctness:    domain.Incomplete,
		PointsPossible: points,
		Message:        "Submitted for grading.",
		Queue:          &domain.QueueState{Key: key, SubmittedAt: now},
	}), nil
}

// applyQueueReply implements the shared reply state machine: only an entry
// queued under the matching key transitions; a mismatched key or an already
// settled entry is a no-op. A reply that fails to parse still settles the
// answer (as incorrect) so it can never stay queued forever, and the parse
// error is returned for logging.
func applyQueueReply(old *domain.CorrectMap, answerID, queueKey string, points float64, parse func() (domain.CorrectMapEntry, error)) (*domain.CorrectMap, error) {
	if old == nil {
		return nil, domain.ErrStateNotFound
	}
	if !old.MatchesQueueKey(answerID, queueKey) {
		return old, nil
	}
	cm := old.Clone()
	e, err := parse()
	if err != nil {
		e = domain.CorrectMapEntry{
			Correctness: domain.Incorrect,
			Message:     "Invalid grader reply. Please contact course staff.",
		}
	}
	e.PointsPossible = points
	e.Queue = nil
	cm.Set(answerID, e)
	return cm, err
}

func clampPoints(earned, possible float64) float64 {
	if earned < 0 {
		return 0
	}
	if earned > possible {
		return possible
	}
	return earned
}
