// Package xqueue defines the contract with the external grading queue:
// request/reply envelopes, the submission correlation key, and the
// Submitter interface implemented by queue transports.
package xqueue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// TimeFormat is the timestamp layout used in student submission metadata.
const TimeFormat = "20060102150405"

// Header identifies one grading request. It is echoed back verbatim by the
// grader, so it carries both the correlation key and the routing needed to
// apply the eventual score message.
type Header struct {
	CallbackURL string `json:"lms_callback_url"`
	Key         string `json:"lms_key"`
	QueueName   string `json:"queue_name"`
	StudentID   string `json:"student_id"`
	ProblemID   string `json:"problem_id"`
	AnswerID    string `json:"answer_id"`
}

// StudentInfo is submission metadata revealed to the external grader.
type StudentInfo struct {
	AnonymousStudentID string `json:"anonymous_student_id"`
	SubmissionTime     string `json:"submission_time"`
}

// Body is the grading payload for one submission.
type Body struct {
	GraderPayload   string  `json:"grader_payload"`
	StudentInfo     string  `json:"student_info"`
	StudentResponse string  `json:"student_response"`
	MaxScore        float64 `json:"max_score,omitempty"`
}

// Request is the full message posted to the grading queue.
type Request struct {
	Header Header `json:"xqueue_header"`
	Body   Body   `json:"xqueue_body"`
}

// Reply is the envelope the grader posts back: the echoed header plus the
// grader-specific score message.
type Reply struct {
	Header Header          `json:"xqueue_header"`
	Body   json.RawMessage `json:"xqueue_body"`
}

// Submitter delivers a grading request to the external queue. Submit must
// return promptly; grading happens out of band and the score arrives later
// through an independent reply.
type Submitter interface {
	Submit(ctx context.Context, req Request) error
}

// MakeKey derives the submission correlation key. It mixes a server-side
// seed with submission metadata so the token is unique per submission and
// not computable from client-visible fields alone.
func MakeKey(seed int64, submittedAt time.Time, anonymousStudentID, answerID string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d%s%s%s", seed, submittedAt.Format(TimeFormat), anonymousStudentID, answerID)
	return hex.EncodeToString(h.Sum(nil))
}

// EncodeStudentInfo renders the student metadata blob for a request body.
func EncodeStudentInfo(anonymousStudentID string, submittedAt time.Time) string {
	b, _ := json.Marshal(StudentInfo{
		AnonymousStudentID: anonymousStudentID,
		SubmissionTime:     submittedAt.Format(TimeFormat),
	})
	return string(b)
}
