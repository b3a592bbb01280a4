package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProblemNotFound indicates the problem definition could not be loaded.
	ErrProblemNotFound = errors.New("problem not found")
	// ErrStateNotFound is returned when no attempt state exists for a (student, problem) pair.
	ErrStateNotFound = errors.New("attempt state not found")
	// ErrPendingGrade is returned when final correctness is read while an
	// external grade is still outstanding for the answer.
	ErrPendingGrade = errors.New("grade pending external grader")
	// ErrAnswerNotFound indicates a queue reply referenced an answer id the
	// problem does not own.
	ErrAnswerNotFound = errors.New("answer id not found in problem")
)

// SpecificationError reports malformed problem authoring. It is surfaced to
// the course author, never to the student, and aborts problem construction.
type SpecificationError struct {
	Msg string
}

func (e *SpecificationError) Error() string { return "problem specification: " + e.Msg }

// Specf builds a SpecificationError from a format string.
func Specf(format string, args ...interface{}) error {
	return &SpecificationError{Msg: fmt.Sprintf(format, args...)}
}

// StudentInputError reports student input that could not be interpreted. It
// is recoverable: the submission still counts as an attempt and the message
// is shown inline to the student.
type StudentInputError struct {
	Msg string
}

func (e *StudentInputError) Error() string { return "invalid input: " + e.Msg }

// Inputf builds a StudentInputError from a format string.
func Inputf(format string, args ...interface{}) error {
	return &StudentInputError{Msg: fmt.Sprintf(format, args...)}
}

// IsStudentInput reports whether err is a StudentInputError.
func IsStudentInput(err error) bool {
	var sie *StudentInputError
	return errors.As(err, &sie)
}

// GraderCommunicationError reports that the external grading queue could not
// be reached. The submission is recorded as incomplete, not failed.
type GraderCommunicationError struct {
	Err error
}

func (e *GraderCommunicationError) Error() string {
	return "grader unreachable: " + e.Err.Error()
}

func (e *GraderCommunicationError) Unwrap() error { return e.Err }

// InvalidGraderReplyError reports a malformed async score message. The
// callback handler logs it and records an error entry instead of crashing.
type InvalidGraderReplyError struct {
	Msg string
}

func (e *InvalidGraderReplyError) Error() string { return "invalid grader reply: " + e.Msg }
