package capa

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// CheckFunc is a named checker for custom responses. It receives the
// expected-answer attribute and the raw submission values, and returns one
// of the accepted verdict shapes: bool, CheckResult, []bool or
// []CheckResult.
type CheckFunc func(expect string, submission []string) (interface{}, error)

// CheckResult is a checker verdict with an optional message for the student.
type CheckResult struct {
	OK  bool
	Msg string
}

// QueueConfig carries the external-grading wiring shared by all queued
// response types in a problem.
type QueueConfig struct {
	Submitter   QueueSubmitter
	CallbackURL string
	DefaultName string
}

// Context is the per-student evaluation environment for one problem
// rendering. Seed fixes randomized sampling, Variables feed expression
// substitution, and Checkers resolve cfn references.
type Context struct {
	Seed      int64
	StudentID string
	// ProblemID is filled in during problem construction; queued grading
	// requests carry it so replies can be routed back.
	ProblemID string
	Variables map[string]float64
	Checkers  map[string]CheckFunc
	Queue     QueueConfig
	Now       func() time.Time
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

var varRefPat = regexp.MustCompile(`\$\w+`)

// Expand substitutes $name references in attribute text with context
// variable values. The whole identifier is matched, so a variable can never
// be clobbered by another one sharing its prefix. Unknown names are left
// as-is.
func (c *Context) Expand(s string) string {
	if c == nil || len(c.Variables) == 0 || !strings.Contains(s, "$") {
		return s
	}
	return varRefPat.ReplaceAllStringFunc(s, func(ref string) string {
		if val, ok := c.Variables[ref[1:]]; ok {
			return fmt.Sprintf("%g", val)
		}
		return ref
	})
}
