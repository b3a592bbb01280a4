// Package capa implements the problem response engine: it parses problem
// markup into typed response handlers and evaluates student answers into
// per-answer correctness maps.
package capa

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"capa-grader/internal/domain"
	"capa-grader/internal/xqueue"
)

// QueueSubmitter delivers external-grading requests. Alias so callers of
// this package don't need the transport package for the common case.
type QueueSubmitter = xqueue.Submitter

// Response evaluates one response block of a problem.
type Response interface {
	// Evaluate scores the student answers for this block. Every answer id
	// the block owns gets an entry in the returned map.
	Evaluate(ctx context.Context, answers domain.StudentAnswers) (*domain.CorrectMap, error)
	// Answers returns the displayable correct answer per answer id, for
	// blocks that have a static one.
	Answers() map[string]string
	// AnswerIDs lists the answer ids this block owns, in document order.
	AnswerIDs() []string
	// MaxScore is the total points this block is worth.
	MaxScore() float64
}

// Updater is implemented by response types whose score arrives later from
// an external grader.
type Updater interface {
	Response
	// UpdateScore applies a grader reply body to the queued entry for
	// answerID in old, returning the updated map.
	UpdateScore(reply []byte, queueKey string, old *domain.CorrectMap, answerID string) (*domain.CorrectMap, error)
}

// builder constructs a response handler from its parsed markup node and the
// input fields that follow it.
type builder func(node *Node, inputs []*Node, ids []string, ctx *Context) (Response, error)

type typeSpec struct {
	tag           string
	allowedInputs []string
	maxInputs     int // 0 means unlimited
	requiredAttrs []string
	hintTag       string
}

var registry = map[string]struct {
	spec  typeSpec
	build builder
}{}

// Register installs a response type. Called from init funcs of the type
// files; the tag set drives problem parsing.
func Register(spec typeSpec, build builder) {
	registry[spec.tag] = struct {
		spec  typeSpec
		build builder
	}{spec, build}
}

// ResponseTags returns the registered response tags, sorted.
func ResponseTags() []string {
	tags := make([]string, 0, len(registry))
	for t := range registry {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// inputTags is the set of field tags that carry student input. Fields are
// bound to the nearest preceding response block during parsing.
var inputTags = map[string]bool{
	"textline":       true,
	"textbox":        true,
	"filesubmission": true,
	"choicegroup":    true,
	"checkboxgroup":  true,
	"radiogroup":     true,
	"optioninput":    true,
	"imageinput":     true,
	"openendedinput": true,
}

func (s typeSpec) validate(node *Node, inputs []*Node) error {
	for _, attr := range s.requiredAttrs {
		if !node.HasAttr(attr) {
			return domain.Specf("%s: missing required attribute %q", s.tag, attr)
		}
	}
	if s.maxInputs > 0 && len(inputs) > s.maxInputs {
		return domain.Specf("%s: at most %d input field(s) allowed, found %d", s.tag, s.maxInputs, len(inputs))
	}
	if len(s.allowedInputs) > 0 {
		allowed := map[string]bool{}
		for _, t := range s.allowedInputs {
			allowed[t] = true
		}
		for _, in := range inputs {
			if !allowed[in.Tag] {
				return domain.Specf("%s: input field <%s> not allowed here", s.tag, in.Tag)
			}
		}
	}
	return nil
}

// base carries the state shared by all response types: the markup node,
// the bound input fields and their answer ids, and the evaluation context.
type base struct {
	spec   typeSpec
	node   *Node
	inputs []*Node
	ids    []string
	ctx    *Context
	points float64
}

func newBase(spec typeSpec, node *Node, inputs []*Node, ids []string, ctx *Context) (base, error) {
	if err := spec.validate(node, inputs); err != nil {
		return base{}, err
	}
	points := 1.0
	if p := node.Attr("points", ""); p != "" {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return base{}, domain.Specf("%s: bad points attribute %q", spec.tag, p)
		}
		points = v
	}
	return base{spec: spec, node: node, inputs: inputs, ids: ids, ctx: ctx, points: points}, nil
}

func (b *base) AnswerIDs() []string { return b.ids }
func (b *base) MaxScore() float64   { return b.points }

// Answers is the default static-answer map: the correct_answer attribute of
// each input field, when present.
func (b *base) Answers() map[string]string {
	out := map[string]string{}
	for i, in := range b.inputs {
		if v := in.Attr("correct_answer", ""); v != "" {
			out[b.ids[i]] = v
		}
	}
	return out
}

// singleEntry builds a one-answer map for response types with exactly one
// input field.
func (b *base) singleEntry(e domain.CorrectMapEntry) *domain.CorrectMap {
	if e.Correctness == domain.Correct {
		e.PointsEarned = b.points
	}
	e.PointsPossible = b.points
	return domain.NewSingleCorrectMap(b.ids[0], e)
}

func (b *base) verdict(ok bool) *domain.CorrectMap {
	c := domain.Incorrect
	if ok {
		c = domain.Correct
	}
	return b.singleEntry(domain.CorrectMapEntry{Correctness: c})
}

// responseParam returns the text of <responseparam type=...> under the
// block, or def.
func (b *base) responseParam(typ, def string) string {
	for _, p := range b.node.FindAll("responseparam") {
		if p.Attr("type", "") == typ {
			if v := p.Attr("default", ""); v != "" {
				return v
			}
			if t := p.TrimmedText(); t != "" {
				return t
			}
		}
	}
	return def
}

// hintable is implemented by response types that support conditional hints.
type hintable interface {
	matchesHint(cond *Node, answer domain.Answer) bool
}

// applyHints walks the hintgroup of the block, if any, and attaches the
// first matching hint to the entry.
func (b *base) applyHints(h hintable, answer domain.Answer, cm *domain.CorrectMap) {
	hg := b.node.Find("hintgroup")
	if hg == nil || b.spec.hintTag == "" {
		return
	}
	for _, cond := range hg.FindAll(b.spec.hintTag) {
		if !h.matchesHint(cond, answer) {
			continue
		}
		name := cond.Attr("name", "")
		for _, hint := range hg.FindAll("hintpart") {
			if hint.Attr("on", "") != name {
				continue
			}
			text := hint.TrimmedText()
			if t := hint.Find("text"); t != nil {
				text = t.TrimmedText()
			}
			mode := domain.HintAlways
			if strings.EqualFold(hg.Attr("mode", ""), "on_request") {
				mode = domain.HintOnRequest
			}
			cm.SetHint(b.ids[0], text, mode)
			return
		}
	}
}

// answerFor fetches the student's answer for the i-th input field of this
// block, with a StudentInputError when it is absent.
func (b *base) answerFor(answers domain.StudentAnswers, i int) (domain.Answer, error) {
	a, ok := answers[b.ids[i]]
	if !ok {
		return domain.Answer{}, domain.Inputf("no answer supplied for %s", b.ids[i])
	}
	return a, nil
}

func (b *base) String() string {
	return fmt.Sprintf("<%s %v>", b.spec.tag, b.ids)
}
