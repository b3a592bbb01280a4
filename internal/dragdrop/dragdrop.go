// Package dragdrop grades drag-and-drop submissions: JSON lists of
// (draggable, position) pairs checked against instructor-declared answer
// groups under one of several matching rules.
package dragdrop

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Matching rules. Within a group only positions are compared; which of the
// group's draggables sits where does not matter. The "+number" variants
// additionally require the student to have placed exactly as many
// draggables as the group declares.
const (
	RuleExact                = "exact"
	RuleAnyOf                = "anyof"
	RuleUnorderedEqual       = "unordered_equal"
	RuleAnyOfNumber          = "anyof+number"
	RuleUnorderedEqualNumber = "unordered_equal+number"
)

// defaultRadius is the position tolerance in pixels when neither side of a
// coordinate comparison declares one.
const defaultRadius = 10

// Position is one placement: a named target, or a pixel coordinate,
// optionally with an explicit tolerance radius.
type Position struct {
	Target    string
	Point     []float64
	Radius    float64
	HasRadius bool
}

// Equal reports whether two placements match: same target name, or points
// within the tolerance radius (inclusive). The explicit radius of either
// side wins over the default; a target never equals a coordinate.
func (p Position) Equal(q Position) bool {
	if p.Target != "" || q.Target != "" {
		return p.Target == q.Target
	}
	if len(p.Point) != 2 || len(q.Point) != 2 {
		return false
	}
	r := float64(defaultRadius)
	switch {
	case p.HasRadius:
		r = p.Radius
	case q.HasRadius:
		r = q.Radius
	}
	return math.Hypot(p.Point[0]-q.Point[0], p.Point[1]-q.Point[1]) <= r
}

// Group is one instructor answer group: the draggables it owns, the
// positions they belong at, and the matching rule.
type Group struct {
	Draggables []string
	Targets    []Position
	Rule       string
}

// PairGroups converts the dict answer form, one position per draggable,
// into single-draggable groups graded under the exact rule.
func PairGroups(correct map[string]Position) []Group {
	groups := make([]Group, 0, len(correct))
	for d, pos := range correct {
		groups = append(groups, Group{Draggables: []string{d}, Targets: []Position{pos}, Rule: RuleExact})
	}
	return groups
}

type userPair struct {
	draggable string
	pos       Position
}

// Grade checks a submission against the answer groups. Every group must be
// satisfied and every placed draggable must belong to some group.
func Grade(userInput string, groups []Group) (bool, error) {
	pairs, err := parseSubmission(userInput)
	if err != nil {
		return false, err
	}
	owned := map[string]bool{}
	for _, g := range groups {
		for _, d := range g.Draggables {
			owned[d] = true
		}
	}
	for _, p := range pairs {
		if !owned[p.draggable] {
			return false, nil
		}
	}
	for _, g := range groups {
		if !gradeGroup(g, pairs) {
			return false, nil
		}
	}
	return true, nil
}

func gradeGroup(g Group, all []userPair) bool {
	member := map[string]bool{}
	for _, d := range g.Draggables {
		member[d] = true
	}
	var placed []Position
	for _, p := range all {
		if member[p.draggable] {
			placed = append(placed, p.pos)
		}
	}
	if len(g.Targets) > 0 && len(placed) == 0 {
		return false
	}
	rule, wantCount := g.Rule, false
	if base, ok := strings.CutSuffix(g.Rule, "+number"); ok {
		rule, wantCount = base, true
	}
	if wantCount && len(placed) != len(g.Draggables) {
		return false
	}
	switch rule {
	case RuleExact:
		if len(placed) != len(g.Targets) {
			return false
		}
		for i, pos := range placed {
			if !pos.Equal(g.Targets[i]) {
				return false
			}
		}
		return true
	case RuleAnyOf:
		return coveredBy(placed, g.Targets)
	case RuleUnorderedEqual:
		return len(placed) == len(g.Targets) &&
			coveredBy(placed, g.Targets) && coveredBy(g.Targets, placed)
	default:
		return false
	}
}

// coveredBy reports whether every position in from matches some position
// in pool.
func coveredBy(from, pool []Position) bool {
	for _, p := range from {
		found := false
		for _, q := range pool {
			if p.Equal(q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// parseSubmission decodes {"draggables": [{id: position}, ...]} preserving
// submission order.
func parseSubmission(s string) ([]userPair, error) {
	var outer struct {
		Draggables []map[string]json.RawMessage `json:"draggables"`
	}
	if err := json.Unmarshal([]byte(s), &outer); err != nil {
		return nil, fmt.Errorf("drag-and-drop submission: %w", err)
	}
	var pairs []userPair
	for _, entry := range outer.Draggables {
		for id, raw := range entry {
			pos, err := parsePosition(raw)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, userPair{draggable: id, pos: pos})
		}
	}
	return pairs, nil
}

// parsePosition accepts "targetname", [x, y] or [[x, y], radius].
func parsePosition(raw json.RawMessage) (Position, error) {
	var target string
	if err := json.Unmarshal(raw, &target); err == nil {
		return Position{Target: target}, nil
	}
	var nums []float64
	if err := json.Unmarshal(raw, &nums); err == nil && len(nums) == 2 {
		return Position{Point: nums}, nil
	}
	var withRadius []json.RawMessage
	if err := json.Unmarshal(raw, &withRadius); err == nil && len(withRadius) == 2 {
		var pt []float64
		var r float64
		if json.Unmarshal(withRadius[0], &pt) == nil && len(pt) == 2 &&
			json.Unmarshal(withRadius[1], &r) == nil {
			return Position{Point: pt, Radius: r, HasRadius: true}, nil
		}
	}
	return Position{}, fmt.Errorf("drag-and-drop submission: bad position %s", string(raw))
}

// ParseTarget parses an instructor position declaration: a target name, or
// "[x,y]" / "[[x,y],r]" coordinate text.
func ParseTarget(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return Position{Target: s}, nil
	}
	return parsePosition(json.RawMessage(s))
}
