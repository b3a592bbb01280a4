package dragdrop

import (
	"encoding/json"
	"fmt"
)

type groupDecl struct {
	Draggables []string          `json:"draggables"`
	Targets    []json.RawMessage `json:"targets"`
	Rule       string            `json:"rule"`
}

// ParseAnswer decodes an instructor correct-answer declaration. Two forms
// are accepted: a JSON object mapping each draggable to its position, and a
// JSON list of answer groups with draggables, targets and a matching rule.
func ParseAnswer(s string) ([]Group, error) {
	var dict map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &dict); err == nil {
		correct := make(map[string]Position, len(dict))
		for d, raw := range dict {
			pos, err := parsePosition(raw)
			if err != nil {
				return nil, fmt.Errorf("drag-and-drop answer: draggable %q: %w", d, err)
			}
			correct[d] = pos
		}
		return PairGroups(correct), nil
	}

	var decls []groupDecl
	if err := json.Unmarshal([]byte(s), &decls); err != nil {
		return nil, fmt.Errorf("drag-and-drop answer: %w", err)
	}
	groups := make([]Group, 0, len(decls))
	for i, decl := range decls {
		g := Group{Draggables: decl.Draggables, Rule: decl.Rule}
		if g.Rule == "" {
			g.Rule = RuleExact
		}
		for _, raw := range decl.Targets {
			pos, err := parsePosition(raw)
			if err != nil {
				return nil, fmt.Errorf("drag-and-drop answer: group %d: %w", i, err)
			}
			g.Targets = append(g.Targets, pos)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Check grades a drag-and-drop submission against a correct-answer
// declaration. Its shape matches the custom-response checker contract, so
// it can be registered directly as a built-in checker.
func Check(expect string, submission []string) (interface{}, error) {
	groups, err := ParseAnswer(expect)
	if err != nil {
		return nil, err
	}
	if len(submission) == 0 {
		return false, nil
	}
	ok, err := Grade(submission[0], groups)
	if err != nil {
		return nil, err
	}
	return ok, nil
}
