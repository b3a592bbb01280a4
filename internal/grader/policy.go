package grader

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// SubgraderConfig is one entry of the grading policy. An entry with
// min_count is an assignment-format grader; an entry with section_name is a
// single-section grader.
type SubgraderConfig struct {
	Weight       float64 `yaml:"weight"`
	MinCount     *int    `yaml:"min_count"`
	DropCount    int     `yaml:"drop_count"`
	CourseFormat string  `yaml:"course_format"`
	SectionName  string  `yaml:"section_name"`
	Category     string  `yaml:"category"`
	SectionType  string  `yaml:"section_type"`
	ShortLabel   string  `yaml:"short_label"`
}

// FromConfig builds the course grader from policy entries. Entries that
// name no recognizable grader are logged and skipped rather than failing
// the whole policy.
func FromConfig(entries []SubgraderConfig) Grader {
	var subs []WeightedSubsection
	for _, e := range entries {
		switch {
		case e.MinCount != nil:
			g := AssignmentFormatGrader{
				CourseFormat: e.CourseFormat,
				MinCount:     *e.MinCount,
				DropCount:    e.DropCount,
				Category:     e.Category,
				SectionType:  e.SectionType,
				ShortLabel:   e.ShortLabel,
			}
			subs = append(subs, WeightedSubsection{Grader: g, Category: g.category(), Weight: e.Weight})
		case e.SectionName != "":
			g := SingleSectionGrader{
				SectionFormat: e.CourseFormat,
				SectionName:   e.SectionName,
				ShortLabel:    e.ShortLabel,
				Category:      e.Category,
			}
			subs = append(subs, WeightedSubsection{Grader: g, Category: g.category(), Weight: e.Weight})
		default:
			log.Printf("grading policy entry has no recognizable grader, skipping: %+v", e)
		}
	}
	return WeightedSubsectionsGrader{Subsections: subs}
}

// LoadPolicy reads a YAML grading policy file.
func LoadPolicy(path string) (Grader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grading policy: %w", err)
	}
	var entries []SubgraderConfig
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse grading policy: %w", err)
	}
	return FromConfig(entries), nil
}
