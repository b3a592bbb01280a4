// Package grader aggregates per-section scores into a course grade. A
// grader consumes a grade sheet, the totaled scores of every graded
// section the student has started, and produces the overall percentage
// plus per-section and per-category breakdowns for display.
package grader

import (
	"fmt"
	"math/rand"
	"sort"
)

// Score is the totaled result of one section.
type Score struct {
	Earned   float64
	Possible float64
	Graded   bool
	Section  string
}

// GradeSheet maps a section format ("Homework", "Lab", ...) to the scores
// of the sections carrying that format. Sections the student never started
// may be missing.
type GradeSheet map[string][]Score

// SectionMark is one row of the section breakdown.
type SectionMark struct {
	Percent   float64
	Label     string
	Detail    string
	Category  string
	Prominent bool
	Dropped   bool
	DropNote  string
}

// GradeBreakdown is one row of the per-category contribution breakdown.
type GradeBreakdown struct {
	Percent  float64
	Detail   string
	Category string
}

// Result is a grader's output. GradeBreakdown is only populated by
// composite graders.
type Result struct {
	Percent          float64
	SectionBreakdown []SectionMark
	GradeBreakdown   []GradeBreakdown
}

// Grader computes an overall grade from a grade sheet.
type Grader interface {
	Grade(sheet GradeSheet) Result
}

// RandomScores, when non-nil, substitutes random scores for missing
// sections. Debug aid for populating display layouts with plausible data.
var RandomScores *rand.Rand

// SingleSectionGrader grades one named section: its earned/possible ratio,
// or zero when the student never started it.
type SingleSectionGrader struct {
	SectionFormat string
	SectionName   string
	ShortLabel    string
	Category      string
}

func (g SingleSectionGrader) shortLabel() string {
	if g.ShortLabel != "" {
		return g.ShortLabel
	}
	return g.SectionName
}

func (g SingleSectionGrader) category() string {
	if g.Category != "" {
		return g.Category
	}
	return g.SectionName
}

func (g SingleSectionGrader) Grade(sheet GradeSheet) Result {
	var found *Score
	for i, s := range sheet[g.SectionFormat] {
		if s.Section == g.SectionName {
			found = &sheet[g.SectionFormat][i]
			break
		}
	}
	var percent float64
	var detail string
	switch {
	case found != nil && found.Possible > 0:
		percent = found.Earned / found.Possible
		detail = scoreDetail(g.SectionName, percent, found.Earned, found.Possible)
	case RandomScores != nil:
		possible := float64(50 + RandomScores.Intn(50))
		earned := 40 + RandomScores.Float64()*(possible-40)
		percent = earned / possible
		detail = scoreDetail(g.SectionName, percent, earned, possible)
	default:
		detail = fmt.Sprintf("%s - 0%% (?/?)", g.SectionName)
	}
	return Result{
		Percent: percent,
		SectionBreakdown: []SectionMark{{
			Percent:   percent,
			Label:     g.shortLabel(),
			Detail:    detail,
			Category:  g.category(),
			Prominent: true,
		}},
	}
}

// AssignmentFormatGrader averages every section of one format with equal
// weight. The sheet is padded with zero scores up to MinCount, and the
// DropCount lowest percentages are excluded from the average.
type AssignmentFormatGrader struct {
	CourseFormat string
	MinCount     int
	DropCount    int
	Category     string
	SectionType  string
	ShortLabel   string
}

func (g AssignmentFormatGrader) category() string {
	if g.Category != "" {
		return g.Category
	}
	return g.CourseFormat
}

func (g AssignmentFormatGrader) sectionType() string {
	if g.SectionType != "" {
		return g.SectionType
	}
	return g.CourseFormat
}

func (g AssignmentFormatGrader) shortLabel() string {
	if g.ShortLabel != "" {
		return g.ShortLabel
	}
	return g.CourseFormat
}

func (g AssignmentFormatGrader) Grade(sheet GradeSheet) Result {
	scores := sheet[g.CourseFormat]
	count := len(scores)
	if g.MinCount > count {
		count = g.MinCount
	}
	breakdown := make([]SectionMark, 0, count+1)
	for i := 0; i < count; i++ {
		var percent float64
		var detail string
		switch {
		case i < len(scores):
			if scores[i].Possible > 0 {
				percent = scores[i].Earned / scores[i].Possible
			}
			detail = fmt.Sprintf("%s %d - %s", g.sectionType(), i+1,
				scoreDetail(scores[i].Section, percent, scores[i].Earned, scores[i].Possible))
		case RandomScores != nil:
			possible := float64(10 + RandomScores.Intn(40))
			earned := 5 + RandomScores.Float64()*(possible-5)
			percent = earned / possible
			detail = fmt.Sprintf("%s %d - %s", g.sectionType(), i+1,
				scoreDetail("Randomly Generated", percent, earned, possible))
		default:
			detail = fmt.Sprintf("%s %d Unreleased - 0%% (?/?)", g.sectionType(), i+1)
		}
		breakdown = append(breakdown, SectionMark{
			Percent:  percent,
			Label:    fmt.Sprintf("%s %02d", g.shortLabel(), i+1),
			Detail:   detail,
			Category: g.category(),
		})
	}

	total, dropped := totalWithDrops(breakdown, g.DropCount)
	for _, idx := range dropped {
		breakdown[idx].Dropped = true
		breakdown[idx].DropNote = fmt.Sprintf("The lowest %d %s scores are dropped.",
			g.DropCount, g.sectionType())
	}

	breakdown = append(breakdown, SectionMark{
		Percent:   total,
		Label:     fmt.Sprintf("%s Avg", g.shortLabel()),
		Detail:    fmt.Sprintf("%s Average = %s", g.sectionType(), formatPercent(total)),
		Category:  g.category(),
		Prominent: true,
	})
	return Result{Percent: total, SectionBreakdown: breakdown}
}

// totalWithDrops averages the percentages excluding the dropCount lowest.
// Ties break toward the later section, matching a stable descending sort.
func totalWithDrops(breakdown []SectionMark, dropCount int) (float64, []int) {
	order := make([]int, len(breakdown))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return breakdown[order[a]].Percent > breakdown[order[b]].Percent
	})
	var dropped []int
	if dropCount > 0 && dropCount <= len(order) {
		dropped = append(dropped, order[len(order)-dropCount:]...)
	}
	isDropped := map[int]bool{}
	for _, i := range dropped {
		isDropped[i] = true
	}
	var total float64
	for i, mark := range breakdown {
		if !isDropped[i] {
			total += mark.Percent
		}
	}
	if kept := len(breakdown) - dropCount; kept > 0 {
		total /= float64(kept)
	}
	return total, dropped
}

// WeightedSubsection pairs a subgrader with its category and its weight in
// the final grade.
type WeightedSubsection struct {
	Grader   Grader
	Category string
	Weight   float64
}

// WeightedSubsectionsGrader combines subgraders by weighted sum. Weights
// are used as given: a total above 1 is allowed and acts as extra credit.
type WeightedSubsectionsGrader struct {
	Subsections []WeightedSubsection
}

func (g WeightedSubsectionsGrader) Grade(sheet GradeSheet) Result {
	var out Result
	for _, sub := range g.Subsections {
		r := sub.Grader.Grade(sheet)
		weighted := r.Percent * sub.Weight
		out.Percent += weighted
		out.SectionBreakdown = append(out.SectionBreakdown, r.SectionBreakdown...)
		out.GradeBreakdown = append(out.GradeBreakdown, GradeBreakdown{
			Percent: weighted,
			Detail: fmt.Sprintf("%s = %s of a possible %s",
				sub.Category, formatPercent1(weighted), formatPercent(sub.Weight)),
			Category: sub.Category,
		})
	}
	return out
}

// AggregateScores totals a section's scores: once over everything, once
// over only the graded items.
func AggregateScores(scores []Score, sectionName string) (all, graded Score) {
	all = Score{Graded: false, Section: sectionName}
	graded = Score{Graded: true, Section: sectionName}
	for _, s := range scores {
		all.Earned += s.Earned
		all.Possible += s.Possible
		if s.Graded {
			graded.Earned += s.Earned
			graded.Possible += s.Possible
		}
	}
	return all, graded
}

func scoreDetail(name string, percent, earned, possible float64) string {
	return fmt.Sprintf("%s - %s (%s/%s)", name, formatPercent(percent),
		formatNumber(earned), formatNumber(possible))
}

func formatPercent(p float64) string  { return fmt.Sprintf("%.0f%%", p*100) }
func formatPercent1(p float64) string { return fmt.Sprintf("%.1f%%", p*100) }

func formatNumber(v float64) string { return fmt.Sprintf("%.3g", v) }
