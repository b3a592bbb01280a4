package grader

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func hwSheet() GradeSheet {
	return GradeSheet{
		"Homework": {
			{Earned: 9, Possible: 10, Graded: true, Section: "Ohms Law"},
			{Earned: 5, Possible: 10, Graded: true, Section: "Circuits"},
			{Earned: 7, Possible: 10, Graded: true, Section: "Diodes"},
		},
	}
}

func TestAssignmentFormatGraderPadsAndDrops(t *testing.T) {
	g := AssignmentFormatGrader{
		CourseFormat: "Homework",
		MinCount:     4,
		DropCount:    1,
		ShortLabel:   "HW",
	}
	r := g.Grade(hwSheet())

	// Scores 0.9, 0.5, 0.7 padded with 0.0, lowest dropped: (0.9+0.5+0.7)/3.
	if !almostEqual(r.Percent, 0.7) {
		t.Errorf("Percent = %v, want 0.7", r.Percent)
	}
	if len(r.SectionBreakdown) != 5 {
		t.Fatalf("SectionBreakdown has %d rows, want 5 (4 sections + average)", len(r.SectionBreakdown))
	}
	if !r.SectionBreakdown[3].Dropped {
		t.Error("padded zero score should be the dropped one")
	}
	if r.SectionBreakdown[3].DropNote == "" {
		t.Error("dropped row should carry a drop note")
	}
	avg := r.SectionBreakdown[4]
	if !avg.Prominent || avg.Label != "HW Avg" {
		t.Errorf("average row = %+v, want prominent 'HW Avg'", avg)
	}
	if avg.Detail != "Homework Average = 70%" {
		t.Errorf("average detail = %q", avg.Detail)
	}
	if r.SectionBreakdown[0].Detail != "Homework 1 - Ohms Law - 90% (9/10)" {
		t.Errorf("first detail = %q", r.SectionBreakdown[0].Detail)
	}
	if r.SectionBreakdown[3].Detail != "Homework 4 Unreleased - 0% (?/?)" {
		t.Errorf("unreleased detail = %q", r.SectionBreakdown[3].Detail)
	}
	if r.SectionBreakdown[1].Label != "HW 02" {
		t.Errorf("label = %q, want zero-padded index", r.SectionBreakdown[1].Label)
	}
}

func TestAssignmentFormatGraderNoDrops(t *testing.T) {
	g := AssignmentFormatGrader{CourseFormat: "Homework", MinCount: 3}
	r := g.Grade(hwSheet())
	if !almostEqual(r.Percent, 0.7) {
		t.Errorf("Percent = %v, want mean 0.7", r.Percent)
	}
}

func TestAssignmentFormatGraderDropTieBreak(t *testing.T) {
	sheet := GradeSheet{
		"Lab": {
			{Earned: 1, Possible: 2, Graded: true, Section: "L1"},
			{Earned: 2, Possible: 4, Graded: true, Section: "L2"},
			{Earned: 4, Possible: 4, Graded: true, Section: "L3"},
		},
	}
	g := AssignmentFormatGrader{CourseFormat: "Lab", MinCount: 3, DropCount: 1}
	r := g.Grade(sheet)
	// The two 50% sections tie; the later one is dropped.
	if r.SectionBreakdown[0].Dropped || !r.SectionBreakdown[1].Dropped {
		t.Errorf("expected the later tied section dropped, got %+v", r.SectionBreakdown[:3])
	}
	if !almostEqual(r.Percent, 0.75) {
		t.Errorf("Percent = %v, want 0.75", r.Percent)
	}
}

func TestAssignmentFormatGraderEmptySheet(t *testing.T) {
	g := AssignmentFormatGrader{CourseFormat: "Homework", MinCount: 2, DropCount: 2}
	r := g.Grade(GradeSheet{})
	if r.Percent != 0 {
		t.Errorf("Percent = %v, want 0 when everything is dropped", r.Percent)
	}
}

func TestSingleSectionGrader(t *testing.T) {
	g := SingleSectionGrader{SectionFormat: "Midterm", SectionName: "Midterm Exam"}
	sheet := GradeSheet{
		"Midterm": {{Earned: 32, Possible: 40, Graded: true, Section: "Midterm Exam"}},
	}
	r := g.Grade(sheet)
	if !almostEqual(r.Percent, 0.8) {
		t.Errorf("Percent = %v, want 0.8", r.Percent)
	}
	mark := r.SectionBreakdown[0]
	if mark.Detail != "Midterm Exam - 80% (32/40)" {
		t.Errorf("detail = %q", mark.Detail)
	}
	if !mark.Prominent {
		t.Error("single-section mark should be prominent")
	}

	r = g.Grade(GradeSheet{})
	if r.Percent != 0 {
		t.Errorf("missing section: Percent = %v, want 0", r.Percent)
	}
	if r.SectionBreakdown[0].Detail != "Midterm Exam - 0% (?/?)" {
		t.Errorf("missing section detail = %q", r.SectionBreakdown[0].Detail)
	}
}

func TestWeightedSubsectionsGrader(t *testing.T) {
	min4 := 4
	g := FromConfig([]SubgraderConfig{
		{Weight: 0.15, MinCount: &min4, DropCount: 1, CourseFormat: "Homework", ShortLabel: "HW"},
		{Weight: 0.15, MinCount: &min4, DropCount: 1, CourseFormat: "Lab"},
		{Weight: 0.30, CourseFormat: "Midterm", SectionName: "Midterm Exam", Category: "Midterm"},
		{Weight: 0.40, CourseFormat: "Final", SectionName: "Final Exam", Category: "Final"},
	})
	sheet := GradeSheet{
		"Homework": {
			{Earned: 10, Possible: 10, Graded: true, Section: "HW1"},
			{Earned: 10, Possible: 10, Graded: true, Section: "HW2"},
			{Earned: 10, Possible: 10, Graded: true, Section: "HW3"},
			{Earned: 10, Possible: 10, Graded: true, Section: "HW4"},
			{Earned: 0, Possible: 10, Graded: true, Section: "HW5"},
		},
		"Lab": {
			{Earned: 10, Possible: 10, Graded: true, Section: "Lab1"},
			{Earned: 10, Possible: 10, Graded: true, Section: "Lab2"},
			{Earned: 10, Possible: 10, Graded: true, Section: "Lab3"},
			{Earned: 10, Possible: 10, Graded: true, Section: "Lab4"},
			{Earned: 0, Possible: 10, Graded: true, Section: "Lab5"},
		},
		"Midterm": {{Earned: 8, Possible: 10, Graded: true, Section: "Midterm Exam"}},
		"Final":   {{Earned: 9, Possible: 10, Graded: true, Section: "Final Exam"}},
	}
	r := g.Grade(sheet)
	// 0.15*1 + 0.15*1 + 0.30*0.8 + 0.40*0.9 = 0.90
	if !almostEqual(r.Percent, 0.9) {
		t.Errorf("Percent = %v, want 0.9", r.Percent)
	}
	if len(r.GradeBreakdown) != 4 {
		t.Fatalf("GradeBreakdown has %d rows, want 4", len(r.GradeBreakdown))
	}
	if r.GradeBreakdown[2].Detail != "Midterm = 24.0% of a possible 30%" {
		t.Errorf("midterm breakdown detail = %q", r.GradeBreakdown[2].Detail)
	}
	var sum float64
	for _, gb := range r.GradeBreakdown {
		sum += gb.Percent
	}
	if !almostEqual(sum, r.Percent) {
		t.Errorf("grade breakdown sums to %v, want %v", sum, r.Percent)
	}
}

func TestWeightedSubsectionsExtraCredit(t *testing.T) {
	g := WeightedSubsectionsGrader{Subsections: []WeightedSubsection{
		{Grader: SingleSectionGrader{SectionFormat: "Final", SectionName: "Final Exam"}, Category: "Final", Weight: 0.8},
		{Grader: SingleSectionGrader{SectionFormat: "Extra", SectionName: "Bonus"}, Category: "Extra", Weight: 0.4},
	}}
	sheet := GradeSheet{
		"Final": {{Earned: 10, Possible: 10, Graded: true, Section: "Final Exam"}},
		"Extra": {{Earned: 10, Possible: 10, Graded: true, Section: "Bonus"}},
	}
	if r := g.Grade(sheet); !almostEqual(r.Percent, 1.2) {
		t.Errorf("Percent = %v, want 1.2 (weights above 1 are extra credit)", r.Percent)
	}
}

func TestFromConfigSkipsMalformedEntries(t *testing.T) {
	g := FromConfig([]SubgraderConfig{
		{Weight: 0.5}, // neither min_count nor section_name
		{Weight: 0.5, CourseFormat: "Final", SectionName: "Final Exam"},
	})
	wg, ok := g.(WeightedSubsectionsGrader)
	if !ok {
		t.Fatalf("FromConfig returned %T", g)
	}
	if len(wg.Subsections) != 1 {
		t.Errorf("got %d subsections, want 1 (malformed entry skipped)", len(wg.Subsections))
	}
}

func TestAggregateScores(t *testing.T) {
	scores := []Score{
		{Earned: 3, Possible: 5, Graded: true},
		{Earned: 2, Possible: 5, Graded: false},
		{Earned: 4, Possible: 5, Graded: true},
	}
	all, graded := AggregateScores(scores, "week 1")
	if all.Earned != 9 || all.Possible != 15 || all.Graded {
		t.Errorf("all = %+v", all)
	}
	if graded.Earned != 7 || graded.Possible != 10 || !graded.Graded {
		t.Errorf("graded = %+v", graded)
	}
	if all.Section != "week 1" || graded.Section != "week 1" {
		t.Error("section name should be carried through")
	}
}
