package cli

import (
	"fmt"
	"os"

	"capa-grader/internal/config"
	"capa-grader/internal/grader"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewGradeCmd computes a course grade from a score sheet, using the grading
// policy named in the config.
func NewGradeCmd(configPath *string) *cobra.Command {
	var sheetPath string
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Compute a course grade from a YAML score sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Grading.Policy == "" {
				return fmt.Errorf("grading policy not configured")
			}
			g, err := grader.LoadPolicy(cfg.Grading.Policy)
			if err != nil {
				return err
			}
			sheet, err := loadSheet(sheetPath)
			if err != nil {
				return err
			}
			result := g.Grade(sheet)
			out := cmd.OutOrStdout()
			for _, mark := range result.SectionBreakdown {
				note := ""
				if mark.Dropped {
					note = "  [dropped]"
				}
				fmt.Fprintf(out, "%-10s %s%s\n", mark.Label, mark.Detail, note)
			}
			for _, gb := range result.GradeBreakdown {
				fmt.Fprintln(out, gb.Detail)
			}
			fmt.Fprintf(out, "Total: %.1f%%\n", result.Percent*100)
			return nil
		},
	}
	cmd.Flags().StringVar(&sheetPath, "sheet", "", "path to YAML score sheet")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}

type sheetEntry struct {
	Earned   float64 `yaml:"earned"`
	Possible float64 `yaml:"possible"`
	Graded   bool    `yaml:"graded"`
	Section  string  `yaml:"section"`
}

func loadSheet(path string) (grader.GradeSheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read score sheet: %w", err)
	}
	var raw map[string][]sheetEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse score sheet: %w", err)
	}
	sheet := make(grader.GradeSheet, len(raw))
	for format, entries := range raw {
		scores := make([]grader.Score, len(entries))
		for i, e := range entries {
			scores[i] = grader.Score{Earned: e.Earned, Possible: e.Possible, Graded: e.Graded, Section: e.Section}
		}
		sheet[format] = scores
	}
	return sheet, nil
}
