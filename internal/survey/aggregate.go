package survey

import (
	"fmt"
	"strings"
	"time"
)

// BenchmarkMode selects the comparison population for a report.
type BenchmarkMode string

const (
	BenchmarkWholeSchool BenchmarkMode = "whole_school"
	BenchmarkFaculty     BenchmarkMode = "faculty"
	BenchmarkDepartment  BenchmarkMode = "department"
)

// Delta thresholds for tier classification, in percentage points.
const (
	strengthThreshold = 5.0
	concernThreshold  = -5.0
)

// Tier classifies a target-vs-benchmark delta.
type Tier string

const (
	TierStrength Tier = "strength"
	TierConcern  Tier = "concern"
	TierInLine   Tier = "in_line"
)

// ClassifyDelta maps a score difference to its tier.
func ClassifyDelta(delta float64) Tier {
	switch {
	case delta > strengthThreshold:
		return TierStrength
	case delta < concernThreshold:
		return TierConcern
	default:
		return TierInLine
	}
}

// Selection describes one report request: the target subset and the
// benchmark population to difference it against.
type Selection struct {
	Subject   string        `json:"subject"`
	Stage     string        `json:"stage"`
	Benchmark BenchmarkMode `json:"benchmark"`

	// FacultySubjects overrides the faculty benchmark population. When
	// empty the subjects sharing the target's classified faculty are
	// used.
	FacultySubjects []string `json:"faculty_subjects,omitempty"`
}

// QuestionScore holds the per-question comparison.
type QuestionScore struct {
	Question  string  `json:"question"`
	Target    float64 `json:"target"`
	Benchmark float64 `json:"benchmark"`
	Delta     float64 `json:"delta"`
	Tier      Tier    `json:"tier"`
}

// CategoryScore holds the pooled category comparison plus its
// per-question breakdown.
type CategoryScore struct {
	Category  string          `json:"category"`
	Target    float64         `json:"target"`
	Benchmark float64         `json:"benchmark"`
	Delta     float64         `json:"delta"`
	Tier      Tier            `json:"tier"`
	Questions []QuestionScore `json:"questions"`
}

// Report is the aggregated comparison for one selection.
type Report struct {
	Subject            string          `json:"subject"`
	Stage              string          `json:"stage"`
	Benchmark          BenchmarkMode   `json:"benchmark"`
	BenchmarkName      string          `json:"benchmark_name"`
	TargetResponses    int             `json:"target_responses"`
	BenchmarkResponses int             `json:"benchmark_responses"`
	Categories         []CategoryScore `json:"categories"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// PositiveRate computes the percentage of valid responses that match
// one of the positive answers. Missing values (empty after trimming)
// are dropped first; an empty pool yields 0 rather than an error so a
// question nobody answered never divides by zero.
func PositiveRate(values []string, positive map[string]struct{}) float64 {
	var valid, matched int
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		valid++
		if _, ok := positive[v]; ok {
			matched++
		}
	}
	if valid == 0 {
		return 0
	}
	return float64(matched) / float64(valid) * 100
}

// BuildReport aggregates positive rates for the selection's target
// rows against its benchmark rows, per category and per question.
//
// A category score pools every answer of every question in the
// category before computing one rate, so categories with more answers
// carry proportionally more weight; it is not a mean of per-question
// percentages. The Department benchmark pools responses from the
// active stage only, consistent with the other two modes.
func BuildReport(d *Dataset, p *Profile, sel Selection) (*Report, error) {
	stageIdx := d.stageRows(sel.Stage)
	if len(stageIdx) == 0 {
		return nil, &EmptySubsetError{Scope: "stage", Stage: sel.Stage}
	}

	var target []int
	for _, i := range stageIdx {
		if d.Subjects[i] == sel.Subject {
			target = append(target, i)
		}
	}
	if len(target) == 0 {
		return nil, &EmptySubsetError{Scope: "target", Stage: sel.Stage, Subject: sel.Subject}
	}

	benchmark, benchName, err := d.benchmarkRows(p, sel, stageIdx, target)
	if err != nil {
		return nil, err
	}

	positive := p.positiveSet()
	categoryCols := p.CategoryColumns(d.Table.Headers)

	report := &Report{
		Subject:            sel.Subject,
		Stage:              stageLabel(sel.Stage),
		Benchmark:          sel.Benchmark,
		BenchmarkName:      benchName,
		TargetResponses:    len(target),
		BenchmarkResponses: len(benchmark),
		GeneratedAt:        time.Now().UTC(),
	}

	for _, cat := range p.Categories {
		cols, ok := categoryCols[cat.Name]
		if !ok {
			continue
		}

		score := CategoryScore{Category: cat.Name}
		var targetPool, benchPool []string
		for _, col := range cols {
			idx := d.Table.ColumnIndex(col)
			targetVals := valuesAt(d.Table, target, idx)
			benchVals := valuesAt(d.Table, benchmark, idx)
			targetPool = append(targetPool, targetVals...)
			benchPool = append(benchPool, benchVals...)

			qs := QuestionScore{
				Question:  col,
				Target:    PositiveRate(targetVals, positive),
				Benchmark: PositiveRate(benchVals, positive),
			}
			qs.Delta = qs.Target - qs.Benchmark
			qs.Tier = ClassifyDelta(qs.Delta)
			score.Questions = append(score.Questions, qs)
		}

		score.Target = PositiveRate(targetPool, positive)
		score.Benchmark = PositiveRate(benchPool, positive)
		score.Delta = score.Target - score.Benchmark
		score.Tier = ClassifyDelta(score.Delta)
		report.Categories = append(report.Categories, score)
	}

	return report, nil
}

// benchmarkRows resolves the benchmark row set for the selection.
func (d *Dataset) benchmarkRows(p *Profile, sel Selection, stageIdx, target []int) ([]int, string, error) {
	switch sel.Benchmark {
	case BenchmarkWholeSchool, "":
		return stageIdx, "Whole School", nil

	case BenchmarkDepartment:
		return target, fmt.Sprintf("%s Department", sel.Subject), nil

	case BenchmarkFaculty:
		subjects := sel.FacultySubjects
		if len(subjects) == 0 {
			subjects = d.FacultySubjects(p, sel.Subject)
		}
		member := make(map[string]struct{}, len(subjects))
		for _, s := range subjects {
			member[s] = struct{}{}
		}
		var rows []int
		for _, i := range stageIdx {
			if _, ok := member[d.Subjects[i]]; ok {
				rows = append(rows, i)
			}
		}
		if len(rows) == 0 {
			return nil, "", &EmptySubsetError{Scope: "benchmark", Stage: sel.Stage, Subject: sel.Subject}
		}
		return rows, "Faculty Average", nil

	default:
		return nil, "", fmt.Errorf("unknown benchmark mode %q", sel.Benchmark)
	}
}

func valuesAt(t *Table, rows []int, col int) []string {
	values := make([]string, len(rows))
	for i, r := range rows {
		values[i] = t.Rows[r][col]
	}
	return values
}

func stageLabel(stage string) string {
	if stage == "" {
		return AllStages
	}
	return stage
}
