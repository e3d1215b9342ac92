package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"surveypulse/internal/survey"
)

// utf8BOM helps Excel recognize the encoding when a report export is
// opened directly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvHeaders is the fixed column layout of a report export. One row
// per question, preceded by its category summary row.
var csvHeaders = []string{
	"category",
	"question",
	"target_pct",
	"benchmark_pct",
	"delta",
	"tier",
}

// WriteReportCSV writes a report as CSV. Category rows carry an empty
// question cell; question rows follow their category.
func WriteReportCSV(w io.Writer, report *survey.Report) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	for _, cat := range report.Categories {
		row := []string{
			cat.Category,
			"",
			formatPercent(cat.Target),
			formatPercent(cat.Benchmark),
			formatDelta(cat.Delta),
			string(cat.Tier),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write category row: %w", err)
		}

		for _, q := range cat.Questions {
			row := []string{
				cat.Category,
				q.Question,
				formatPercent(q.Target),
				formatPercent(q.Benchmark),
				formatDelta(q.Delta),
				string(q.Tier),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write question row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
