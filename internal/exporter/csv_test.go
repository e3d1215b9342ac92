package exporter

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveypulse/internal/survey"
)

func sampleReport() *survey.Report {
	return &survey.Report{
		Subject:            "Physics",
		Stage:              "All Years",
		Benchmark:          survey.BenchmarkWholeSchool,
		BenchmarkName:      "Whole School",
		TargetResponses:    12,
		BenchmarkResponses: 240,
		Categories: []survey.CategoryScore{
			{
				Category:  "Learning & Teaching",
				Target:    66.666666,
				Benchmark: 60.0,
				Delta:     6.666666,
				Tier:      survey.TierStrength,
				Questions: []survey.QuestionScore{
					{
						Question:  "The teaching in this subject is good",
						Target:    50.0,
						Benchmark: 58.2,
						Delta:     -8.2,
						Tier:      survey.TierConcern,
					},
				},
			},
		},
	}
}

func TestWriteReportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReportCSV(&buf, sampleReport()))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}), "export should start with a UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(out[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"category", "question", "target_pct", "benchmark_pct", "delta", "tier"}, records[0])
	assert.Equal(t, []string{"Learning & Teaching", "", "66.7", "60.0", "+6.7", "strength"}, records[1])
	assert.Equal(t, []string{"Learning & Teaching", "The teaching in this subject is good", "50.0", "58.2", "-8.2", "concern"}, records[2])
}

func TestWriteReportCSVEmptyCategories(t *testing.T) {
	rep := sampleReport()
	rep.Categories = nil

	var buf bytes.Buffer
	require.NoError(t, WriteReportCSV(&buf, rep))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1, "only the header row")
}
