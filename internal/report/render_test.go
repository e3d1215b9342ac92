package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveypulse/internal/services"
	"surveypulse/internal/survey"
)

func sampleReport() *survey.Report {
	return &survey.Report{
		Subject:            "Physics",
		Stage:              "S3",
		Benchmark:          survey.BenchmarkWholeSchool,
		BenchmarkName:      "Whole School",
		TargetResponses:    10,
		BenchmarkResponses: 120,
		GeneratedAt:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Categories: []survey.CategoryScore{
			{
				Category:  "Learning & Teaching",
				Target:    72.5,
				Benchmark: 65.0,
				Delta:     7.5,
				Tier:      survey.TierStrength,
				Questions: []survey.QuestionScore{
					{
						Question:  "Lessons are engaging",
						Target:    40.0,
						Benchmark: 48.0,
						Delta:     -8.0,
						Tier:      survey.TierConcern,
					},
				},
			},
		},
	}
}

func sampleInfo() services.DatasetInfo {
	return services.DatasetInfo{
		ID:            "abc-123",
		Filename:      "responses.csv",
		UploadedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ResponseCount: 130,
		YearColumn:    "Year Group",
		SubjectColumn: "Subject",
		Subjects:      []string{"Art", "Physics"},
		StageCounts: map[string]int{
			string(survey.StageS1S2): 60,
			string(survey.StageS3):   70,
		},
	}
}

func TestRenderIndex(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderIndex(&buf, IndexData{Datasets: []services.DatasetInfo{sampleInfo()}}))

	html := buf.String()
	assert.Contains(t, html, "responses.csv")
	assert.Contains(t, html, "/datasets/abc-123")
	assert.Contains(t, html, `action="/api/datasets"`)
}

func TestRenderIndexEmpty(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderIndex(&buf, IndexData{}))
	assert.Contains(t, buf.String(), "No datasets yet")
}

func TestRenderDatasetWithReport(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.RenderDataset(&buf, DatasetData{
		Dataset: sampleInfo(),
		Stages:  []string{survey.AllStages, string(survey.StageS3)},
		Selection: survey.Selection{
			Subject:   "Physics",
			Stage:     "S3",
			Benchmark: survey.BenchmarkWholeSchool,
		},
		Report: sampleReport(),
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Physics (S3) vs Whole School")
	assert.Contains(t, html, "72.5")
	assert.Contains(t, html, `class="badge strength"`)
	assert.Contains(t, html, `class="badge concern"`)
	assert.Contains(t, html, "/export?subject=")
}

func TestRenderDatasetWithoutReport(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.RenderDataset(&buf, DatasetData{
		Dataset: sampleInfo(),
		Stages:  []string{survey.AllStages},
	})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "/export?subject=")
}

func TestRenderReportPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderReportPage(&buf, sampleReport()))

	html := buf.String()
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "Lessons are engaging")
	assert.Contains(t, html, "Generated 2026-03-01")
}

func TestBarWidthClamps(t *testing.T) {
	assert.Equal(t, 0, barWidth(-3))
	assert.Equal(t, 50, barWidth(50.4))
	assert.Equal(t, 100, barWidth(140))
}
