package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveypulse/internal/config"
	"surveypulse/internal/survey"
)

const sampleCSV = `Year Group,Subject,The teaching in this class helps me learn,I get useful feedback on my work
S1,Physics,Agree,Strongly Agree
S2,Physics,Disagree,Agree
S3,Physics,Agree,Agree
S1,Art,Agree,Disagree
S5,Music,Strongly Agree,Agree
`

func newTestService(t *testing.T, cfg config.SurveyConfig) *DatasetService {
	t.Helper()
	profile := survey.DefaultProfile()
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return NewDatasetService(profile, cfg, logger, nil)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func defaultSurveyConfig() config.SurveyConfig {
	return config.SurveyConfig{
		MaxUploadBytes: 16 << 20,
		MaxDatasets:    4,
		DatasetTTL:     time.Hour,
	}
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t, defaultSurveyConfig())

	info, err := svc.Create(context.Background(), strings.NewReader(sampleCSV), "responses.csv", survey.Columns{})
	require.NoError(t, err)

	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "responses.csv", info.Filename)
	assert.Equal(t, 5, info.ResponseCount)
	assert.Equal(t, "Year Group", info.YearColumn)
	assert.Equal(t, "Subject", info.SubjectColumn)
	assert.Equal(t, []string{"Art", "Music", "Physics"}, info.Subjects)
	assert.Equal(t, 3, info.StageCounts[string(survey.StageS1S2)])
	assert.Equal(t, 1, info.StageCounts[string(survey.StageS3)])
	assert.Equal(t, 1, info.StageCounts[string(survey.StageSenior)])
	assert.Contains(t, info.Categories, "Learning & Teaching")

	got, err := svc.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
}

func TestCreateUnparsableFile(t *testing.T) {
	svc := newTestService(t, defaultSurveyConfig())

	_, err := svc.Create(context.Background(), strings.NewReader(""), "empty.csv", survey.Columns{})
	assert.Error(t, err)
}

func TestGetUnknownDataset(t *testing.T) {
	svc := newTestService(t, defaultSurveyConfig())

	_, err := svc.Get("no-such-id")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestDelete(t *testing.T) {
	svc := newTestService(t, defaultSurveyConfig())

	info, err := svc.Create(context.Background(), strings.NewReader(sampleCSV), "responses.csv", survey.Columns{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), info.ID))
	_, err = svc.Get(info.ID)
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), info.ID), ErrDatasetNotFound)
}

func TestListNewestFirst(t *testing.T) {
	svc := newTestService(t, defaultSurveyConfig())

	first, err := svc.Create(context.Background(), strings.NewReader(sampleCSV), "first.csv", survey.Columns{})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), strings.NewReader(sampleCSV), "second.csv", survey.Columns{})
	require.NoError(t, err)

	// Make the ordering deterministic even when both uploads land in
	// the same wall-clock instant.
	svc.mu.Lock()
	svc.entries[first.ID].info.UploadedAt = svc.entries[second.ID].info.UploadedAt.Add(-time.Second)
	svc.mu.Unlock()

	infos := svc.List()
	require.Len(t, infos, 2)
	assert.Equal(t, second.ID, infos[0].ID)
	assert.Equal(t, first.ID, infos[1].ID)
}

func TestCapacityEviction(t *testing.T) {
	cfg := defaultSurveyConfig()
	cfg.MaxDatasets = 2
	svc := newTestService(t, cfg)

	first, err := svc.Create(context.Background(), strings.NewReader(sampleCSV), "first.csv", survey.Columns{})
	require.NoError(t, err)
	svc.mu.Lock()
	svc.entries[first.ID].info.UploadedAt = time.Now().UTC().Add(-time.Minute)
	svc.mu.Unlock()

	_, err = svc.Create(context.Background(), strings.NewReader(sampleCSV), "second.csv", survey.Columns{})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), strings.NewReader(sampleCSV), "third.csv", survey.Columns{})
	require.NoError(t, err)

	assert.Len(t, svc.List(), 2)
	_, err = svc.Get(first.ID)
	assert.ErrorIs(t, err, ErrDatasetNotFound, "oldest dataset should be evicted")
}

func TestTTLEviction(t *testing.T) {
	cfg := defaultSurveyConfig()
	cfg.DatasetTTL = time.Minute
	svc := newTestService(t, cfg)

	stale, err := svc.Create(context.Background(), strings.NewReader(sampleCSV), "stale.csv", survey.Columns{})
	require.NoError(t, err)
	svc.mu.Lock()
	svc.entries[stale.ID].info.UploadedAt = time.Now().UTC().Add(-2 * time.Minute)
	svc.mu.Unlock()

	fresh, err := svc.Create(context.Background(), strings.NewReader(sampleCSV), "fresh.csv", survey.Columns{})
	require.NoError(t, err)

	_, err = svc.Get(stale.ID)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	_, err = svc.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestReport(t *testing.T) {
	svc := newTestService(t, defaultSurveyConfig())

	info, err := svc.Create(context.Background(), strings.NewReader(sampleCSV), "responses.csv", survey.Columns{})
	require.NoError(t, err)

	rep, err := svc.Report(context.Background(), info.ID, survey.Selection{
		Subject:   "Physics",
		Benchmark: survey.BenchmarkWholeSchool,
	})
	require.NoError(t, err)
	assert.Equal(t, "Physics", rep.Subject)
	assert.Equal(t, 3, rep.TargetResponses)
	assert.Equal(t, 5, rep.BenchmarkResponses)
	assert.NotEmpty(t, rep.Categories)
}

func TestReportUnknownDataset(t *testing.T) {
	svc := newTestService(t, defaultSurveyConfig())

	_, err := svc.Report(context.Background(), "missing", survey.Selection{Subject: "Physics"})
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestSessionState(t *testing.T) {
	svc := newTestService(t, defaultSurveyConfig())

	info, err := svc.Create(context.Background(), strings.NewReader(sampleCSV), "responses.csv", survey.Columns{})
	require.NoError(t, err)

	require.NoError(t, svc.SetState(info.ID, "session-a", map[string]string{
		"subject": "Physics",
		"stage":   "S3",
	}))

	state, err := svc.GetState(info.ID, "session-a")
	require.NoError(t, err)
	assert.Equal(t, "Physics", state["subject"])
	assert.Equal(t, "S3", state["stage"])

	// Sessions are isolated from each other.
	other, err := svc.GetState(info.ID, "session-b")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, svc.ClearState(info.ID, "session-a"))
	state, err = svc.GetState(info.ID, "session-a")
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestStateUnknownDataset(t *testing.T) {
	svc := newTestService(t, defaultSurveyConfig())

	assert.ErrorIs(t, svc.SetState("missing", "s", map[string]string{"k": "v"}), ErrDatasetNotFound)
	_, err := svc.GetState("missing", "s")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.ErrorIs(t, svc.ClearState("missing", "s"), ErrDatasetNotFound)
}

func TestColumnOverride(t *testing.T) {
	svc := newTestService(t, defaultSurveyConfig())

	csv := "Cohort,Class,The teaching here is good\nS1,Physics,Agree\n"
	_, err := svc.Create(context.Background(), strings.NewReader(csv), "odd.csv", survey.Columns{})
	assert.Error(t, err, "unrecognized headers should fail without an override")

	info, err := svc.Create(context.Background(), strings.NewReader(csv), "odd.csv", survey.Columns{
		Year:    "Cohort",
		Subject: "Class",
	})
	require.NoError(t, err)
	assert.Equal(t, "Cohort", info.YearColumn)
	assert.Equal(t, "Class", info.SubjectColumn)
}
