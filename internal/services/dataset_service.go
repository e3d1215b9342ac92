package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"surveypulse/internal/config"
	"surveypulse/internal/infrastructure"
	"surveypulse/internal/survey"
)

// ErrDatasetNotFound is returned when the requested dataset ID is
// unknown or has already been evicted.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetInfo is the client-facing summary of a stored dataset.
type DatasetInfo struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	UploadedAt    time.Time      `json:"uploaded_at"`
	ResponseCount int            `json:"response_count"`
	YearColumn    string         `json:"year_column"`
	SubjectColumn string         `json:"subject_column"`
	Subjects      []string       `json:"subjects"`
	StageCounts   map[string]int `json:"stage_counts"`
	Faculties     []string       `json:"faculties"`
	Categories    []string       `json:"categories"`
}

// entry is a stored dataset plus its bookkeeping.
type entry struct {
	info    DatasetInfo
	dataset *survey.Dataset

	// state holds per-session view state, session ID -> key -> value.
	state map[string]map[string]string
}

// DatasetService owns the in-memory dataset store and runs the survey
// pipeline on behalf of the transport layer. Datasets never touch disk;
// eviction is by TTL and by count, oldest first.
type DatasetService struct {
	mu      sync.RWMutex
	entries map[string]*entry

	// reports collapses concurrent identical report requests into one
	// aggregation run. A classroom of teachers opening the same
	// comparison should not recompute it per tab.
	reports singleflight.Group

	profile *survey.Profile
	cfg     config.SurveyConfig
	logger  *slog.Logger
	metrics *infrastructure.SurveyMetrics
}

// NewDatasetService creates the dataset service. metrics may be nil
// when observability is disabled, as in the offline CLI and tests.
func NewDatasetService(profile *survey.Profile, cfg config.SurveyConfig, logger *slog.Logger, metrics *infrastructure.SurveyMetrics) *DatasetService {
	return &DatasetService{
		entries: make(map[string]*entry),
		profile: profile,
		cfg:     cfg,
		logger:  logger.With(slog.String("service", "dataset")),
		metrics: metrics,
	}
}

// Profile returns the classification profile in use.
func (s *DatasetService) Profile() *survey.Profile {
	return s.profile
}

// Create parses an uploaded file, classifies it and stores the result
// under a fresh ID. The column override lets the client pin the year
// and subject columns when auto-detection picked wrong.
func (s *DatasetService) Create(ctx context.Context, r io.Reader, filename string, override survey.Columns) (*DatasetInfo, error) {
	start := time.Now()

	table, err := survey.Load(r, filename)
	if err != nil {
		s.recordUploadFailure(ctx)
		return nil, err
	}

	ds, err := survey.NewDataset(table, s.profile, override)
	if err != nil {
		s.recordUploadFailure(ctx)
		return nil, err
	}

	info := DatasetInfo{
		ID:            uuid.New().String(),
		Filename:      filename,
		UploadedAt:    time.Now().UTC(),
		ResponseCount: len(table.Rows),
		YearColumn:    ds.Columns.Year,
		SubjectColumn: ds.Columns.Subject,
		Subjects:      ds.SubjectList(),
		StageCounts:   stageCounts(ds),
		Faculties:     facultyList(ds),
		Categories:    categoryList(s.profile, table.Headers),
	}

	s.mu.Lock()
	s.evictLocked(ctx)
	s.entries[info.ID] = &entry{
		info:    info,
		dataset: ds,
		state:   make(map[string]map[string]string),
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.UploadsTotal.Add(ctx, 1)
		s.metrics.DatasetsLoaded.Add(ctx, 1)
		s.metrics.ParseDuration.Record(ctx, time.Since(start).Seconds())
	}

	s.logger.InfoContext(ctx, "dataset created",
		slog.String("dataset_id", info.ID),
		slog.String("filename", filename),
		slog.Int("responses", info.ResponseCount),
		slog.String("year_column", info.YearColumn),
		slog.String("subject_column", info.SubjectColumn),
	)
	return &info, nil
}

// Get returns the summary for one dataset.
func (s *DatasetService) Get(id string) (*DatasetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrDatasetNotFound
	}
	info := e.info
	return &info, nil
}

// List returns the summaries of all stored datasets, newest first.
func (s *DatasetService) List() []DatasetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]DatasetInfo, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, e.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UploadedAt.After(infos[j].UploadedAt)
	})
	return infos
}

// Delete removes a dataset and its session state.
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return ErrDatasetNotFound
	}
	delete(s.entries, id)

	if s.metrics != nil {
		s.metrics.DatasetsLoaded.Add(ctx, -1)
	}
	s.logger.InfoContext(ctx, "dataset deleted", slog.String("dataset_id", id))
	return nil
}

// Report runs the aggregation pipeline for one selection.
func (s *DatasetService) Report(ctx context.Context, id string, sel survey.Selection) (*survey.Report, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrDatasetNotFound
	}

	start := time.Now()
	key := reportKey(id, sel)
	v, err, _ := s.reports.Do(key, func() (interface{}, error) {
		return survey.BuildReport(e.dataset, s.profile, sel)
	})
	if err != nil {
		return nil, err
	}
	report := v.(*survey.Report)

	if s.metrics != nil {
		s.metrics.ReportsTotal.Add(ctx, 1)
		s.metrics.ReportDuration.Record(ctx, time.Since(start).Seconds())
	}

	s.logger.InfoContext(ctx, "report generated",
		slog.String("dataset_id", id),
		slog.String("subject", sel.Subject),
		slog.String("stage", sel.Stage),
		slog.String("benchmark", string(sel.Benchmark)),
	)
	return report, nil
}

// SetState stores view state for a session on a dataset, replacing any
// previous state for that session.
func (s *DatasetService) SetState(id, session string, state map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return ErrDatasetNotFound
	}
	copied := make(map[string]string, len(state))
	for k, v := range state {
		copied[k] = v
	}
	e.state[session] = copied
	return nil
}

// GetState returns the stored view state for a session. A session with
// no stored state yields an empty map, not an error.
func (s *DatasetService) GetState(id, session string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrDatasetNotFound
	}
	stored := e.state[session]
	copied := make(map[string]string, len(stored))
	for k, v := range stored {
		copied[k] = v
	}
	return copied, nil
}

// ClearState removes a session's view state from a dataset.
func (s *DatasetService) ClearState(id, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return ErrDatasetNotFound
	}
	delete(e.state, session)
	return nil
}

// StartJanitor sweeps expired datasets until the context is cancelled.
func (s *DatasetService) StartJanitor(ctx context.Context) {
	interval := s.cfg.DatasetTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.evictLocked(ctx)
			s.mu.Unlock()
		}
	}
}

// evictLocked drops expired datasets, then the oldest ones until the
// store has room for one more. Caller holds the write lock.
func (s *DatasetService) evictLocked(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.DatasetTTL)
	for id, e := range s.entries {
		if e.info.UploadedAt.Before(cutoff) {
			delete(s.entries, id)
			s.recordEviction(ctx, id, "ttl")
		}
	}

	for len(s.entries) >= s.cfg.MaxDatasets {
		oldestID := ""
		var oldest time.Time
		for id, e := range s.entries {
			if oldestID == "" || e.info.UploadedAt.Before(oldest) {
				oldestID = id
				oldest = e.info.UploadedAt
			}
		}
		delete(s.entries, oldestID)
		s.recordEviction(ctx, oldestID, "capacity")
	}
}

func (s *DatasetService) recordEviction(ctx context.Context, id, reason string) {
	if s.metrics != nil {
		s.metrics.DatasetsLoaded.Add(ctx, -1)
	}
	s.logger.InfoContext(ctx, "dataset evicted",
		slog.String("dataset_id", id),
		slog.String("reason", reason),
	)
}

func (s *DatasetService) recordUploadFailure(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.UploadFailures.Add(ctx, 1)
	}
}

func reportKey(id string, sel survey.Selection) string {
	return strings.Join(append([]string{
		id, sel.Subject, sel.Stage, string(sel.Benchmark),
	}, sel.FacultySubjects...), "\x1f")
}

func stageCounts(ds *survey.Dataset) map[string]int {
	counts := make(map[string]int)
	for _, st := range ds.Stages {
		counts[string(st)]++
	}
	return counts
}

// categoryList returns the profile categories that have at least one
// matching question column, in profile order.
func categoryList(p *survey.Profile, headers []string) []string {
	matched := p.CategoryColumns(headers)
	var names []string
	for _, c := range p.Categories {
		if _, ok := matched[c.Name]; ok {
			names = append(names, c.Name)
		}
	}
	return names
}

func facultyList(ds *survey.Dataset) []string {
	seen := make(map[string]struct{})
	var faculties []string
	for _, f := range ds.Faculties {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			faculties = append(faculties, f)
		}
	}
	sort.Strings(faculties)
	return faculties
}
