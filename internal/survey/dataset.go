package survey

import (
	"sort"
	"strings"
)

// Dataset is a classified response table. Stage and faculty are pure
// functions of existing fields, derived once at load and never mutated
// afterwards.
type Dataset struct {
	Table   *Table
	Columns Columns

	// Per-row derived values, aligned with Table.Rows.
	Subjects  []string
	Stages    []Stage
	Faculties []string
}

// NewDataset resolves the required columns and classifies every row.
func NewDataset(t *Table, p *Profile, override Columns) (*Dataset, error) {
	cols, err := ResolveColumns(t, p, override)
	if err != nil {
		return nil, err
	}

	yearIdx := t.ColumnIndex(cols.Year)
	subjectIdx := t.ColumnIndex(cols.Subject)

	ds := &Dataset{
		Table:     t,
		Columns:   cols,
		Subjects:  make([]string, len(t.Rows)),
		Stages:    make([]Stage, len(t.Rows)),
		Faculties: make([]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		ds.Subjects[i] = strings.TrimSpace(row[subjectIdx])
		ds.Stages[i] = ClassifyStage(p, row[yearIdx])
		ds.Faculties[i] = ClassifyFaculty(p, ds.Subjects[i])
	}
	return ds, nil
}

// SubjectList returns the distinct non-empty subjects, sorted.
func (d *Dataset) SubjectList() []string {
	seen := make(map[string]struct{})
	var subjects []string
	for _, s := range d.Subjects {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			subjects = append(subjects, s)
		}
	}
	sort.Strings(subjects)
	return subjects
}

// FacultySubjects returns the distinct subjects classified into the
// same faculty as the given subject. Used as the default faculty
// benchmark population when no explicit subject list is supplied.
func (d *Dataset) FacultySubjects(p *Profile, subject string) []string {
	faculty := ClassifyFaculty(p, subject)
	seen := make(map[string]struct{})
	var subjects []string
	for _, s := range d.SubjectList() {
		if ClassifyFaculty(p, s) != faculty {
			continue
		}
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			subjects = append(subjects, s)
		}
	}
	return subjects
}

// stageRows returns the row indices matching the stage filter.
// AllStages (or empty) selects every row.
func (d *Dataset) stageRows(stage string) []int {
	rows := make([]int, 0, len(d.Table.Rows))
	for i := range d.Table.Rows {
		if stage == "" || stage == AllStages || string(d.Stages[i]) == stage {
			rows = append(rows, i)
		}
	}
	return rows
}
