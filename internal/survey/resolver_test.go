package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColumns(t *testing.T) {
	p := DefaultProfile()

	tests := []struct {
		name     string
		headers  []string
		override Columns
		expected Columns
	}{
		{
			name:     "exact survey export headers",
			headers:  []string{"Timestamp", "What is your Year Group?", "Which subject are you answering about?", "Q1"},
			expected: Columns{Year: "What is your Year Group?", Subject: "Which subject are you answering about?"},
		},
		{
			name:     "grade and bare subject",
			headers:  []string{"Grade", "Subject", "Q1"},
			expected: Columns{Year: "Grade", Subject: "Subject"},
		},
		{
			name:     "first matching header wins",
			headers:  []string{"Stage", "Year Group", "Subject"},
			expected: Columns{Year: "Stage", Subject: "Subject"},
		},
		{
			name:     "override beats detection",
			headers:  []string{"Year Group", "Form Class", "Subject"},
			override: Columns{Year: "Form Class"},
			expected: Columns{Year: "Form Class", Subject: "Subject"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := &Table{Headers: tt.headers}
			cols, err := ResolveColumns(table, p, tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cols)
		})
	}
}

func TestResolveColumnsMissing(t *testing.T) {
	p := DefaultProfile()

	t.Run("nothing detectable", func(t *testing.T) {
		table := &Table{Headers: []string{"Timestamp", "Q1", "Q2"}}
		_, err := ResolveColumns(table, p, Columns{})

		var missingErr *MissingColumnsError
		require.ErrorAs(t, err, &missingErr)
		assert.Equal(t, []string{"year group", "subject"}, missingErr.Missing)
		assert.Equal(t, table.Headers, missingErr.Available)
	})

	t.Run("override names a column that does not exist", func(t *testing.T) {
		table := &Table{Headers: []string{"Year Group", "Subject"}}
		_, err := ResolveColumns(table, p, Columns{Subject: "Course"})

		var missingErr *MissingColumnsError
		require.ErrorAs(t, err, &missingErr)
		assert.Equal(t, []string{"subject"}, missingErr.Missing)
	})
}
