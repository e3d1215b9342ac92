package survey

import "strings"

// Columns identifies the year-group and subject columns of a table.
type Columns struct {
	Year    string `json:"year"`
	Subject string `json:"subject"`
}

// ResolveColumns finds the year-group and subject columns by keyword
// search against lower-cased header names. Explicit overrides win over
// auto-detection. Headers are matched in order, so the first candidate
// column in the file is the one used.
func ResolveColumns(t *Table, p *Profile, override Columns) (Columns, error) {
	resolved := Columns{
		Year:    resolveOne(t, p.YearKeywords, override.Year),
		Subject: resolveOne(t, p.SubjectKeywords, override.Subject),
	}

	var missing []string
	if resolved.Year == "" {
		missing = append(missing, "year group")
	}
	if resolved.Subject == "" {
		missing = append(missing, "subject")
	}
	if len(missing) > 0 {
		return Columns{}, &MissingColumnsError{Missing: missing, Available: t.Headers}
	}
	return resolved, nil
}

func resolveOne(t *Table, keywords []string, override string) string {
	if override != "" {
		if t.ColumnIndex(override) >= 0 {
			return override
		}
		return ""
	}
	return findColumn(t.Headers, keywords)
}

// findColumn returns the first header containing any of the keywords,
// case-insensitively.
func findColumn(headers, keywords []string) string {
	for _, h := range headers {
		lower := strings.ToLower(h)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return h
			}
		}
	}
	return ""
}
