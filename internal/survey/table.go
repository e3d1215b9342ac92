package survey

import "strings"

// Table is an ordered collection of response rows under a normalized
// header. Short rows are padded with empty cells so every row is
// aligned to Headers.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NumRows returns the number of response rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns all values of the named column in row order.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, true
}

// normalizeHeader strips byte-order marks and surrounding whitespace
// from a raw header cell.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	return strings.TrimSpace(h)
}

// newTable builds a Table from raw records, normalizing the header row
// and aligning every data row to the header width.
func newTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	headers := make([]string, len(records[0]))
	blank := true
	for i, h := range records[0] {
		headers[i] = normalizeHeader(h)
		if headers[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil, ErrNoHeader
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(headers))
		for i := range headers {
			if i < len(rec) {
				row[i] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}
