package survey

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// delimiters tried in order when parsing a delimited file.
var delimiters = []rune{',', ';', '\t'}

// Load reads an uploaded response file into a Table. The format is
// chosen by file extension; delimited files go through an
// encoding/delimiter trial chain, spreadsheets through excelize.
func Load(r io.Reader, filename string) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		return loadSpreadsheet(data)
	case ".csv", ".tsv", ".txt", "":
		return loadDelimited(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// loadDelimited tries each candidate encoding and delimiter until one
// parses. Survey exports typically come from Excel, so UTF-8 with BOM
// and Windows code pages are the common cases.
func loadDelimited(data []byte) (*Table, error) {
	var fallback [][]string

	for _, text := range decodeCandidates(data) {
		for _, delim := range delimiters {
			records, err := parseDelimited(text, delim)
			if err != nil {
				continue
			}
			if len(records) > 0 && len(records[0]) > 1 {
				return newTable(records)
			}
			if fallback == nil && len(records) > 0 {
				fallback = records
			}
		}
	}

	// A clean parse that only ever produced one column is still a
	// parse; the column resolver will report what is missing.
	if fallback != nil {
		return newTable(fallback)
	}
	return nil, ErrUnparsable
}

// decodeCandidates returns the decoded texts to attempt, in priority
// order. Byte-order marks pin the encoding; otherwise valid UTF-8 is
// preferred with ISO-8859-1 as the Windows fallback.
func decodeCandidates(data []byte) []string {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return []string{string(data[3:])}
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		if text, err := decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)); err == nil {
			return []string{text}
		}
		return nil
	}

	latin1, _ := decodeWith(data, charmap.ISO8859_1)
	if utf8.Valid(data) {
		return []string{string(data), latin1}
	}
	return []string{latin1}
}

func decodeWith(data []byte, enc encoding.Encoding) (string, error) {
	out, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func parseDelimited(text string, delim rune) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// loadSpreadsheet extracts the first sheet that contains rows.
func loadSpreadsheet(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		return newTable(rows)
	}
	return nil, ErrNoHeader
}
