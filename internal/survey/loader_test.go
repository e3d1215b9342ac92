package survey

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestLoadCSV(t *testing.T) {
	csvData := "Year Group,Subject,Lessons are engaging\nS3,Physics,Agree\nS3,Art,Disagree\n"

	table, err := Load(strings.NewReader(csvData), "responses.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"Year Group", "Subject", "Lessons are engaging"}, table.Headers)
	assert.Equal(t, 2, table.NumRows())
}

func TestLoadCSVWithBOM(t *testing.T) {
	csvData := "\xEF\xBB\xBFYear Group,Subject\nS3,Physics\n"

	table, err := Load(strings.NewReader(csvData), "responses.csv")
	require.NoError(t, err)

	// The BOM must not leak into the first header name.
	assert.Equal(t, "Year Group", table.Headers[0])
}

func TestLoadSemicolonDelimited(t *testing.T) {
	csvData := "Year Group;Subject;Lessons are engaging\nS3;Physics;Agree\n"

	table, err := Load(strings.NewReader(csvData), "responses.csv")
	require.NoError(t, err)

	assert.Len(t, table.Headers, 3)
	assert.Equal(t, "Subject", table.Headers[1])
}

func TestLoadTabDelimited(t *testing.T) {
	tsvData := "Year Group\tSubject\nS3\tPhysics\n"

	table, err := Load(strings.NewReader(tsvData), "responses.tsv")
	require.NoError(t, err)

	assert.Equal(t, []string{"Year Group", "Subject"}, table.Headers)
}

func TestLoadLatin1Fallback(t *testing.T) {
	// "Français" in ISO-8859-1 is invalid UTF-8, forcing the fallback.
	raw, err := charmap.ISO8859_1.NewEncoder().String("Year Group,Subject\nS3,Français\n")
	require.NoError(t, err)

	table, err := Load(strings.NewReader(raw), "responses.csv")
	require.NoError(t, err)

	assert.Equal(t, "Français", table.Rows[0][1])
}

func TestLoadUTF16(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	raw, err := enc.String("Year Group,Subject\nS3,Physics\n")
	require.NoError(t, err)

	table, err := Load(strings.NewReader(raw), "responses.csv")
	require.NoError(t, err)

	assert.Equal(t, "Physics", table.Rows[0][1])
}

func TestLoadRaggedRowsPadded(t *testing.T) {
	csvData := "Year Group,Subject,Q1\nS3,Physics\nS3,Art,Agree,extra\n"

	table, err := Load(strings.NewReader(csvData), "responses.csv")
	require.NoError(t, err)

	require.Equal(t, 2, table.NumRows())
	assert.Equal(t, []string{"S3", "Physics", ""}, table.Rows[0])
	assert.Equal(t, []string{"S3", "Art", "Agree"}, table.Rows[1])
}

func TestLoadHeaderWhitespaceTrimmed(t *testing.T) {
	csvData := " Year Group , Subject \nS3,Physics\n"

	table, err := Load(strings.NewReader(csvData), "responses.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"Year Group", "Subject"}, table.Headers)
}

func TestLoadEmptyFile(t *testing.T) {
	_, err := Load(strings.NewReader(""), "responses.csv")
	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(strings.NewReader("data"), "responses.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadSpreadsheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Year Group", "Subject", "Lessons are engaging"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"S3", "Physics", "Agree"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := Load(&buf, "responses.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"Year Group", "Subject", "Lessons are engaging"}, table.Headers)
	require.Equal(t, 1, table.NumRows())
	assert.Equal(t, "Physics", table.Rows[0][1])
}
