package survey

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnparsable means every encoding/delimiter attempt failed.
	ErrUnparsable = errors.New("file could not be parsed as tabular data")
	// ErrNoHeader means the file parsed but has no usable header row.
	ErrNoHeader = errors.New("file has no header row")
	// ErrUnsupportedFormat means the file extension is not recognized.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// MissingColumnsError reports that required columns could not be
// auto-detected, listing what the file actually contains so the caller
// can offer an explicit override.
type MissingColumnsError struct {
	Missing   []string
	Available []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("could not detect columns: %s (available: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

// EmptySubsetError reports that a stage/subject filter produced no
// rows. Rendering an empty chart would be misleading, so this is an
// error rather than a zero report.
type EmptySubsetError struct {
	Scope   string // "stage", "target" or "benchmark"
	Stage   string
	Subject string
}

func (e *EmptySubsetError) Error() string {
	switch e.Scope {
	case "stage":
		return fmt.Sprintf("no responses for stage %q", e.Stage)
	case "benchmark":
		return fmt.Sprintf("no benchmark responses for %q in %q", e.Subject, e.Stage)
	default:
		return fmt.Sprintf("no responses for %q in %q", e.Subject, e.Stage)
	}
}
