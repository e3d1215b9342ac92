package exporter

import "fmt"

// formatPercent renders a percentage with one decimal place, matching
// the dashboard display.
func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f", f)
}

// formatDelta renders a signed delta so gains read as "+4.2".
func formatDelta(f float64) string {
	return fmt.Sprintf("%+.1f", f)
}
