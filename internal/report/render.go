package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"surveypulse/internal/services"
	"surveypulse/internal/survey"
)

//go:embed templates/*.html.tmpl
var templateFiles embed.FS

// Renderer renders the dashboard pages. Templates are embedded so the
// binary stays self-contained.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"pct":       formatPercent,
		"delta":     formatDelta,
		"tierClass": tierClass,
		"tierLabel": tierLabel,
		"barWidth":  barWidth,
	}).ParseFS(templateFiles, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// IndexData feeds the landing page: upload form plus stored datasets.
type IndexData struct {
	Datasets []services.DatasetInfo
}

// DatasetData feeds the dataset page: selector controls plus an
// optional rendered report.
type DatasetData struct {
	Dataset   services.DatasetInfo
	Stages    []string
	Selection survey.Selection
	Report    *survey.Report
}

// RenderIndex writes the landing page.
func (r *Renderer) RenderIndex(w io.Writer, data IndexData) error {
	return r.templates.ExecuteTemplate(w, "index.html.tmpl", data)
}

// RenderDataset writes the dataset page.
func (r *Renderer) RenderDataset(w io.Writer, data DatasetData) error {
	return r.templates.ExecuteTemplate(w, "dataset.html.tmpl", data)
}

// RenderReportPage writes a standalone report page, used by the
// offline CLI to emit a shareable HTML file.
func (r *Renderer) RenderReportPage(w io.Writer, rep *survey.Report) error {
	return r.templates.ExecuteTemplate(w, "report_page.html.tmpl", rep)
}

func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f", f)
}

func formatDelta(f float64) string {
	return fmt.Sprintf("%+.1f", f)
}

func tierClass(t survey.Tier) string {
	switch t {
	case survey.TierStrength:
		return "strength"
	case survey.TierConcern:
		return "concern"
	default:
		return "in-line"
	}
}

func tierLabel(t survey.Tier) string {
	switch t {
	case survey.TierStrength:
		return "Strength"
	case survey.TierConcern:
		return "Concern"
	default:
		return "In line"
	}
}

// barWidth clamps a percentage for use as a CSS width.
func barWidth(f float64) int {
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return int(f + 0.5)
}
