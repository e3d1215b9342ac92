package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"surveypulse/internal/config"
	"surveypulse/internal/exporter"
	"surveypulse/internal/infrastructure"
	"surveypulse/internal/report"
	"surveypulse/internal/survey"
)

// analyze runs the survey pipeline offline: one input file, one
// selection, an HTML or CSV report on disk. Useful for batch runs and
// for checking a file before uploading it to the dashboard.
func main() {
	in := flag.String("in", "", "responses file (csv, tsv or xlsx)")
	out := flag.String("out", "", "output path; extension picks the format (.html, .csv or .json)")
	subject := flag.String("subject", "", "target subject")
	stage := flag.String("stage", "", "stage filter (default all years)")
	benchmark := flag.String("benchmark", "whole_school", "whole_school | faculty | department")
	profilePath := flag.String("profile", "", "optional YAML profile overriding the keyword tables")
	yearColumn := flag.String("year-column", "", "override the auto-detected year column")
	subjectColumn := flag.String("subject-column", "", "override the auto-detected subject column")
	listSubjects := flag.Bool("list-subjects", false, "print the detected subjects and exit")
	flag.Parse()

	cfg := config.Default()
	cfg.Logging.Format = "text"
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	if *in == "" {
		logger.Error("missing required -in flag")
		flag.Usage()
		os.Exit(2)
	}

	profile, err := survey.LoadProfile(*profilePath)
	if err != nil {
		logger.Error("failed to load profile", "error", err, "path", *profilePath)
		os.Exit(1)
	}

	file, err := os.Open(*in)
	if err != nil {
		logger.Error("failed to open input", "error", err, "path", *in)
		os.Exit(1)
	}
	defer file.Close()

	table, err := survey.Load(file, *in)
	if err != nil {
		logger.Error("failed to parse input", "error", err, "path", *in)
		os.Exit(1)
	}

	dataset, err := survey.NewDataset(table, profile, survey.Columns{
		Year:    *yearColumn,
		Subject: *subjectColumn,
	})
	if err != nil {
		logger.Error("failed to classify responses", "error", err)
		os.Exit(1)
	}

	logger.Info("dataset loaded",
		slog.String("file", *in),
		slog.Int("responses", len(table.Rows)),
		slog.String("year_column", dataset.Columns.Year),
		slog.String("subject_column", dataset.Columns.Subject))

	if *listSubjects {
		for _, s := range dataset.SubjectList() {
			fmt.Println(s)
		}
		return
	}

	if *subject == "" {
		logger.Error("missing required -subject flag (use -list-subjects to see choices)")
		os.Exit(2)
	}

	rep, err := survey.BuildReport(dataset, profile, survey.Selection{
		Subject:   *subject,
		Stage:     *stage,
		Benchmark: survey.BenchmarkMode(*benchmark),
	})
	if err != nil {
		logger.Error("failed to build report", "error", err)
		os.Exit(1)
	}

	if *out == "" {
		printSummary(rep)
		return
	}

	outFile, err := os.Create(*out)
	if err != nil {
		logger.Error("failed to create output", "error", err, "path", *out)
		os.Exit(1)
	}
	defer outFile.Close()

	switch strings.ToLower(filepath.Ext(*out)) {
	case ".csv":
		err = exporter.WriteReportCSV(outFile, rep)
	case ".json":
		enc := json.NewEncoder(outFile)
		enc.SetIndent("", "  ")
		err = enc.Encode(rep)
	case ".html", ".htm":
		var renderer *report.Renderer
		renderer, err = report.NewRenderer()
		if err == nil {
			err = renderer.RenderReportPage(outFile, rep)
		}
	default:
		err = fmt.Errorf("unsupported output extension %q", filepath.Ext(*out))
	}
	if err != nil {
		logger.Error("failed to write report", "error", err, "path", *out)
		os.Exit(1)
	}

	logger.Info("report written",
		slog.String("path", *out),
		slog.String("subject", rep.Subject),
		slog.String("stage", rep.Stage))
}

// printSummary writes a terminal-friendly category summary.
func printSummary(rep *survey.Report) {
	fmt.Printf("%s (%s) vs %s\n", rep.Subject, rep.Stage, rep.BenchmarkName)
	fmt.Printf("target %d responses, benchmark %d responses\n\n",
		rep.TargetResponses, rep.BenchmarkResponses)
	for _, cat := range rep.Categories {
		fmt.Printf("%-28s %6.1f%% vs %6.1f%%  %+5.1f  %s\n",
			cat.Category, cat.Target, cat.Benchmark, cat.Delta, cat.Tier)
	}
}
