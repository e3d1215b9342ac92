// Package survey implements the reusable survey-analysis pipeline:
// loading tabular response files, resolving the year-group and subject
// columns, classifying rows into stages and faculties, and aggregating
// agree/strongly-agree rates for a target subset against a benchmark
// subset.
//
// The whole pipeline is driven by a Profile so that keyword tables,
// category prefixes and the positive-answer set can be replaced without
// touching any of the logic.
package survey
