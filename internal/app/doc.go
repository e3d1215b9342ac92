// Package app wires the application together: configuration, logging,
// OpenTelemetry, the dataset service and the HTTP router, plus the
// server lifecycle with graceful shutdown.
package app
