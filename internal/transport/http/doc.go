// Package http contains the HTTP transport layer: chi handlers for
// the dataset API, the server-rendered dashboard and the operational
// probes. Handlers validate input, translate service errors to RFC
// 7807 responses and keep all pipeline logic in the services layer.
package http
