package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"surveypulse/internal/infrastructure"
	"surveypulse/internal/survey"
)

// ErrorHandler provides centralized error handling. Every anticipated
// failure is converted to an RFC 7807 response; nothing reaches the
// client as a raw error string or stack trace.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError converts any error to RFC 7807 format and responds.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", traceID)

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	// Survey domain errors carry enough context for an actionable
	// user-facing message.
	var missingCols *survey.MissingColumnsError
	if errors.As(err, &missingCols) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeColumnsNotFound,
			"Required Columns Not Found",
			"The year-group or subject column could not be identified. Check that this is the raw responses file, or pick the columns explicitly.",
			r.URL.Path,
		).WithExtension("missing", missingCols.Missing).
			WithExtension("available_columns", missingCols.Available)
	}

	var emptySubset *survey.EmptySubsetError
	if errors.As(err, &emptySubset) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeSubsetEmpty,
			"No Matching Responses",
			emptySubset.Error(),
			r.URL.Path,
		).WithExtension("scope", emptySubset.Scope)
	}

	switch {
	case errors.Is(err, survey.ErrUnparsable), errors.Is(err, survey.ErrNoHeader):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeUploadUnparsable,
			"Unparseable File",
			"The file could not be read with any supported encoding or delimiter. Upload a CSV or XLSX export of the raw responses.",
			r.URL.Path,
		)
	case errors.Is(err, survey.ErrUnsupportedFormat):
		return NewProblemDetails(
			http.StatusUnsupportedMediaType,
			TypeUploadUnparsable,
			"Unsupported File Format",
			err.Error(),
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	// Anything unanticipated stays generic.
	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	)
}

func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		problemType = TypeValidation
	case http.StatusNotFound:
		problemType = TypeNotFound
	case http.StatusRequestEntityTooLarge:
		problemType = TypeUploadTooLarge
	case http.StatusUnprocessableEntity:
		problemType = TypeUploadUnparsable
	case http.StatusTooManyRequests:
		problemType = TypeRateLimit
	}
	if apiErr.ErrorCode == "DATASET_NOT_FOUND" {
		problemType = TypeDatasetNotFound
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	)
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}
