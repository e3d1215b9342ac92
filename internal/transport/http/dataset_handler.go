package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "surveypulse/internal/errors"
	"surveypulse/internal/exporter"
	"surveypulse/internal/services"
	"surveypulse/internal/survey"
)

// SessionHeader carries the client's session ID for view-state
// endpoints.
const SessionHeader = "X-Session-ID"

// DatasetHandler handles dataset lifecycle, report and view-state
// requests with RFC 7807 error responses.
type DatasetHandler struct {
	service        *services.DatasetService
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	validate       *validator.Validate
	maxUploadBytes int64
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(service *services.DatasetService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "dataset_handler")),
		errorHandler:   errorHandler,
		validate:       validator.New(),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the dataset routes.
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Upload)
	r.Get("/", h.List)

	r.Route("/{datasetID}", func(r chi.Router) {
		r.Use(h.DatasetCtx)
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/report", h.Report)
		r.Get("/export", h.ExportReport)
		r.Put("/state", h.PutState)
		r.Get("/state", h.GetState)
		r.Delete("/state", h.DeleteState)
	})

	return r
}

// DatasetCtx validates the dataset ID parameter.
func (h *DatasetHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "datasetID") == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("datasetID", "Dataset ID is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Upload handles POST /api/datasets. The multipart form carries the
// responses file plus optional year_column and subject_column
// overrides for when auto-detection picks the wrong columns.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrUploadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A multipart form with a 'file' field is required"))
		return
	}
	defer file.Close()

	override := survey.Columns{
		Year:    r.FormValue("year_column"),
		Subject: r.FormValue("subject_column"),
	}

	info, err := h.service.Create(r.Context(), file, header.Filename, override)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// List handles GET /api/datasets.
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"datasets": h.service.List(),
	})
}

// Get handles GET /api/datasets/{datasetID}.
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Get(chi.URLParam(r, "datasetID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapServiceError(err))
		return
	}
	render.JSON(w, r, info)
}

// Delete handles DELETE /api/datasets/{datasetID}.
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "datasetID")); err != nil {
		h.errorHandler.HandleError(w, r, h.mapServiceError(err))
		return
	}
	render.NoContent(w, r)
}

// ReportRequest is the body of POST /api/datasets/{id}/report.
type ReportRequest struct {
	Subject         string   `json:"subject" validate:"required"`
	Stage           string   `json:"stage"`
	Benchmark       string   `json:"benchmark" validate:"omitempty,oneof=whole_school faculty department"`
	FacultySubjects []string `json:"faculty_subjects" validate:"omitempty,dive,required"`
}

// Report handles POST /api/datasets/{datasetID}/report.
func (h *DatasetHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, validationError(err))
		return
	}

	report, err := h.service.Report(r.Context(), chi.URLParam(r, "datasetID"), survey.Selection{
		Subject:         req.Subject,
		Stage:           req.Stage,
		Benchmark:       survey.BenchmarkMode(req.Benchmark),
		FacultySubjects: req.FacultySubjects,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapServiceError(err))
		return
	}
	render.JSON(w, r, report)
}

// ExportReport handles GET /api/datasets/{datasetID}/export.
// The selection comes from query parameters so the link is shareable.
func (h *DatasetHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ReportRequest{
		Subject:   q.Get("subject"),
		Stage:     q.Get("stage"),
		Benchmark: q.Get("benchmark"),
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, validationError(err))
		return
	}

	id := chi.URLParam(r, "datasetID")
	report, err := h.service.Report(r.Context(), id, survey.Selection{
		Subject:   req.Subject,
		Stage:     req.Stage,
		Benchmark: survey.BenchmarkMode(req.Benchmark),
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapServiceError(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="report-%s.csv"`, id))
	if err := exporter.WriteReportCSV(w, report); err != nil {
		h.logger.ErrorContext(r.Context(), "csv export failed",
			slog.String("error", err.Error()),
			slog.String("dataset_id", id),
		)
	}
}

// PutState handles PUT /api/datasets/{datasetID}/state. The body is a
// flat string map of view state keyed by the session header.
func (h *DatasetHandler) PutState(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(SessionHeader)
	if session == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(SessionHeader, "Session header is required"))
		return
	}

	var state map[string]string
	if err := render.DecodeJSON(r.Body, &state); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	if err := h.service.SetState(chi.URLParam(r, "datasetID"), session, state); err != nil {
		h.errorHandler.HandleError(w, r, h.mapServiceError(err))
		return
	}
	render.NoContent(w, r)
}

// GetState handles GET /api/datasets/{datasetID}/state.
func (h *DatasetHandler) GetState(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(SessionHeader)
	if session == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(SessionHeader, "Session header is required"))
		return
	}

	state, err := h.service.GetState(chi.URLParam(r, "datasetID"), session)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.mapServiceError(err))
		return
	}
	render.JSON(w, r, state)
}

// DeleteState handles DELETE /api/datasets/{datasetID}/state.
func (h *DatasetHandler) DeleteState(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(SessionHeader)
	if session == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(SessionHeader, "Session header is required"))
		return
	}

	if err := h.service.ClearState(chi.URLParam(r, "datasetID"), session); err != nil {
		h.errorHandler.HandleError(w, r, h.mapServiceError(err))
		return
	}
	render.NoContent(w, r)
}

// mapServiceError translates service sentinels to API errors; domain
// errors pass through for the error handler's own mapping.
func (h *DatasetHandler) mapServiceError(err error) error {
	if errors.Is(err, services.ErrDatasetNotFound) {
		return apierrors.ErrDatasetNotFound
	}
	return err
}

// validationError flattens validator field errors into one API error.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.ErrInvalidRequest
	}
	errs := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %q validation", fe.Tag()),
		})
	}
	return apierrors.NewValidationErrors(errs)
}
