package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "surveypulse/internal/errors"
	"surveypulse/internal/report"
	"surveypulse/internal/services"
	"surveypulse/internal/survey"
)

// HTMLHandler serves the server-rendered dashboard pages.
type HTMLHandler struct {
	service      *services.DatasetService
	renderer     *report.Renderer
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewHTMLHandler creates a new HTML handler.
func NewHTMLHandler(service *services.DatasetService, renderer *report.Renderer, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *HTMLHandler {
	return &HTMLHandler{
		service:      service,
		renderer:     renderer,
		logger:       logger.With(slog.String("component", "html_handler")),
		errorHandler: errorHandler,
	}
}

// Index handles GET /.
func (h *HTMLHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := h.renderer.RenderIndex(w, report.IndexData{
		Datasets: h.service.List(),
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "index render failed",
			slog.String("error", err.Error()))
	}
}

// Dataset handles GET /datasets/{datasetID}. Selection comes from
// query parameters; with no subject selected only the controls render.
func (h *HTMLHandler) Dataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetID")
	info, err := h.service.Get(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	sel := survey.Selection{
		Subject:   q.Get("subject"),
		Stage:     q.Get("stage"),
		Benchmark: survey.BenchmarkMode(q.Get("benchmark")),
	}

	data := report.DatasetData{
		Dataset:   *info,
		Stages:    stageOptions(info),
		Selection: sel,
	}

	if sel.Subject != "" {
		rep, err := h.service.Report(r.Context(), id, sel)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		data.Report = rep
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.RenderDataset(w, data); err != nil {
		h.logger.ErrorContext(r.Context(), "dataset render failed",
			slog.String("error", err.Error()),
			slog.String("dataset_id", id),
		)
	}
}

// stageOptions lists the stage filter choices: All Years first, then
// the stages actually present in the dataset, in teaching order.
func stageOptions(info *services.DatasetInfo) []string {
	options := []string{survey.AllStages}
	for _, stage := range []survey.Stage{
		survey.StageS1S2, survey.StageS3, survey.StageSenior, survey.StageOther,
	} {
		if info.StageCounts[string(stage)] > 0 {
			options = append(options, string(stage))
		}
	}
	return options
}
