package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "pricecli/internal/errors"
	"pricecli/internal/services"
)

// RunsHandler handles pipeline run lifecycle requests
type RunsHandler struct {
	service PricingServiceInterface
	logger  *slog.Logger
}

// NewRunsHandler creates a runs handler
func NewRunsHandler(service PricingServiceInterface, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		service: service,
		logger:  logger.With(slog.String("component", "runs_handler")),
	}
}

// Routes returns the run routes
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.TriggerRun)
	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)

	return r
}

// TriggerRun handles POST /api/runs
func (h *RunsHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	run, err := h.service.TriggerRun(ctx)
	if err != nil {
		if errors.Is(err, services.ErrRunActive) {
			render.Render(w, r, apierrors.ErrConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to trigger run", "error", err)
		render.Render(w, r, apierrors.ErrInternal)
		return
	}

	h.logger.InfoContext(ctx, "run accepted", "run_id", run.ID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, run)
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.ListRuns(r.Context()))
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	run, err := h.service.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			render.Render(w, r, apierrors.ErrRunNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get run", "run_id", id, "error", err)
		render.Render(w, r, apierrors.ErrInternal)
		return
	}

	render.JSON(w, r, run)
}
