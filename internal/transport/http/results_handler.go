package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "pricecli/internal/errors"
	"pricecli/internal/services"
)

// resultsQuery holds the common query parameters of the result endpoints
type resultsQuery struct {
	ProductID *int   `validate:"omitempty,gt=0"`
	Date      string `validate:"omitempty,datetime=2006-01-02"`
}

// ResultsHandler serves the latest run's elasticities, forecasts and
// recommendations
type ResultsHandler struct {
	service  PricingServiceInterface
	logger   *slog.Logger
	validate *validator.Validate
}

// NewResultsHandler creates a results handler
func NewResultsHandler(service PricingServiceInterface, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{
		service:  service,
		logger:   logger.With(slog.String("component", "results_handler")),
		validate: validator.New(),
	}
}

// Routes returns the result routes
func (h *ResultsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/recommendations", h.GetRecommendations)
	r.Get("/elasticity", h.GetElasticities)
	r.Get("/forecast", h.GetForecasts)

	return r
}

// parseQuery extracts and validates product_id and date query parameters.
// A nil return with a written response means validation already failed.
func (h *ResultsHandler) parseQuery(w http.ResponseWriter, r *http.Request) *resultsQuery {
	q := &resultsQuery{Date: r.URL.Query().Get("date")}

	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			render.Render(w, r, apierrors.ErrValidationFailed.WithDetails(map[string]string{
				"product_id": "must be an integer",
			}))
			return nil
		}
		q.ProductID = &id
	}

	if err := h.validate.Struct(q); err != nil {
		details := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = "failed " + fe.Tag() + " validation"
			}
		}
		render.Render(w, r, apierrors.ErrValidationFailed.WithDetails(details))
		return nil
	}
	return q
}

func (h *ResultsHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNoResults) {
		render.Render(w, r, apierrors.ErrNoResults)
		return
	}
	h.logger.ErrorContext(r.Context(), "failed to fetch results",
		"path", r.URL.Path,
		"error", err,
	)
	render.Render(w, r, apierrors.ErrInternal)
}

// GetRecommendations handles GET /api/recommendations
func (h *ResultsHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	q := h.parseQuery(w, r)
	if q == nil {
		return
	}

	recs, err := h.service.Recommendations(r.Context(), q.ProductID, q.Date)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	render.JSON(w, r, recs)
}

// GetElasticities handles GET /api/elasticity
func (h *ResultsHandler) GetElasticities(w http.ResponseWriter, r *http.Request) {
	q := h.parseQuery(w, r)
	if q == nil {
		return
	}

	ests, err := h.service.Elasticities(r.Context(), q.ProductID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	render.JSON(w, r, ests)
}

// GetForecasts handles GET /api/forecast
func (h *ResultsHandler) GetForecasts(w http.ResponseWriter, r *http.Request) {
	q := h.parseQuery(w, r)
	if q == nil {
		return
	}

	points, err := h.service.Forecasts(r.Context(), q.ProductID, q.Date)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	render.JSON(w, r, points)
}
