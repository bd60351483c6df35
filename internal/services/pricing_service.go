// Package services holds the application services behind the HTTP transport.
// Handlers stay thin; run orchestration and result retention live here.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pricecli/internal/pipeline"
	"pricecli/internal/pricing"
)

// ErrRunActive is returned when a run is requested while one is in flight.
var ErrRunActive = fmt.Errorf("a pricing run is already active")

// ErrRunNotFound is returned when no run exists for the requested ID.
var ErrRunNotFound = fmt.Errorf("run not found")

// ErrNoResults is returned when results are requested before any run completed.
var ErrNoResults = fmt.Errorf("no completed run results available")

// PricingService triggers pipeline runs and retains the results of the most
// recent completed run for the query endpoints. At most one run executes at
// a time.
type PricingService struct {
	cfg     pricing.Config
	dataDir string
	outDir  string
	runner  *pipeline.Runner
	logger  *slog.Logger

	mu      sync.RWMutex
	running bool
	runs    map[string]*pipeline.Run
	order   []string
	latest  *pipeline.State
}

// NewPricingService creates a pricing service around the given runner.
func NewPricingService(cfg pricing.Config, dataDir, outDir string, runner *pipeline.Runner, logger *slog.Logger) *PricingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PricingService{
		cfg:     cfg,
		dataDir: dataDir,
		outDir:  outDir,
		runner:  runner,
		logger:  logger,
		runs:    make(map[string]*pipeline.Run),
	}
}

// TriggerRun starts a pipeline run in the background and returns its record
// immediately. Returns ErrRunActive while another run is in flight.
func (s *PricingService) TriggerRun(ctx context.Context) (*pipeline.Run, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunActive
	}
	s.running = true

	id := uuid.New().String()
	placeholder := &pipeline.Run{
		ID:        id,
		Status:    pipeline.StatusActive,
		StartedAt: time.Now(),
		Steps:     s.runner.PendingSteps(),
	}
	s.runs[id] = placeholder
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "pricing run triggered", "run_id", id)

	// The run outlives the triggering request.
	go s.execute(context.WithoutCancel(ctx), id)

	return snapshot(placeholder), nil
}

func (s *PricingService) execute(ctx context.Context, id string) {
	state := &pipeline.State{
		Config:  s.cfg,
		DataDir: s.dataDir,
		OutDir:  s.outDir,
	}
	run, err := s.runner.ExecuteWithID(ctx, id, state)

	s.mu.Lock()
	s.runs[id] = run
	if err == nil {
		s.latest = state
	}
	s.running = false
	s.mu.Unlock()

	if err != nil {
		s.logger.ErrorContext(ctx, "pricing run failed", "run_id", id, "error", err)
	}
}

// GetRun returns the record for a run ID.
func (s *PricingService) GetRun(ctx context.Context, id string) (*pipeline.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return snapshot(run), nil
}

// ListRuns returns all run records, most recent first.
func (s *PricingService) ListRuns(ctx context.Context) []*pipeline.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*pipeline.Run, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, snapshot(s.runs[s.order[i]]))
	}
	return out
}

// Recommendations returns the latest run's recommendations, optionally
// filtered by product ID and ISO date.
func (s *PricingService) Recommendations(ctx context.Context, productID *int, date string) ([]pricing.PriceRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoResults
	}
	out := make([]pricing.PriceRecommendation, 0, len(s.latest.Recommendations))
	for _, rec := range s.latest.Recommendations {
		if productID != nil && rec.ProductID != *productID {
			continue
		}
		if date != "" && pricing.DateKey(rec.Date) != date {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Elasticities returns the latest run's elasticity estimates, optionally
// filtered by product ID.
func (s *PricingService) Elasticities(ctx context.Context, productID *int) ([]pricing.ElasticityEstimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoResults
	}
	out := make([]pricing.ElasticityEstimate, 0, len(s.latest.Estimates))
	for _, est := range s.latest.Estimates {
		if productID != nil && est.ProductID != *productID {
			continue
		}
		out = append(out, est)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// Forecasts returns the latest run's forecast points, optionally filtered
// by product ID and ISO date.
func (s *PricingService) Forecasts(ctx context.Context, productID *int, date string) ([]pricing.ForecastPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoResults
	}
	out := make([]pricing.ForecastPoint, 0, len(s.latest.ForecastPoints))
	for _, fp := range s.latest.ForecastPoints {
		if productID != nil && fp.ProductID != *productID {
			continue
		}
		if date != "" && pricing.DateKey(fp.Date) != date {
			continue
		}
		out = append(out, fp)
	}
	return out, nil
}

// snapshot copies a run record so callers never observe later mutation.
func snapshot(run *pipeline.Run) *pipeline.Run {
	cp := *run
	cp.Steps = make([]pipeline.StepState, len(run.Steps))
	copy(cp.Steps, run.Steps)
	return &cp
}
