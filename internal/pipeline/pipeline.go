// Package pipeline orchestrates the pricing run as a sequence of named
// steps: prepare, elasticity, forecast, optimize, export. Each step reads
// and extends the shared run state; a step failure fails the run, while
// per-product degradations inside the modeling stages are data, not step
// failures.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pricecli/internal/dataprep"
	"pricecli/internal/pricing"
)

// Step is a single unit of pipeline work
type Step interface {
	// ID returns the unique identifier for this step
	ID() string
	// Name returns the human-readable name for this step
	Name() string
	// Run executes the step against the shared run state
	Run(ctx context.Context, state *State) error
}

// Status represents the lifecycle of a run or step
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepState records one step's outcome within a run
type StepState struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    Status     `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Run is the externally visible record of one pipeline execution
type Run struct {
	ID         string      `json:"id"`
	Status     Status      `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Steps      []StepState `json:"steps"`
	Error      string      `json:"error,omitempty"`
}

// State is the mutable dataset flowing through the steps. Each step owns
// the fields it produces; later steps read them as inputs.
type State struct {
	Config  pricing.Config
	DataDir string
	OutDir  string

	// Produced by the prepare step
	CleanRows        []dataprep.CleanRow
	Observations     []pricing.Observation
	Catalog          []pricing.Product
	CompetitorPrices []pricing.CompetitorReference

	// Produced by the modeling steps
	Estimates       []pricing.ElasticityEstimate
	Forecasts       []pricing.ProductForecast
	ForecastPoints  []pricing.ForecastPoint
	FutureCompRef   []pricing.CompetitorReference
	Recommendations []pricing.PriceRecommendation
}

// Runner executes steps sequentially and records their outcomes
type Runner struct {
	steps   []Step
	logger  *slog.Logger
	metrics *Metrics
}

// NewRunner creates a pipeline runner. A nil metrics disables recording.
func NewRunner(logger *slog.Logger, metrics *Metrics, steps ...Step) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{steps: steps, logger: logger, metrics: metrics}
}

// Execute runs all steps in order against the given state. The returned Run
// always describes every step, including the ones never reached.
func (r *Runner) Execute(ctx context.Context, state *State) (*Run, error) {
	return r.ExecuteWithID(ctx, uuid.New().String(), state)
}

// PendingSteps returns the step records of a run that has not started yet,
// so callers can describe the run before Execute begins.
func (r *Runner) PendingSteps() []StepState {
	steps := make([]StepState, len(r.steps))
	for i, step := range r.steps {
		steps[i] = StepState{ID: step.ID(), Name: step.Name(), Status: StatusPending}
	}
	return steps
}

// ExecuteWithID runs the pipeline under a caller-assigned run ID, so callers
// that report the ID before completion see the same ID in the final record.
func (r *Runner) ExecuteWithID(ctx context.Context, id string, state *State) (*Run, error) {
	run := &Run{
		ID:        id,
		Status:    StatusActive,
		StartedAt: time.Now(),
		Steps:     r.PendingSteps(),
	}

	r.logger.InfoContext(ctx, "pipeline run started",
		"run_id", run.ID,
		"steps", len(r.steps),
	)

	var runErr error
	for i, step := range r.steps {
		ss := &run.Steps[i]
		start := time.Now()
		ss.StartTime = &start
		ss.Status = StatusActive

		r.logger.InfoContext(ctx, "step started", "run_id", run.ID, "step", step.ID())

		err := step.Run(ctx, state)
		end := time.Now()
		ss.EndTime = &end
		duration := end.Sub(start)
		if r.metrics != nil {
			r.metrics.StepDuration.WithLabelValues(step.ID()).Observe(duration.Seconds())
		}

		if err != nil {
			ss.Status = StatusFailed
			ss.Error = err.Error()
			runErr = fmt.Errorf("step %s: %w", step.ID(), err)
			r.logger.ErrorContext(ctx, "step failed",
				"run_id", run.ID,
				"step", step.ID(),
				"duration", duration.String(),
				"error", err,
			)
			break
		}

		ss.Status = StatusCompleted
		r.logger.InfoContext(ctx, "step completed",
			"run_id", run.ID,
			"step", step.ID(),
			"duration", duration.String(),
		)
	}

	finished := time.Now()
	run.FinishedAt = &finished
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = StatusCompleted
	}
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	}

	r.logger.InfoContext(ctx, "pipeline run finished",
		"run_id", run.ID,
		"status", run.Status,
		"duration", finished.Sub(run.StartedAt).String(),
	)
	return run, runErr
}
