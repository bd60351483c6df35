package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus instruments
type Metrics struct {
	RunsTotal         *prometheus.CounterVec
	StepDuration      *prometheus.HistogramVec
	ForecastFallbacks *prometheus.CounterVec
	ElasticityFits    *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline metrics on the given
// registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricer",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal status.",
		}, []string{"status"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pricer",
			Subsystem: "pipeline",
			Name:      "step_duration_seconds",
			Help:      "Wall-clock duration of each pipeline step.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"step"}),
		ForecastFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricer",
			Subsystem: "forecast",
			Name:      "fallbacks_total",
			Help:      "Products degraded to the mean forecast, by trigger.",
		}, []string{"reason"}),
		ElasticityFits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricer",
			Subsystem: "elasticity",
			Name:      "fits_total",
			Help:      "Elasticity estimates by outcome (fitted or degraded).",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.RunsTotal, m.StepDuration, m.ForecastFallbacks, m.ElasticityFits)
	}
	return m
}
