package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records compile outcomes, stage durations and generation failures.
type Metrics struct {
	compiles         *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	generationErrors *prometheus.CounterVec
	artifacts        prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_compiles_total",
				Help: "Total number of compiles by outcome and final stage",
			},
			[]string{"success", "stage"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lattice_stage_duration_seconds",
				Help:    "Time spent in each compile stage",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"stage", "failed"},
		),
		generationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_generation_errors_total",
				Help: "Total number of per-node generation failures",
			},
			[]string{"generator"},
		),
		artifacts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lattice_artifacts_total",
			Help: "Total number of artifacts produced",
		}),
	}
	for _, c := range []prometheus.Collector{m.compiles, m.stageDuration, m.generationErrors, m.artifacts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageLeave: func(ctx context.Context, e *domain.StageEvent) {
			m.stageDuration.WithLabelValues(string(e.Stage), strconv.FormatBool(e.Err != nil)).Observe(e.Duration.Seconds())
		},
		OnGenerationError: func(ctx context.Context, e *domain.GenerationEvent) {
			m.generationErrors.WithLabelValues(e.Generator).Inc()
		},
		OnCompileDone: func(ctx context.Context, r *domain.Result) {
			m.compiles.WithLabelValues(strconv.FormatBool(r.Success), string(r.Stage)).Inc()
			m.artifacts.Add(float64(len(r.Artifacts)))
		},
	}
}
