// Package metrics holds the prometheus collectors for one pipeline run. Batch
// jobs do not serve /metrics; the registry is written to a node_exporter
// textfile when a run finishes.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry *prometheus.Registry

	Documents           *prometheus.CounterVec
	Tokens              prometheus.Counter
	StageDuration       *prometheus.GaugeVec
	TrainingScore       *prometheus.GaugeVec
	BaselineScore       *prometheus.GaugeVec
	ConvergenceWarnings *prometheus.CounterVec
	Failures            *prometheus.CounterVec
}

// New registers a fresh set of collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arnlp_documents_total",
				Help: "Documents read by a stage.",
			},
			[]string{"stage"},
		),
		Tokens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "arnlp_tokens_total",
				Help: "Tokens emitted by the preprocessor.",
			},
		),
		StageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arnlp_stage_duration_seconds",
				Help: "Wall time of the last stage run.",
			},
			[]string{"stage"},
		),
		TrainingScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arnlp_training_score",
				Help: "Final training score of the last trained model.",
			},
			[]string{"task"},
		),
		BaselineScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arnlp_baseline_score",
				Help: "Baseline score the trained model is compared against.",
			},
			[]string{"task"},
		),
		ConvergenceWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arnlp_convergence_warnings_total",
				Help: "Training runs that did not beat their baseline.",
			},
			[]string{"task"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arnlp_stage_failures_total",
				Help: "Stage runs aborted by a failure, by kind.",
			},
			[]string{"stage", "kind"},
		),
	}
	m.Registry.MustRegister(
		m.Documents,
		m.Tokens,
		m.StageDuration,
		m.TrainingScore,
		m.BaselineScore,
		m.ConvergenceWarnings,
		m.Failures,
	)
	return m
}

// WriteTextfile writes the registry in text exposition format. An empty path
// is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics: creating dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("metrics: writing %s: %w", path, err)
	}
	return nil
}
