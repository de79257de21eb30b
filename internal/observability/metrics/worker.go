package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okolin/scribe/internal/core/domain"
)

type PipelineMetrics struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runsInFlight prometheus.Gauge
	revisions    *prometheus.HistogramVec
	mediaSources *prometheus.CounterVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scribe",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total completed pipeline runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scribe",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "outcome"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scribe",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of pipeline runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	revisions := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scribe",
			Subsystem: "pipeline",
			Name:      "revisions_per_run",
			Help:      "Distribution of revision cycles per completed run.",
			Buckets:   []float64{0, 1, 2},
		},
		[]string{"service"},
	)
	mediaSources := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scribe",
			Subsystem: "media",
			Name:      "acquisitions_total",
			Help:      "Total acquired images by winning strategy.",
		},
		[]string{"service", "source"},
	)

	registry.MustRegister(runsTotal, runDuration, runsInFlight, revisions, mediaSources)

	return &PipelineMetrics{
		registry:     registry,
		runsTotal:    runsTotal,
		runDuration:  runDuration,
		runsInFlight: runsInFlight,
		revisions:    revisions,
		mediaSources: mediaSources,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartRun() {
	m.runsInFlight.Inc()
}

// FinishRun records one terminal state. The outcome label is "persisted" or
// the failure reason so dashboards can split timeouts from quality failures.
func (m *PipelineMetrics) FinishRun(service string, run *domain.PipelineRun, duration time.Duration) {
	m.runsInFlight.Dec()

	outcome := "persisted"
	if run.State == domain.StateFailed {
		outcome = run.FailureReason
		if outcome == "" {
			outcome = "failed"
		}
	}

	m.runsTotal.WithLabelValues(service, outcome).Inc()
	m.runDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
	m.revisions.WithLabelValues(service).Observe(float64(run.RevisionCount))
}

func (m *PipelineMetrics) RecordMediaSource(service string, source domain.MediaSource) {
	if source == "" {
		return
	}
	m.mediaSources.WithLabelValues(service, string(source)).Inc()
}
