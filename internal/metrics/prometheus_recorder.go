package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pagesmith"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	runDuration   prom.Histogram
	runOutcomes   *prom.CounterVec
	runsInFlight  prom.Gauge
	collisions    prom.Counter
	blobs         prom.Counter
	notifyAttempt *prom.CounterVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		}, []string{"stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		})
		pr.runOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Pipeline runs by final outcome",
		}, []string{"outcome"})
		pr.runsInFlight = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Pipeline runs currently executing",
		})
		pr.collisions = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "repository_name_collisions_total",
			Help:      "Repository creations retried because the name was taken",
		})
		pr.blobs = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "blobs_created_total",
			Help:      "Git blobs uploaded to the hosting API",
		})
		pr.notifyAttempt = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notify_attempts_total",
			Help:      "Evaluation callback attempts by result",
		}, []string{"result"})
		reg.MustRegister(pr.stageDuration, pr.stageResults, pr.runDuration, pr.runOutcomes,
			pr.runsInFlight, pr.collisions, pr.blobs, pr.notifyAttempt)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome RunOutcomeLabel) {
	if p == nil || p.runOutcomes == nil {
		return
	}
	p.runOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncRunsInFlight() {
	if p == nil || p.runsInFlight == nil {
		return
	}
	p.runsInFlight.Inc()
}

func (p *PrometheusRecorder) DecRunsInFlight() {
	if p == nil || p.runsInFlight == nil {
		return
	}
	p.runsInFlight.Dec()
}

func (p *PrometheusRecorder) IncNameCollision() {
	if p == nil || p.collisions == nil {
		return
	}
	p.collisions.Inc()
}

func (p *PrometheusRecorder) AddBlobsCreated(n int) {
	if p == nil || p.blobs == nil {
		return
	}
	p.blobs.Add(float64(n))
}

func (p *PrometheusRecorder) IncNotifyAttempt(success bool) {
	if p == nil || p.notifyAttempt == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.notifyAttempt.WithLabelValues(res).Inc()
}
