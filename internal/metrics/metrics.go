// Package metrics exposes verification counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/tinthat/internal/model"
)

// Metrics holds the service's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Verifications  *prometheus.CounterVec
	ClaimVerdicts  *prometheus.CounterVec
	VerifyDuration prometheus.Histogram
	VerifyErrors   *prometheus.CounterVec
	ModelReloads   *prometheus.CounterVec
	NLIGeneration  prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinthat_verifications_total",
				Help: "Completed article verifications by status",
			},
			[]string{"status"},
		),
		ClaimVerdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinthat_claim_verdicts_total",
				Help: "Per-claim verdicts by deciding component",
			},
			[]string{"verdict", "source"},
		),
		VerifyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tinthat_verify_duration_seconds",
				Help:    "End-to-end verification latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		VerifyErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinthat_verify_errors_total",
				Help: "Failed verifications by cause",
			},
			[]string{"cause"},
		),
		ModelReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinthat_model_reloads_total",
				Help: "NLI hot reload attempts by result",
			},
			[]string{"result"},
		),
		NLIGeneration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tinthat_nli_generation",
				Help: "Generation of the live NLI model",
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveResult records a finished verification and its per-claim verdicts
func (m *Metrics) ObserveResult(res *model.VerificationResult, elapsed time.Duration) {
	if m == nil || res == nil {
		return
	}
	m.Verifications.WithLabelValues(string(res.Status)).Inc()
	m.VerifyDuration.Observe(elapsed.Seconds())
	for _, d := range res.Details {
		m.ClaimVerdicts.WithLabelValues(string(d.Verdict), string(d.Source)).Inc()
	}
}

// ObserveError records a failed verification
func (m *Metrics) ObserveError(cause string) {
	if m == nil {
		return
	}
	m.VerifyErrors.WithLabelValues(cause).Inc()
}

// ObserveReload records a hot reload attempt and the resulting generation
func (m *Metrics) ObserveReload(err error, generation int64) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.ModelReloads.WithLabelValues(result).Inc()
	m.NLIGeneration.Set(float64(generation))
}
