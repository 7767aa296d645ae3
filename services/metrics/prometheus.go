package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jgfoster/PrairieLearn/core/variant"
)

// PrometheusMetrics exports variant lifecycle counters.
type PrometheusMetrics struct {
	reg *prometheus.Registry

	generation *prometheus.HistogramVec
	created    *prometheus.CounterVec
	reused     *prometheus.CounterVec
}

var _ variant.Metrics = (*PrometheusMetrics)(nil) // interface compliance check

func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		reg: prometheus.NewRegistry(),
		generation: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "variant_generation_duration_seconds",
				Help:    "Duration of question module generate and prepare calls",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 20},
			},
			[]string{"question_type", "broken"},
		),
		created: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "variants_created_total",
				Help: "Total number of inserted variants",
			},
			[]string{"question_type", "broken"},
		),
		reused: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "variants_reused_total",
				Help: "Total number of variants returned instead of created",
			},
			[]string{"path"},
		),
	}
	m.reg.MustRegister(m.generation, m.created, m.reused)
	return m
}

func (m *PrometheusMetrics) ObserveGeneration(questionType string, d time.Duration, broken bool) {
	m.generation.WithLabelValues(questionType, strconv.FormatBool(broken)).Observe(d.Seconds())
}

func (m *PrometheusMetrics) VariantCreated(questionType string, broken bool) {
	m.created.WithLabelValues(questionType, strconv.FormatBool(broken)).Inc()
}

func (m *PrometheusMetrics) VariantReused(path string) {
	m.reused.WithLabelValues(path).Inc()
}

// Registry is exposed so HTTP middleware can register its own collectors.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus text format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
