package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "img2img"

// Prometheus exports generation metrics through a dedicated registry.
type Prometheus struct {
	registry *prometheus.Registry

	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	refused  prometheus.Counter
}

// NewPrometheus registers the generation collectors, plus the Go runtime and
// process collectors, on a fresh registry. variant is attached as a constant
// label.
func NewPrometheus(variant string) *Prometheus {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"variant": variant}

	p := &Prometheus{
		registry: reg,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "generations_total",
			Help:        "Generate presses by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "generation_duration_seconds",
			Help:        "Time from press to rendered or failed output.",
			ConstLabels: labels,
			Buckets:     []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "generations_in_flight",
			Help:        "Generations currently running.",
			ConstLabels: labels,
		}),
		refused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "generation_refusals_total",
			Help:        "Presses refused because a generation was already running.",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		p.attempts, p.duration, p.inFlight, p.refused,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// GenerationStarted implements Recorder.
func (p *Prometheus) GenerationStarted() {
	p.inFlight.Inc()
}

// GenerationFinished implements Recorder.
func (p *Prometheus) GenerationFinished(rec AttemptRecord) {
	p.inFlight.Dec()
	p.attempts.WithLabelValues(rec.Outcome).Inc()
	p.duration.WithLabelValues(rec.Outcome).Observe(rec.Duration.Seconds())
}

// GenerationRefused implements Recorder.
func (p *Prometheus) GenerationRefused() {
	p.refused.Inc()
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

var _ Recorder = (*Prometheus)(nil)
