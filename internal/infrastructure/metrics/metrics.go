// Package metrics exports answer pipeline metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docqa"

// Observer records outcomes, stage latencies and cache events.
type Observer struct {
	registry *prometheus.Registry

	answers     *prometheus.CounterVec
	answerTime  *prometheus.HistogramVec
	stageTime   *prometheus.HistogramVec
	cacheEvents *prometheus.CounterVec
}

// NewObserver registers the collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Answers served, by outcome",
			},
			[]string{"outcome"},
		),
		answerTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "answer_duration_seconds",
				Help:      "End to end answer latency, by outcome",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		stageTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_seconds",
				Help:      "Pipeline stage latency",
				Buckets:   []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_events_total",
				Help:      "Answer cache lookups, by result",
			},
			[]string{"event"},
		),
	}

	o.registry.MustRegister(
		o.answers,
		o.answerTime,
		o.stageTime,
		o.cacheEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return o
}

// ObserveAnswer counts the outcome and records its end to end latency.
func (o *Observer) ObserveAnswer(outcome string, elapsed time.Duration) {
	o.answers.WithLabelValues(outcome).Inc()
	o.answerTime.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveStage records how long a pipeline stage took.
func (o *Observer) ObserveStage(stage string, elapsed time.Duration) {
	o.stageTime.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveCache counts a cache hit or miss.
func (o *Observer) ObserveCache(event string) {
	o.cacheEvents.WithLabelValues(event).Inc()
}

// Registry exposes the underlying registry for extra collectors.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus text format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
