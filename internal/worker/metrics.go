package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry            *prometheus.Registry
	evaluationsTotal    *prometheus.CounterVec
	evaluationDuration  *prometheus.HistogramVec
	activeEvaluations   prometheus.Gauge
	nodeResultsTotal    prometheus.Counter
	nodesEvaluatedTotal prometheus.Counter
	cacheHitsTotal      prometheus.Counter
	computeTimeMSTotal  prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoflow_worker_evaluations_total",
			Help: "Total graph evaluations by final status.",
		}, []string{"status"}),
		evaluationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "autoflow_worker_evaluation_duration_seconds",
			Help:    "Total processing duration for each graph evaluation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		activeEvaluations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autoflow_worker_active_evaluations",
			Help: "Current number of graph evaluations running in the worker.",
		}),
		nodeResultsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoflow_worker_node_results_total",
			Help: "Total node results produced by the worker.",
		}),
		nodesEvaluatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoflow_usage_nodes_evaluated_total",
			Help: "Total nodes evaluated across all successful evaluations.",
		}),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoflow_usage_cache_hits_total",
			Help: "Total node cache hits across all successful evaluations.",
		}),
		computeTimeMSTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoflow_usage_compute_time_ms_total",
			Help: "Total compute time in milliseconds across successful evaluations.",
		}),
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.activeEvaluations,
		m.nodeResultsTotal,
		m.nodesEvaluatedTotal,
		m.cacheHitsTotal,
		m.computeTimeMSTotal,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
