// Package metrics provides Prometheus metrics for the co2risk service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	enabled        bool
	customLabels   map[string]string
	registry       prometheus.Registerer

	// Decision metrics
	decisions         *prometheus.CounterVec
	decisionErrors    *prometheus.CounterVec
	riskScore         prometheus.Histogram
	decisionLatency   prometheus.Histogram
	reasonsPerVehicle prometheus.Histogram

	// Fleet metrics
	fleetEvaluations *prometheus.CounterVec
	fleetPenalty     prometheus.Histogram
	fleetSize        prometheus.Histogram
	batchSize        prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of /metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "co2risk",
		subsystem:      "engine",
		latencyBuckets: prometheus.DefBuckets,
		enabled:        true,
		customLabels:   make(map[string]string),
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.decisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "decisions_total",
		Help:        "Single-vehicle decisions by reason mode and compliance category",
		ConstLabels: labels,
	}, []string{"mode", "compliance"})

	m.decisionErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "decision_errors_total",
		Help:        "Rejected decision or fleet requests by error kind",
		ConstLabels: labels,
	}, []string{"kind"})

	m.riskScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "risk_score",
		Help:        "Distribution of risk scores (50 is exactly at the limit)",
		Buckets:     prometheus.LinearBuckets(10, 10, 10),
		ConstLabels: labels,
	})

	m.decisionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "decision_latency_milliseconds",
		Help:        "Time spent producing one decision record",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})

	m.reasonsPerVehicle = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reasons_per_decision",
		Help:        "Number of reasons returned per decision",
		Buckets:     []float64{1, 2, 3},
		ConstLabels: labels,
	})

	m.fleetEvaluations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fleet_evaluations_total",
		Help:        "Fleet compliance evaluations by policy and outcome",
		ConstLabels: labels,
	}, []string{"policy", "compliant"})

	m.fleetPenalty = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fleet_penalty_eur",
		Help:        "Estimated penalty of evaluated fleets",
		Buckets:     prometheus.ExponentialBuckets(100, 10, 8),
		ConstLabels: labels,
	})

	m.fleetSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fleet_size_vehicles",
		Help:        "Number of vehicles per fleet evaluation",
		Buckets:     prometheus.ExponentialBuckets(1, 4, 10),
		ConstLabels: labels,
	})

	m.batchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_size_vehicles",
		Help:        "Number of vehicles per batch decision request",
		Buckets:     prometheus.ExponentialBuckets(1, 4, 10),
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Total number of HTTP requests",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "by_type_total",
		Help:        "Errors by type and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "by_endpoint_total",
		Help:        "Errors by HTTP endpoint",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "latency_milliseconds",
		Help:        "Latency of requests that ended in an error",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_bytes",
		Help:        "Allocated heap memory in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: labels,
	})
}

// RecordDecision records one decision record.
func (m *Manager) RecordDecision(mode, compliance string, score float64, reasons int, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.decisions.WithLabelValues(mode, compliance).Inc()
	m.riskScore.Observe(score)
	m.reasonsPerVehicle.Observe(float64(reasons))
	m.decisionLatency.Observe(latencyMs)
}

// RecordDecisionError records a rejected request by error kind.
func (m *Manager) RecordDecisionError(kind string) {
	if !m.enabled {
		return
	}
	m.decisionErrors.WithLabelValues(kind).Inc()
}

// RecordFleetEvaluation records one fleet verdict.
func (m *Manager) RecordFleetEvaluation(policy string, compliant bool, vehicles int, penaltyEUR float64) {
	if !m.enabled {
		return
	}
	m.fleetEvaluations.WithLabelValues(policy, strconv.FormatBool(compliant)).Inc()
	m.fleetSize.Observe(float64(vehicles))
	m.fleetPenalty.Observe(penaltyEUR)
}

// RecordBatch records the size of a batch decision request.
func (m *Manager) RecordBatch(vehicles int) {
	if !m.enabled {
		return
	}
	m.batchSize.Observe(float64(vehicles))
}

// Global helpers delegate to the process-wide manager.

func RecordDecision(mode, compliance string, score float64, reasons int, latencyMs float64) {
	globalManager.RecordDecision(mode, compliance, score, reasons, latencyMs)
}

func RecordDecisionError(kind string) {
	globalManager.RecordDecisionError(kind)
}

func RecordFleetEvaluation(policy string, compliant bool, vehicles int, penaltyEUR float64) {
	globalManager.RecordFleetEvaluation(policy, compliant, vehicles, penaltyEUR)
}

func RecordBatch(vehicles int) {
	globalManager.RecordBatch(vehicles)
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry served at /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
