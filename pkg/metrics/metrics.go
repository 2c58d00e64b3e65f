package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the resilience core
type Metrics struct {
	// Probe metrics
	ProbesTotal   *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec

	// Status metrics
	StatusTransitions *prometheus.CounterVec
	StatusConfidence  prometheus.Gauge
	OfflineState      *prometheus.GaugeVec

	// Degradation metrics
	DegradationLevel      prometheus.Gauge
	DegradationChanges    *prometheus.CounterVec
	FeatureAvailability   *prometheus.GaugeVec

	// Queue and cache metrics
	QueueDepth       *prometheus.GaugeVec
	QueuedOperations *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	CacheEvictions   prometheus.Counter

	// Fallback metrics
	FallbackExecutions *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	Namespace string `json:"namespace"`
	Enabled   bool   `json:"enabled"`
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Namespace: "dashlens",
		Enabled:   true,
	}
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(config *Config) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return &Metrics{}
	}

	m := &Metrics{
		ProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "probes_total",
				Help:      "Total number of reachability probes",
			},
			[]string{"channel", "result"},
		),
		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "probe_duration_seconds",
				Help:      "Reachability probe duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"channel"},
		),
		StatusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "status_transitions_total",
				Help:      "Total number of connectivity status transitions",
			},
			[]string{"reason"},
		),
		StatusConfidence: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "status_confidence",
				Help:      "Confidence score of the current connectivity status (0-100)",
			},
		),
		OfflineState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "offline_state",
				Help:      "Whether a connectivity channel is considered offline (1) or online (0)",
			},
			[]string{"channel"},
		),
		DegradationLevel: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "degradation_level",
				Help:      "Current degradation level (0=full ... 4=offline)",
			},
		),
		DegradationChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "degradation_changes_total",
				Help:      "Total number of degradation level changes",
			},
			[]string{"from", "to"},
		),
		FeatureAvailability: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "feature_availability",
				Help:      "Feature availability (0=disabled, 1=degraded, 2=available)",
			},
			[]string{"feature_id"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "deferred_queue_depth",
				Help:      "Number of operations in the deferred-operation queue",
			},
			[]string{"priority"},
		),
		QueuedOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "deferred_operations_total",
				Help:      "Total number of deferred operations by outcome",
			},
			[]string{"operation_type", "outcome"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "mock_cache_requests_total",
				Help:      "Mock/cache store lookups by result",
			},
			[]string{"result"},
		),
		CacheEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "mock_cache_evictions_total",
				Help:      "Total number of mock/cache entries evicted",
			},
		),
		FallbackExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "fallback_executions_total",
				Help:      "Fallback wrapper executions by outcome",
			},
			[]string{"operation_type", "outcome"},
		),
	}

	prometheus.MustRegister(
		m.ProbesTotal,
		m.ProbeDuration,
		m.StatusTransitions,
		m.StatusConfidence,
		m.OfflineState,
		m.DegradationLevel,
		m.DegradationChanges,
		m.FeatureAvailability,
		m.QueueDepth,
		m.QueuedOperations,
		m.CacheHits,
		m.CacheEvictions,
		m.FallbackExecutions,
	)

	return m
}

// RecordProbe records the outcome of a single reachability probe
func (m *Metrics) RecordProbe(channel string, success bool, duration time.Duration) {
	if m.ProbesTotal == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.ProbesTotal.WithLabelValues(channel, result).Inc()
	m.ProbeDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordStatusTransition records an applied status change
func (m *Metrics) RecordStatusTransition(reason string, confidence int, networkOffline, serviceOffline bool) {
	if m.StatusTransitions == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(reason).Inc()
	m.StatusConfidence.Set(float64(confidence))
	m.OfflineState.WithLabelValues("network").Set(boolToGauge(networkOffline))
	m.OfflineState.WithLabelValues("service").Set(boolToGauge(serviceOffline))
}

// RecordDegradationChange records a degradation level transition
func (m *Metrics) RecordDegradationChange(from, to string, severity int) {
	if m.DegradationChanges == nil {
		return
	}
	m.DegradationChanges.WithLabelValues(from, to).Inc()
	m.DegradationLevel.Set(float64(severity))
}

// UpdateFeatureAvailability records a feature's computed availability
func (m *Metrics) UpdateFeatureAvailability(featureID string, value float64) {
	if m.FeatureAvailability == nil {
		return
	}
	m.FeatureAvailability.WithLabelValues(featureID).Set(value)
}

// UpdateQueueDepth records the current queue depth for a priority band
func (m *Metrics) UpdateQueueDepth(priority string, depth int) {
	if m.QueueDepth == nil {
		return
	}
	m.QueueDepth.WithLabelValues(priority).Set(float64(depth))
}

// RecordQueuedOperation records a deferred operation outcome
// (enqueued, replayed, retried, removed)
func (m *Metrics) RecordQueuedOperation(operationType, outcome string) {
	if m.QueuedOperations == nil {
		return
	}
	m.QueuedOperations.WithLabelValues(operationType, outcome).Inc()
}

// RecordCacheLookup records a mock/cache store lookup result (hit, miss, expired)
func (m *Metrics) RecordCacheLookup(result string) {
	if m.CacheHits == nil {
		return
	}
	m.CacheHits.WithLabelValues(result).Inc()
}

// RecordCacheEviction records a mock/cache store eviction
func (m *Metrics) RecordCacheEviction() {
	if m.CacheEvictions == nil {
		return
	}
	m.CacheEvictions.Inc()
}

// RecordFallbackExecution records an executeWithFallback outcome
// (success, served_cache, served_default, queued, failed)
func (m *Metrics) RecordFallbackExecution(operationType, outcome string) {
	if m.FallbackExecutions == nil {
		return
	}
	m.FallbackExecutions.WithLabelValues(operationType, outcome).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

func boolToGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
