// Package fallback wraps dashboard operations with offline-aware execution:
// primary execution when connectivity allows, then cached data, queued
// deferral, or synthetic mock data according to the feature's policy.
package fallback

import (
	"context"
	"time"

	"github.com/dashlens/resilience-core/internal/degradation"
	"github.com/dashlens/resilience-core/internal/detector"
	"github.com/dashlens/resilience-core/internal/features"
	"github.com/dashlens/resilience-core/internal/mockcache"
	"github.com/dashlens/resilience-core/internal/opqueue"
	"github.com/dashlens/resilience-core/internal/status"
	"github.com/dashlens/resilience-core/pkg/config"
	"github.com/dashlens/resilience-core/pkg/errors"
	"github.com/dashlens/resilience-core/pkg/logging"
	"github.com/dashlens/resilience-core/pkg/metrics"
	"github.com/dashlens/resilience-core/pkg/tracing"
)

// OperationFunc is the primary implementation of an operation.
type OperationFunc func(ctx context.Context) (interface{}, error)

// ReplayExecutor re-executes a deferred operation once connectivity returns.
type ReplayExecutor func(ctx context.Context, op opqueue.Operation) error

// ExecuteOptions controls how ExecuteWithFallback treats one call.
type ExecuteOptions struct {
	// FeatureID selects the fallback policy from the feature registry.
	// Empty means no feature gate; the degrade policy applies.
	FeatureID string
	// Params travel with the operation if it gets queued, so a replay
	// carries the original arguments.
	Params map[string]interface{}
	// Priority orders the operation if it gets queued.
	Priority opqueue.Priority
	// Default is returned when no cached value is available. Nil falls
	// back to generated mock data.
	Default interface{}
	// Mutating marks write operations; their failures count toward the
	// read-only breaker.
	Mutating bool
}

// Result is what ExecuteWithFallback hands back, annotated with where the
// value came from.
type Result struct {
	Value  interface{} `json:"value"`
	Source string      `json:"source"` // primary, cache, mock, default, queued
	Queued bool        `json:"queued"`
	OpID   string      `json:"op_id,omitempty"`
}

// Manager owns the offline fallback machinery: the deferred queue, the
// mock/cache store, and the wiring from connectivity changes to degradation
// level and feature availability.
type Manager struct {
	cfg      config.FallbackConfig
	det      *detector.Detector
	degrader *degradation.Controller
	features *features.Registry
	queue    *opqueue.Queue
	cache    *mockcache.Store
	journal  opqueue.Journal
	executor ReplayExecutor
	logger   *logging.Logger
	metrics  *metrics.Metrics
	tracer   *tracing.TracingService

	unsubscribe func()
}

// Options carries the Manager's collaborators.
type Options struct {
	Detector *detector.Detector
	Degrader *degradation.Controller
	Features *features.Registry
	Journal  opqueue.Journal
	Executor ReplayExecutor
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	Tracer   *tracing.TracingService
}

// NewManager builds a manager and its internal queue and cache.
func NewManager(cfg config.FallbackConfig, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = &metrics.Metrics{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer, _ = tracing.NewTracingService(&tracing.Config{Enabled: false})
	}

	return &Manager{
		cfg:      cfg,
		det:      opts.Detector,
		degrader: opts.Degrader,
		features: opts.Features,
		queue:    opqueue.New(logger, m),
		cache:    mockcache.NewStore(cfg.MockDataCacheSize, cfg.MockDataTTL, logger, m),
		journal:  opts.Journal,
		executor: opts.Executor,
		logger:   logger,
		metrics:  m,
		tracer:   tracer,
	}
}

// Start subscribes the manager to connectivity changes so degradation level,
// feature availability, and queued-operation replay track the status.
func (m *Manager) Start(ctx context.Context) {
	if m.journal != nil {
		m.restoreJournal(ctx)
	}

	if m.det != nil {
		m.unsubscribe = m.det.OnStatusChange(func(event detector.ChangeEvent) {
			m.handleStatusChange(ctx, event)
		})
	}
}

// Stop detaches from the detector and flushes the journal.
func (m *Manager) Stop(ctx context.Context) {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.journal != nil {
		if err := m.journal.Save(ctx, m.queue.Snapshot()); err != nil {
			m.logger.Warn("failed to flush operation journal", "error", err.Error())
		}
	}
}

func (m *Manager) handleStatusChange(ctx context.Context, event detector.ChangeEvent) {
	level := m.degrader.Apply(event.New)
	m.features.Recompute(level)

	if event.Reason == status.ReasonRecoveredConnectivity {
		m.degrader.ClearWriteFailures()
		m.ReplayPending(ctx)
	}
}

// ExecuteWithFallback runs the primary operation when the current status and
// feature gate allow it, caching successful results. Otherwise it applies the
// feature's fallback policy. Per call it performs at most one queue insert
// and one cache read.
func (m *Manager) ExecuteWithFallback(ctx context.Context, operationType string, op OperationFunc, opts ExecuteOptions) (Result, error) {
	ctx, span := m.tracer.StartFallbackSpan(ctx, operationType)
	defer span.End()

	// The configured policy governs every fallback for this call, whether
	// the feature gate is closed, the status is offline, or the primary
	// operation fails.
	policy := features.FallbackDegrade
	if opts.FeatureID != "" {
		policy = m.features.Fallback(opts.FeatureID)
		if !m.features.IsAvailable(opts.FeatureID) {
			if policy == features.FallbackDisable {
				m.metrics.RecordFallbackExecution(operationType, "disabled")
				return Result{}, errors.NewFeatureDisabledError(opts.FeatureID, m.features.Message(opts.FeatureID))
			}
			return m.fallbackResult(operationType, policy, opts, nil)
		}
	}

	if m.det != nil && m.det.Status().IsOffline {
		return m.fallbackResult(operationType, policy, opts, errors.NewOfflineError(operationType))
	}

	value, err := op(ctx)
	if err == nil {
		m.cache.Set(operationType, value)
		m.metrics.RecordFallbackExecution(operationType, "primary")
		if opts.Mutating {
			m.degrader.ClearWriteFailures()
		}
		return Result{Value: value, Source: "primary"}, nil
	}

	m.logger.Warn("primary operation failed, applying fallback",
		"operation_type", operationType,
		"error", err.Error(),
	)
	if opts.Mutating {
		m.degrader.ReportWriteFailure()
	}

	return m.fallbackResult(operationType, policy, opts, err)
}

// fallbackResult resolves a value per the fallback policy. The queue policy
// defers the operation and then still serves the best read it can; degrade
// and queue always swallow the failure, only disable surfaces it.
func (m *Manager) fallbackResult(operationType string, policy features.FallbackPolicy, opts ExecuteOptions, cause error) (Result, error) {
	res := Result{}

	if policy == features.FallbackDisable && cause != nil {
		m.metrics.RecordFallbackExecution(operationType, "error")
		return res, errors.NewOperationError(operationType, cause)
	}

	if policy == features.FallbackQueue {
		res.Queued = true
		res.OpID = m.QueueOperation(operationType, opts.Params, opts.Priority)
	}

	if value, ok := m.cache.Get(operationType); ok {
		res.Value = value
		res.Source = "cache"
		m.metrics.RecordFallbackExecution(operationType, "cache")
		return res, nil
	}

	if opts.Default != nil {
		res.Value = opts.Default
		res.Source = "default"
		m.metrics.RecordFallbackExecution(operationType, "default")
		return res, nil
	}

	res.Value = mockcache.GenerateMock(operationType)
	res.Source = "mock"
	m.metrics.RecordFallbackExecution(operationType, "mock")
	return res, nil
}

// UpdateConfig applies runtime overrides to the fallback machinery: the
// cache store is re-bounded and its default TTL retuned.
func (m *Manager) UpdateConfig(cfg config.FallbackConfig) {
	m.cfg = cfg
	m.cache.Reconfigure(cfg.MockDataCacheSize, cfg.MockDataTTL)
}

// QueueOperation defers an operation for replay and returns its ID. The
// journal write is best-effort.
func (m *Manager) QueueOperation(operationType string, params map[string]interface{}, priority opqueue.Priority) string {
	id := m.queue.Enqueue(operationType, params, priority)

	if m.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := m.journal.Save(ctx, m.queue.Snapshot()); err != nil {
			m.logger.Warn("failed to journal queued operation",
				"operation_id", id,
				"error", err.Error(),
			)
		}
	}

	return id
}

// RemoveOperation cancels a queued operation.
func (m *Manager) RemoveOperation(id string) bool {
	return m.queue.Remove(id)
}

// PendingOperations returns the queued operations in replay order.
func (m *Manager) PendingOperations() []opqueue.Operation {
	return m.queue.Snapshot()
}

// ReplayPending drains the queue and re-executes each operation in priority
// then FIFO order. Failed operations get their retry count bumped and go
// back on the queue.
func (m *Manager) ReplayPending(ctx context.Context) {
	if m.executor == nil {
		return
	}

	ops := m.queue.Drain()
	if len(ops) == 0 {
		return
	}

	m.logger.Info("replaying deferred operations", "count", len(ops))

	for _, op := range ops {
		if err := m.executor(ctx, op); err != nil {
			op.RetryCount++
			m.queue.Requeue(op)
			m.metrics.RecordQueuedOperation(op.Type, "retry")
			m.logger.Warn("deferred operation replay failed",
				"operation_id", op.ID,
				"operation_type", op.Type,
				"retry_count", op.RetryCount,
				"error", err.Error(),
			)
			continue
		}
		m.metrics.RecordQueuedOperation(op.Type, "replayed")
	}

	if m.journal != nil {
		if err := m.journal.Save(ctx, m.queue.Snapshot()); err != nil {
			m.logger.Warn("failed to journal queue after replay", "error", err.Error())
		}
	}
}

// GetMockData returns cached data for the operation type when present,
// otherwise generated mock data.
func (m *Manager) GetMockData(operationType string) interface{} {
	if value, ok := m.cache.Get(operationType); ok {
		return value
	}
	return mockcache.GenerateMock(operationType)
}

// SeedCache stores a value for later offline reads.
func (m *Manager) SeedCache(operationType string, value interface{}) {
	m.cache.Set(operationType, value)
}

// Cache exposes the underlying store, mainly for tests and the status API.
func (m *Manager) Cache() *mockcache.Store {
	return m.cache
}

func (m *Manager) restoreJournal(ctx context.Context) {
	ops, err := m.journal.Load(ctx)
	if err != nil {
		m.logger.Warn("failed to restore operation journal", "error", err.Error())
		return
	}
	for _, op := range ops {
		m.queue.Requeue(op)
	}
	if len(ops) > 0 {
		m.logger.Info("restored deferred operations from journal", "count", len(ops))
	}
}
