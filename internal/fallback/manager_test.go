package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashlens/resilience-core/internal/degradation"
	"github.com/dashlens/resilience-core/internal/detector"
	"github.com/dashlens/resilience-core/internal/features"
	"github.com/dashlens/resilience-core/internal/opqueue"
	"github.com/dashlens/resilience-core/internal/probe"
	"github.com/dashlens/resilience-core/pkg/config"
	apperrors "github.com/dashlens/resilience-core/pkg/errors"
)

func testManager(t *testing.T, featureConfigs []features.FeatureConfig) (*Manager, *degradation.Controller, *features.Registry) {
	t.Helper()

	degrader := degradation.NewController(config.Default().Degradation, nil, nil)
	registry := features.NewRegistry(featureConfigs, nil, nil)

	m := NewManager(config.FallbackConfig{
		MockDataCacheSize: 10,
		MockDataTTL:       time.Minute,
	}, Options{
		Degrader: degrader,
		Features: registry,
	})
	return m, degrader, registry
}

func offlineDetector(t *testing.T) *detector.Detector {
	t.Helper()

	cfg := config.Default()
	cfg.Detection.CheckInterval = time.Hour
	cfg.Detection.StatusChangeDebounce = 0
	d := detector.NewDetector(cfg, detector.Options{
		Prober: probe.NewScriptedProber(probe.ScriptedStep{
			Network: probe.Result{Error: "down"},
			Service: probe.Result{Error: "down"},
		}),
	})
	for i := 0; i < 3; i++ {
		_, err := d.ForceCheck(context.Background())
		require.NoError(t, err)
	}
	require.True(t, d.Status().IsOffline)
	return d
}

func TestExecutePrimarySuccessSeedsCache(t *testing.T) {
	m, _, _ := testManager(t, nil)

	res, err := m.ExecuteWithFallback(context.Background(), "fetchMetrics", func(ctx context.Context) (interface{}, error) {
		return "live-data", nil
	}, ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "primary", res.Source)
	assert.Equal(t, "live-data", res.Value)

	// The successful result is now available for offline reads.
	assert.Equal(t, "live-data", m.GetMockData("fetchMetrics"))
}

func TestExecuteOfflineServesCache(t *testing.T) {
	m, _, _ := testManager(t, nil)
	m.det = offlineDetector(t)
	m.SeedCache("fetchMetrics", "cached-data")

	called := false
	res, err := m.ExecuteWithFallback(context.Background(), "fetchMetrics", func(ctx context.Context) (interface{}, error) {
		called = true
		return nil, nil
	}, ExecuteOptions{})
	require.NoError(t, err)
	assert.False(t, called, "the primary operation must not run while offline")
	assert.Equal(t, "cache", res.Source)
	assert.Equal(t, "cached-data", res.Value)
}

func TestExecuteOfflineFallsBackToDefaultThenMock(t *testing.T) {
	m, _, _ := testManager(t, nil)
	m.det = offlineDetector(t)

	res, err := m.ExecuteWithFallback(context.Background(), "fetchReport", nil, ExecuteOptions{
		Default: "placeholder",
	})
	require.NoError(t, err)
	assert.Equal(t, "default", res.Source)
	assert.Equal(t, "placeholder", res.Value)

	res, err = m.ExecuteWithFallback(context.Background(), "fetchReport", nil, ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "mock", res.Source)
	payload, ok := res.Value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, payload["mock"])
}

func TestExecuteQueuePolicyDefersExactlyOnce(t *testing.T) {
	m, _, registry := testManager(t, []features.FeatureConfig{{
		FeatureID: "report-export",
		Fallback:  features.FallbackQueue,
		MinLevel:  degradation.LevelFull,
	}})
	registry.Recompute(degradation.LevelLimited)

	res, err := m.ExecuteWithFallback(context.Background(), "fetchReport", nil, ExecuteOptions{
		FeatureID: "report-export",
		Priority:  opqueue.PriorityHigh,
		Default:   "deferred",
	})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.NotEmpty(t, res.OpID)
	assert.Equal(t, "deferred", res.Value)

	pending := m.PendingOperations()
	require.Len(t, pending, 1, "exactly one queue insert per call")
	assert.Equal(t, "fetchReport", pending[0].Type)
	assert.Equal(t, opqueue.PriorityHigh, pending[0].Priority)
}

func TestExecuteQueuePolicyAppliedOnPrimaryFailure(t *testing.T) {
	m, _, registry := testManager(t, []features.FeatureConfig{{
		FeatureID: "report-export",
		Fallback:  features.FallbackQueue,
		MinLevel:  degradation.LevelFull,
	}})
	require.True(t, registry.IsAvailable("report-export"))

	params := map[string]interface{}{"report_id": "weekly-7"}
	res, err := m.ExecuteWithFallback(context.Background(), "fetchReport", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("backend error")
	}, ExecuteOptions{
		FeatureID: "report-export",
		Params:    params,
		Priority:  opqueue.PriorityHigh,
		Default:   "deferred",
	})
	require.NoError(t, err)
	assert.True(t, res.Queued, "a failing op under the queue policy must be deferred")
	assert.Equal(t, "deferred", res.Value)

	pending := m.PendingOperations()
	require.Len(t, pending, 1)
	assert.Equal(t, "fetchReport", pending[0].Type)
	assert.Equal(t, params, pending[0].Params, "queued operations keep their parameters")
}

func TestExecuteDisablePolicyReturnsError(t *testing.T) {
	m, _, registry := testManager(t, []features.FeatureConfig{{
		FeatureID: "admin-settings",
		Fallback:  features.FallbackDisable,
		MinLevel:  degradation.LevelFull,
		Message:   "Settings are locked.",
	}})
	registry.Recompute(degradation.LevelLimited)

	_, err := m.ExecuteWithFallback(context.Background(), "updateSettings", nil, ExecuteOptions{
		FeatureID: "admin-settings",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeFeatureDisabled))
	assert.Empty(t, m.PendingOperations(), "disabled features never queue")
}

func TestExecuteDegradePolicySwallowsFailure(t *testing.T) {
	m, degrader, _ := testManager(t, nil)

	res, err := m.ExecuteWithFallback(context.Background(), "saveAnnotation", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("write rejected")
	}, ExecuteOptions{Mutating: true})
	require.NoError(t, err, "the degrade policy serves a substitute, never the failure")
	assert.Equal(t, "mock", res.Source)
	assert.Equal(t, degradation.LevelFull, degrader.Level(), "one failure does not trip read-only")
	assert.Empty(t, m.PendingOperations(), "the degrade policy never queues")
}

func TestExecuteDisablePolicySurfacesFailure(t *testing.T) {
	m, _, registry := testManager(t, []features.FeatureConfig{{
		FeatureID: "admin-settings",
		Fallback:  features.FallbackDisable,
		MinLevel:  degradation.LevelFull,
	}})
	require.True(t, registry.IsAvailable("admin-settings"))

	_, err := m.ExecuteWithFallback(context.Background(), "updateSettings", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("write rejected")
	}, ExecuteOptions{FeatureID: "admin-settings", Mutating: true})
	require.Error(t, err, "only the disable policy surfaces the failure")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestManagerUpdateConfigReboundsCache(t *testing.T) {
	m, _, _ := testManager(t, nil)

	m.SeedCache("fetchMetrics", 1)
	m.SeedCache("fetchReport", 2)
	m.SeedCache("fetchDashboard", 3)
	require.Equal(t, 3, m.Cache().Len())

	m.UpdateConfig(config.FallbackConfig{
		MockDataCacheSize: 1,
		MockDataTTL:       time.Minute,
	})
	assert.Equal(t, 1, m.Cache().Len(), "shrinking the cache size evicts down to the bound")
}

func TestWriteFailuresTripReadOnly(t *testing.T) {
	m, degrader, _ := testManager(t, nil)

	fail := func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("write rejected")
	}
	for i := 0; i < 3; i++ {
		m.ExecuteWithFallback(context.Background(), "saveAnnotation", fail, ExecuteOptions{Mutating: true})
	}
	assert.Equal(t, degradation.LevelReadOnly, degrader.Level())

	// A successful write clears the breaker's counter.
	degrader.ClearWriteFailures()
	res, err := m.ExecuteWithFallback(context.Background(), "saveAnnotation", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	}, ExecuteOptions{Mutating: true})
	require.NoError(t, err)
	assert.Equal(t, "primary", res.Source)
}

func TestReplayPendingRunsInOrder(t *testing.T) {
	var replayed []string
	m, _, _ := testManager(t, nil)
	m.executor = func(ctx context.Context, op opqueue.Operation) error {
		replayed = append(replayed, op.Type)
		return nil
	}

	m.QueueOperation("low-op", nil, opqueue.PriorityLow)
	m.QueueOperation("high-op", nil, opqueue.PriorityHigh)
	m.QueueOperation("medium-op", nil, opqueue.PriorityMedium)

	m.ReplayPending(context.Background())

	assert.Equal(t, []string{"high-op", "medium-op", "low-op"}, replayed)
	assert.Empty(t, m.PendingOperations())
}

func TestReplayPendingRequeuesFailures(t *testing.T) {
	m, _, _ := testManager(t, nil)
	m.executor = func(ctx context.Context, op opqueue.Operation) error {
		if op.Type == "flaky" {
			return errors.New("still failing")
		}
		return nil
	}

	m.QueueOperation("flaky", nil, opqueue.PriorityHigh)
	m.QueueOperation("fine", nil, opqueue.PriorityLow)

	m.ReplayPending(context.Background())

	pending := m.PendingOperations()
	require.Len(t, pending, 1)
	assert.Equal(t, "flaky", pending[0].Type)
	assert.Equal(t, 1, pending[0].RetryCount)
}

func TestStatusChangeRecomputesFeaturesAndReplays(t *testing.T) {
	cfg := config.Default()
	cfg.Detection.CheckInterval = time.Hour
	cfg.Detection.StatusChangeDebounce = 0

	prober := probe.NewScriptedProber(
		probe.ScriptedStep{Network: probe.Result{Error: "down"}, Service: probe.Result{Error: "down"}},
		probe.ScriptedStep{Network: probe.Result{Error: "down"}, Service: probe.Result{Error: "down"}},
		probe.ScriptedStep{Network: probe.Result{Error: "down"}, Service: probe.Result{Error: "down"}},
		probe.ScriptedStep{Network: probe.Result{Success: true}, Service: probe.Result{Success: true}},
		probe.ScriptedStep{Network: probe.Result{Success: true}, Service: probe.Result{Success: true}},
	)
	det := detector.NewDetector(cfg, detector.Options{Prober: prober})

	degrader := degradation.NewController(cfg.Degradation, nil, nil)
	registry := features.NewRegistry([]features.FeatureConfig{{
		FeatureID: "live-metrics",
		Fallback:  features.FallbackDegrade,
		MinLevel:  degradation.LevelLimited,
	}}, nil, nil)

	var replayed []string
	m := NewManager(cfg.Fallback, Options{
		Detector: det,
		Degrader: degrader,
		Features: registry,
		Executor: func(ctx context.Context, op opqueue.Operation) error {
			replayed = append(replayed, op.Type)
			return nil
		},
	})
	m.Start(context.Background())
	defer m.Stop(context.Background())

	m.QueueOperation("saveAnnotation", nil, opqueue.PriorityMedium)

	// Going offline degrades and disables the feature.
	for i := 0; i < 3; i++ {
		_, err := det.ForceCheck(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, degradation.LevelOffline, degrader.Level())
	assert.False(t, registry.IsAvailable("live-metrics"))
	assert.Empty(t, replayed, "nothing replays while offline")

	// Recovery restores the level and replays the queue.
	for i := 0; i < 2; i++ {
		_, err := det.ForceCheck(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, degradation.LevelFull, degrader.Level())
	assert.True(t, registry.IsAvailable("live-metrics"))
	assert.Equal(t, []string{"saveAnnotation"}, replayed)
	assert.Empty(t, m.PendingOperations())
}
