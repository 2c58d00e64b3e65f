package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashlens/resilience-core/internal/degradation"
)

func testFeatures() []FeatureConfig {
	return []FeatureConfig{
		{
			FeatureID: "overview",
			Essential: true,
			Fallback:  FallbackDegrade,
			MinLevel:  degradation.LevelReadOnly,
		},
		{
			FeatureID:    "live-metrics",
			Fallback:     FallbackDegrade,
			MinLevel:     degradation.LevelLimited,
			Message:      "Live metrics are paused.",
			Alternatives: []string{"overview"},
		},
		{
			FeatureID: "report-export",
			Fallback:  FallbackQueue,
			MinLevel:  degradation.LevelFull,
			Message:   "Exports run after reconnect.",
		},
		{
			FeatureID: "admin-settings",
			Fallback:  FallbackDisable,
			MinLevel:  degradation.LevelFull,
		},
	}
}

func TestRegistryAllAvailableAtFull(t *testing.T) {
	r := NewRegistry(testFeatures(), nil, nil)

	for id := range r.All() {
		assert.True(t, r.IsAvailable(id), id)
	}
	assert.True(t, r.EssentialAvailable())
}

func TestRegistryRecompute(t *testing.T) {
	r := NewRegistry(testFeatures(), nil, nil)

	r.Recompute(degradation.LevelLimited)
	assert.True(t, r.IsAvailable("overview"))
	assert.True(t, r.IsAvailable("live-metrics"))
	assert.False(t, r.IsAvailable("report-export"))
	assert.False(t, r.IsAvailable("admin-settings"))

	r.Recompute(degradation.LevelOffline)
	assert.False(t, r.IsAvailable("live-metrics"))
	assert.False(t, r.IsAvailable("overview"), "even essentials stop at fully offline")
	assert.False(t, r.EssentialAvailable())

	r.Recompute(degradation.LevelReadOnly)
	assert.True(t, r.IsAvailable("overview"), "essentials survive down to read-only")
	assert.True(t, r.EssentialAvailable())
}

func TestRegistryTriStateStatus(t *testing.T) {
	r := NewRegistry(testFeatures(), nil, nil)

	state, _ := r.Status("live-metrics")
	assert.Equal(t, StatusAvailable, state.Status)

	r.Recompute(degradation.LevelMinimal)

	state, _ = r.Status("live-metrics")
	assert.Equal(t, StatusDegraded, state.Status, "a closed degrade-policy feature reads degraded")

	state, _ = r.Status("report-export")
	assert.Equal(t, StatusDegraded, state.Status, "queue-policy features degrade rather than disappear")

	state, _ = r.Status("admin-settings")
	assert.Equal(t, StatusDisabled, state.Status, "a closed disable-policy feature reads disabled")
}

func TestRegistryMessagesAndAlternatives(t *testing.T) {
	r := NewRegistry(testFeatures(), nil, nil)

	assert.Empty(t, r.Message("live-metrics"), "available features carry no message")

	r.Recompute(degradation.LevelMinimal)
	assert.Equal(t, "Live metrics are paused.", r.Message("live-metrics"))
	assert.Equal(t, []string{"overview"}, r.Alternatives("live-metrics"))
	assert.Empty(t, r.Alternatives("overview"))
}

func TestRegistryUnknownFeature(t *testing.T) {
	r := NewRegistry(testFeatures(), nil, nil)

	assert.True(t, r.IsAvailable("never-registered"))
	assert.Empty(t, r.Message("never-registered"))
	assert.Equal(t, FallbackDegrade, r.Fallback("never-registered"))

	_, ok := r.Status("never-registered")
	assert.False(t, ok)
}

func TestRegistryRegisterAtCurrentLevel(t *testing.T) {
	r := NewRegistry(testFeatures(), nil, nil)
	r.Recompute(degradation.LevelMinimal)

	r.Register(FeatureConfig{
		FeatureID: "annotations",
		Fallback:  FallbackQueue,
		MinLevel:  degradation.LevelMinimal,
	})

	state, ok := r.Status("annotations")
	require.True(t, ok)
	assert.True(t, state.Available)
	assert.Equal(t, FallbackQueue, state.Fallback)
}
