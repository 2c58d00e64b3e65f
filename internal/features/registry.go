// Package features tracks which dashboard features are usable at the
// current degradation level and what to do about the ones that are not.
package features

import (
	"sync"
	"time"

	"github.com/dashlens/resilience-core/internal/degradation"
	"github.com/dashlens/resilience-core/pkg/logging"
	"github.com/dashlens/resilience-core/pkg/metrics"
)

// FallbackPolicy is what a feature does when it is unavailable.
type FallbackPolicy string

const (
	// FallbackDisable hides the feature entirely.
	FallbackDisable FallbackPolicy = "disable"
	// FallbackDegrade serves a reduced version from cached or mock data.
	FallbackDegrade FallbackPolicy = "degrade"
	// FallbackQueue defers the feature's operations for later replay.
	FallbackQueue FallbackPolicy = "queue"
)

// FeatureConfig declares a feature and its degradation behavior.
type FeatureConfig struct {
	FeatureID    string            `json:"feature_id"`
	Essential    bool              `json:"essential"`
	Fallback     FallbackPolicy    `json:"fallback"`
	MinLevel     degradation.Level `json:"min_level"`
	Message      string            `json:"message,omitempty"`
	Alternatives []string          `json:"alternatives,omitempty"`
}

// Tri-state feature status. A feature whose gate is closed is either fully
// disabled or serving a degraded substitute, depending on its policy.
const (
	StatusAvailable = "available"
	StatusDegraded  = "degraded"
	StatusDisabled  = "disabled"
)

// FeatureState is the computed availability of one feature.
type FeatureState struct {
	FeatureID    string         `json:"feature_id"`
	Available    bool           `json:"available"`
	Status       string         `json:"status"`
	Fallback     FallbackPolicy `json:"fallback"`
	Message      string         `json:"message,omitempty"`
	Alternatives []string       `json:"alternatives,omitempty"`
	LastChange   time.Time      `json:"last_change"`
}

// Registry holds feature declarations and their availability at the current
// degradation level. Lookups are O(1) against precomputed state.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]FeatureConfig
	states  map[string]FeatureState
	level   degradation.Level
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewRegistry creates a registry computed at LevelFull.
func NewRegistry(configs []FeatureConfig, logger *logging.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if m == nil {
		m = &metrics.Metrics{}
	}

	r := &Registry{
		configs: make(map[string]FeatureConfig, len(configs)),
		states:  make(map[string]FeatureState, len(configs)),
		logger:  logger,
		metrics: m,
	}
	for _, cfg := range configs {
		r.configs[cfg.FeatureID] = cfg
	}
	r.Recompute(degradation.LevelFull)
	return r
}

// Register adds or replaces a feature declaration and recomputes its state
// at the current level.
func (r *Registry) Register(cfg FeatureConfig) {
	r.mu.Lock()
	r.configs[cfg.FeatureID] = cfg
	r.computeLocked(cfg)
	r.mu.Unlock()
}

// Recompute re-evaluates every feature against a new degradation level.
func (r *Registry) Recompute(level degradation.Level) {
	r.mu.Lock()
	r.level = level
	for _, cfg := range r.configs {
		r.computeLocked(cfg)
	}
	r.mu.Unlock()
}

// computeLocked updates one feature's state. Essential features stay
// available down to read-only; everything else is gated by MinLevel.
func (r *Registry) computeLocked(cfg FeatureConfig) {
	available := r.level <= cfg.MinLevel
	if cfg.Essential && r.level <= degradation.LevelReadOnly {
		available = true
	}

	statusText := StatusAvailable
	if !available {
		if cfg.Fallback == FallbackDisable {
			statusText = StatusDisabled
		} else {
			statusText = StatusDegraded
		}
	}

	prev, known := r.states[cfg.FeatureID]
	state := FeatureState{
		FeatureID:    cfg.FeatureID,
		Available:    available,
		Status:       statusText,
		Fallback:     cfg.Fallback,
		Message:      cfg.Message,
		Alternatives: cfg.Alternatives,
		LastChange:   prev.LastChange,
	}
	if !known || prev.Available != available {
		state.LastChange = time.Now()
	}
	r.states[cfg.FeatureID] = state

	value := 0.0
	if available {
		value = 1.0
	}
	r.metrics.UpdateFeatureAvailability(cfg.FeatureID, value)
}

// IsAvailable reports whether the feature is usable right now. Unknown
// features are available: the registry only restricts what it knows about.
func (r *Registry) IsAvailable(featureID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[featureID]
	if !ok {
		return true
	}
	return state.Available
}

// Status returns the computed state for a feature. The second return value
// is false for unknown features.
func (r *Registry) Status(featureID string) (FeatureState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[featureID]
	return state, ok
}

// Message returns the user-facing explanation for an unavailable feature,
// or "" when the feature is available or unknown.
func (r *Registry) Message(featureID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[featureID]
	if !ok || state.Available {
		return ""
	}
	return state.Message
}

// Alternatives returns suggested substitute features for an unavailable
// feature.
func (r *Registry) Alternatives(featureID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[featureID]
	if !ok || state.Available {
		return nil
	}
	return append([]string(nil), state.Alternatives...)
}

// Fallback returns the configured fallback policy for a feature.
// Unregistered features default to FallbackDegrade.
func (r *Registry) Fallback(featureID string) FallbackPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[featureID]
	if !ok {
		return FallbackDegrade
	}
	return cfg.Fallback
}

// EssentialAvailable reports whether every essential feature is usable.
func (r *Registry) EssentialAvailable() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, cfg := range r.configs {
		if cfg.Essential && !r.states[id].Available {
			return false
		}
	}
	return true
}

// All returns every feature state, keyed by feature ID.
func (r *Registry) All() map[string]FeatureState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]FeatureState, len(r.states))
	for id, state := range r.states {
		out[id] = state
	}
	return out
}

// Level returns the degradation level the registry last computed against.
func (r *Registry) Level() degradation.Level {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.level
}
