// Package degradation maps connectivity status onto a five-level service
// degradation ladder and tracks the transitions between levels.
package degradation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dashlens/resilience-core/internal/status"
	"github.com/dashlens/resilience-core/pkg/config"
	"github.com/dashlens/resilience-core/pkg/logging"
	"github.com/dashlens/resilience-core/pkg/metrics"
)

// Level is a service degradation level. Lower values mean more capability.
type Level int

const (
	// LevelFull means all features operate normally.
	LevelFull Level = iota
	// LevelLimited disables non-essential features.
	LevelLimited
	// LevelMinimal keeps only essential features running.
	LevelMinimal
	// LevelReadOnly blocks all mutating operations.
	LevelReadOnly
	// LevelOffline serves cached and mock data only.
	LevelOffline
)

func (l Level) String() string {
	switch l {
	case LevelFull:
		return "full"
	case LevelLimited:
		return "limited"
	case LevelMinimal:
		return "minimal"
	case LevelReadOnly:
		return "read_only"
	case LevelOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Transition records one level change.
type Transition struct {
	From      Level     `json:"from"`
	To        Level     `json:"to"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Controller derives the current degradation level from connectivity
// snapshots and explicit write-failure reports. Subscribers are notified
// only when the level actually changes.
type Controller struct {
	mu            sync.Mutex
	cfg           config.DegradationConfig
	level         Level
	previous      Level
	writeFailures int
	forced        bool
	transitions   []Transition
	subscribers   map[string]func(Transition)
	logger        *logging.Logger
	metrics       *metrics.Metrics
}

// NewController creates a controller starting at LevelFull.
func NewController(cfg config.DegradationConfig, logger *logging.Logger, m *metrics.Metrics) *Controller {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if m == nil {
		m = &metrics.Metrics{}
	}
	if cfg.TransitionHistorySize <= 0 {
		cfg.TransitionHistorySize = 20
	}
	if cfg.WriteFailureThreshold <= 0 {
		cfg.WriteFailureThreshold = 3
	}

	return &Controller{
		cfg:         cfg,
		level:       LevelFull,
		previous:    LevelFull,
		subscribers: make(map[string]func(Transition)),
		logger:      logger,
		metrics:     m,
	}
}

// Level returns the current degradation level.
func (c *Controller) Level() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// PreviousLevel returns the level before the most recent transition.
func (c *Controller) PreviousLevel() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous
}

// Apply re-derives the degradation level from a connectivity snapshot.
// Service-channel loss dominates: a dead backend degrades harder than a
// flaky local network, because nothing useful can be fetched either way.
func (c *Controller) Apply(snap status.Snapshot) Level {
	target := levelFor(snap, c.cfg.LowConfidenceThreshold)
	return c.transitionTo(target, reasonFor(snap, target))
}

func levelFor(snap status.Snapshot, lowConfidence int) Level {
	switch {
	case snap.NetworkOffline && snap.ServiceOffline:
		return LevelOffline
	case snap.ServiceOffline:
		return LevelMinimal
	case snap.NetworkOffline:
		return LevelLimited
	case snap.Confidence > 0 && snap.Confidence < lowConfidence:
		return LevelLimited
	default:
		return LevelFull
	}
}

func reasonFor(snap status.Snapshot, target Level) string {
	switch {
	case target == LevelFull:
		return "connectivity_restored"
	case snap.NetworkOffline && snap.ServiceOffline:
		return "fully_offline"
	case snap.ServiceOffline:
		return "service_unreachable"
	case snap.NetworkOffline:
		return "network_unreachable"
	default:
		return "low_confidence"
	}
}

// ReportWriteFailure counts a failed mutating operation. Reaching the
// configured threshold forces LevelReadOnly until ClearWriteFailures is
// called, regardless of what connectivity looks like.
func (c *Controller) ReportWriteFailure() Level {
	c.mu.Lock()
	c.writeFailures++
	trip := c.writeFailures >= c.cfg.WriteFailureThreshold
	c.mu.Unlock()

	if trip {
		return c.transitionTo(LevelReadOnly, "write_failures")
	}
	return c.Level()
}

// ClearWriteFailures resets the write-failure counter and lifts a forced
// read-only state. The next Apply decides the real level.
func (c *Controller) ClearWriteFailures() {
	c.mu.Lock()
	c.writeFailures = 0
	c.forced = false
	c.mu.Unlock()
}

func (c *Controller) transitionTo(target Level, reason string) Level {
	c.mu.Lock()

	// A tripped write-failure breaker pins the level at read-only or worse.
	if target == LevelReadOnly && reason == "write_failures" {
		c.forced = true
	}
	if c.forced && target < LevelReadOnly {
		target = LevelReadOnly
	}

	if target == c.level {
		c.mu.Unlock()
		return target
	}

	t := Transition{
		From:      c.level,
		To:        target,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	c.previous = c.level
	c.level = target

	c.transitions = append(c.transitions, t)
	if len(c.transitions) > c.cfg.TransitionHistorySize {
		c.transitions = c.transitions[len(c.transitions)-c.cfg.TransitionHistorySize:]
	}

	callbacks := make([]func(Transition), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		callbacks = append(callbacks, fn)
	}
	c.mu.Unlock()

	c.metrics.RecordDegradationChange(t.From.String(), t.To.String(), int(target))
	c.logger.Warn("degradation level changed",
		"from", t.From.String(),
		"to", t.To.String(),
		"reason", reason,
	)

	for _, fn := range callbacks {
		fn(t)
	}

	return target
}

// OnLevelChange registers a transition subscriber and returns an
// unsubscribe function.
func (c *Controller) OnLevelChange(fn func(Transition)) func() {
	id := uuid.New().String()

	c.mu.Lock()
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// RecentTransitions returns up to n most recent transitions, oldest first.
func (c *Controller) RecentTransitions(n int) []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 || n > len(c.transitions) {
		n = len(c.transitions)
	}
	out := make([]Transition, n)
	copy(out, c.transitions[len(c.transitions)-n:])
	return out
}
