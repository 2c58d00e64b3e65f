package detector

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dashlens/resilience-core/internal/status"
)

// ChangeEvent is delivered to subscribers when a status change is applied.
type ChangeEvent struct {
	Previous  status.Snapshot `json:"previous"`
	New       status.Snapshot `json:"new"`
	Reason    string          `json:"reason"`
	Timestamp time.Time       `json:"timestamp"`
}

// notifier fans status-change events out to subscribers. Each callback runs
// recovered so one failing subscriber cannot block the others or crash the
// polling loop, and dispatch happens on a snapshot of the subscriber list so
// callbacks may subscribe or unsubscribe reentrantly.
type notifier struct {
	mu          sync.RWMutex
	subscribers map[string]func(ChangeEvent)
	logger      *zap.Logger
}

func newNotifier(logger *zap.Logger) *notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &notifier{
		subscribers: make(map[string]func(ChangeEvent)),
		logger:      logger,
	}
}

// subscribe registers a callback and returns an unsubscribe function.
// Unsubscribing twice is harmless.
func (n *notifier) subscribe(fn func(ChangeEvent)) func() {
	id := uuid.New().String()

	n.mu.Lock()
	n.subscribers[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subscribers, id)
		n.mu.Unlock()
	}
}

// dispatch delivers the event to all current subscribers sequentially.
func (n *notifier) dispatch(event ChangeEvent) {
	n.mu.RLock()
	callbacks := make([]func(ChangeEvent), 0, len(n.subscribers))
	for _, fn := range n.subscribers {
		callbacks = append(callbacks, fn)
	}
	n.mu.RUnlock()

	for _, fn := range callbacks {
		n.deliver(fn, event)
	}

	n.logger.Debug("status change dispatched",
		zap.String("reason", event.Reason),
		zap.Bool("is_offline", event.New.IsOffline),
		zap.Int("subscribers", len(callbacks)),
	)
}

func (n *notifier) deliver(fn func(ChangeEvent), event ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("status change subscriber panicked",
				zap.Any("panic", r),
				zap.String("reason", event.Reason),
			)
		}
	}()
	fn(event)
}

// count returns the number of active subscribers.
func (n *notifier) count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers)
}

// clear removes all subscribers.
func (n *notifier) clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = make(map[string]func(ChangeEvent))
}
