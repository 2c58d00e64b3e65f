// Package opqueue holds mutating operations that could not be executed
// while offline, for replay once connectivity returns.
package opqueue

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dashlens/resilience-core/pkg/logging"
	"github.com/dashlens/resilience-core/pkg/metrics"
)

// Priority orders deferred operations for replay.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParsePriority maps a string to a Priority, defaulting to medium.
func ParsePriority(s string) Priority {
	switch s {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Operation is one deferred unit of work.
type Operation struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Params     map[string]interface{} `json:"params,omitempty"`
	Priority   Priority               `json:"priority"`
	EnqueuedAt time.Time              `json:"enqueued_at"`
	RetryCount int                    `json:"retry_count"`

	seq uint64
}

// Queue is an in-memory deferred-operation queue. Replay order is priority
// first, then FIFO within a priority.
type Queue struct {
	mu      sync.Mutex
	ops     []Operation
	nextSeq uint64
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New creates an empty queue.
func New(logger *logging.Logger, m *metrics.Metrics) *Queue {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if m == nil {
		m = &metrics.Metrics{}
	}
	return &Queue{logger: logger, metrics: m}
}

// Enqueue adds an operation and returns its generated ID.
func (q *Queue) Enqueue(opType string, params map[string]interface{}, priority Priority) string {
	op := Operation{
		ID:         uuid.New().String(),
		Type:       opType,
		Params:     params,
		Priority:   priority,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	op.seq = q.nextSeq
	q.nextSeq++
	q.ops = append(q.ops, op)
	q.mu.Unlock()

	q.metrics.RecordQueuedOperation(opType, "enqueued")
	q.updateDepth()
	q.logger.Debug("operation queued",
		"operation_id", op.ID,
		"operation_type", opType,
		"priority", priority.String(),
	)

	return op.ID
}

// Remove deletes the operation with the given ID. It removes at most one
// entry and reports whether anything was removed.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	removed := false
	for i, op := range q.ops {
		if op.ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			removed = true
			break
		}
	}
	q.mu.Unlock()

	if removed {
		q.updateDepth()
	}
	return removed
}

// Len returns the number of queued operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Snapshot returns the queued operations in replay order without removing
// them.
func (q *Queue) Snapshot() []Operation {
	q.mu.Lock()
	out := make([]Operation, len(q.ops))
	copy(out, q.ops)
	q.mu.Unlock()

	sortOps(out)
	return out
}

// Drain removes and returns all queued operations in replay order.
func (q *Queue) Drain() []Operation {
	q.mu.Lock()
	out := q.ops
	q.ops = nil
	q.mu.Unlock()

	sortOps(out)
	q.updateDepth()
	return out
}

// Requeue puts an operation back, keeping its identity and retry count.
// Replayed-and-failed operations go back through here.
func (q *Queue) Requeue(op Operation) {
	q.mu.Lock()
	op.seq = q.nextSeq
	q.nextSeq++
	q.ops = append(q.ops, op)
	q.mu.Unlock()

	q.updateDepth()
}

// IncrementRetry bumps the retry counter for a queued operation.
func (q *Queue) IncrementRetry(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.ops {
		if q.ops[i].ID == id {
			q.ops[i].RetryCount++
			return
		}
	}
}

// sortOps orders by descending priority, then arrival. The sort is over a
// seq counter rather than timestamps so same-millisecond arrivals stay FIFO.
func sortOps(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Priority != ops[j].Priority {
			return ops[i].Priority > ops[j].Priority
		}
		return ops[i].seq < ops[j].seq
	})
}

func (q *Queue) updateDepth() {
	q.mu.Lock()
	depth := map[Priority]int{}
	for _, op := range q.ops {
		depth[op.Priority]++
	}
	q.mu.Unlock()

	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		q.metrics.UpdateQueueDepth(p.String(), depth[p])
	}
}
