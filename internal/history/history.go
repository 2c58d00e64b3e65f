// Package history keeps the bounded ledger of reachability check outcomes
// that the status evaluator reads.
package history

import (
	"sync"
	"time"
)

// CheckRecord is the outcome of a single check cycle covering both the
// network-level and the service-level probe. Immutable once appended.
type CheckRecord struct {
	Timestamp      time.Time     `json:"timestamp"`
	NetworkSuccess bool          `json:"network_success"`
	ServiceSuccess bool          `json:"service_success"`
	ResponseTime   time.Duration `json:"response_time,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// History is a capacity-bounded, order-preserving log of check records.
// Insertion order is the only meaningful order; the oldest record is evicted
// first when capacity is exceeded.
type History struct {
	mu       sync.RWMutex
	records  []CheckRecord
	capacity int
}

// New creates a history with the given capacity. Capacities below 1 are
// clamped to 1.
func New(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		records:  make([]CheckRecord, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a record, evicting the oldest when over capacity.
func (h *History) Append(record CheckRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, record)
	if len(h.records) > h.capacity {
		h.records = h.records[len(h.records)-h.capacity:]
	}
}

// Recent returns a copy of the most recent n records, oldest first. When
// fewer than n records exist, all of them are returned.
func (h *History) Recent(n int) []CheckRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	if n > len(h.records) {
		n = len(h.records)
	}

	out := make([]CheckRecord, n)
	copy(out, h.records[len(h.records)-n:])
	return out
}

// Snapshot returns a copy of all records, oldest first.
func (h *History) Snapshot() []CheckRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]CheckRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Capacity returns the configured capacity.
func (h *History) Capacity() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.capacity
}

// SetCapacity re-bounds the ledger, evicting the oldest records if the new
// capacity is smaller than the current length.
func (h *History) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.capacity = capacity
	if len(h.records) > capacity {
		h.records = h.records[len(h.records)-capacity:]
	}
}

// Clear removes all records.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = h.records[:0]
}
