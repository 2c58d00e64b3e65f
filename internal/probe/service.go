package probe

import (
	"sync"
	"time"
)

// emaWeight is the weight given to the newest response-time sample.
const emaWeight = 0.3

// ServiceStatus describes the backend service as observed by the probes.
type ServiceStatus struct {
	Reachable           bool          `json:"reachable"`
	LastResponseTime    time.Duration `json:"last_response_time"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	HealthScore         int           `json:"health_score"`
	LastError           string        `json:"last_error,omitempty"`
	Capabilities        []string      `json:"capabilities,omitempty"`
}

// ServiceTracker maintains a rolling view of backend service health across
// probe cycles.
type ServiceTracker struct {
	mu     sync.RWMutex
	status ServiceStatus
	seeded bool
}

// NewServiceTracker starts with a neutral, optimistic status.
func NewServiceTracker() *ServiceTracker {
	return &ServiceTracker{
		status: ServiceStatus{
			Reachable:   true,
			HealthScore: 100,
		},
	}
}

// Status returns a copy of the current service status.
func (t *ServiceTracker) Status() ServiceStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := t.status
	out.Capabilities = append([]string(nil), t.status.Capabilities...)
	return out
}

// Observe folds a service probe result into the status. Response time uses an
// exponential moving average; the health score is an EMA of success as a
// 0-100 signal.
func (t *ServiceTracker) Observe(result Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Reachable = result.Success
	t.status.LastError = result.Error

	if result.ResponseTime > 0 {
		t.status.LastResponseTime = result.ResponseTime
		if !t.seeded {
			t.status.AverageResponseTime = result.ResponseTime
			t.seeded = true
		} else {
			avg := float64(t.status.AverageResponseTime)
			t.status.AverageResponseTime = time.Duration(avg*(1-emaWeight) + float64(result.ResponseTime)*emaWeight)
		}
	}

	sample := 0.0
	if result.Success {
		sample = 100.0
	}
	t.status.HealthScore = int(float64(t.status.HealthScore)*(1-emaWeight) + sample*emaWeight)
}

// SetCapabilities records the capability flags advertised by the backend.
func (t *ServiceTracker) SetCapabilities(capabilities []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Capabilities = append([]string(nil), capabilities...)
}
