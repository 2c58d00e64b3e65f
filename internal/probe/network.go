package probe

import (
	"sync"
	"time"
)

// NetworkInfo describes the current network environment as far as the client
// can observe it. Refreshed on every check cycle.
type NetworkInfo struct {
	Online             bool          `json:"online"`
	ConnectionType     string        `json:"connection_type"`
	EffectiveBandwidth string        `json:"effective_bandwidth"`
	RTTEstimate        time.Duration `json:"rtt_estimate"`
	SaveData           bool          `json:"save_data"`
}

// NetworkInfoSource abstracts the platform connectivity hints (the browser
// online/offline and connection-info APIs in the original environment) so
// the detector can be tested without a real network.
type NetworkInfoSource interface {
	Info() NetworkInfo
}

// ProbeBackedSource derives NetworkInfo from probe outcomes. It is the
// default source when no platform hints are available.
type ProbeBackedSource struct {
	mu   sync.RWMutex
	info NetworkInfo
}

// NewProbeBackedSource returns a source that starts optimistically online.
func NewProbeBackedSource() *ProbeBackedSource {
	return &ProbeBackedSource{
		info: NetworkInfo{
			Online:             true,
			ConnectionType:     "unknown",
			EffectiveBandwidth: "unknown",
		},
	}
}

// Info returns the most recently observed network info.
func (s *ProbeBackedSource) Info() NetworkInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Observe folds a network probe result into the info. Bandwidth class is a
// coarse bucketing of the observed round-trip time.
func (s *ProbeBackedSource) Observe(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.info.Online = result.Success
	if result.ResponseTime > 0 {
		s.info.RTTEstimate = result.ResponseTime
		s.info.EffectiveBandwidth = bandwidthClass(result.ResponseTime)
	}
}

func bandwidthClass(rtt time.Duration) string {
	switch {
	case rtt < 100*time.Millisecond:
		return "4g"
	case rtt < 300*time.Millisecond:
		return "3g"
	case rtt < 1000*time.Millisecond:
		return "2g"
	default:
		return "slow-2g"
	}
}

// StaticSource returns fixed network info; used by tests and by environments
// with no connectivity hints at all.
type StaticSource struct {
	NetworkInfo NetworkInfo
}

// Info returns the configured info.
func (s StaticSource) Info() NetworkInfo {
	return s.NetworkInfo
}
