// Package status derives connectivity status from the check history. The
// evaluator and confidence scorer are pure functions of the history and the
// configured thresholds, which keeps them independently testable.
package status

import (
	"time"

	"github.com/dashlens/resilience-core/internal/history"
)

// Snapshot is the derived connectivity status. It is never mutated in place;
// every check cycle recomputes it from the history and compares it against
// the previous value.
type Snapshot struct {
	IsOffline          bool      `json:"is_offline"`
	NetworkOffline     bool      `json:"network_offline"`
	ServiceOffline     bool      `json:"service_offline"`
	IsPartiallyOffline bool      `json:"is_partially_offline"`
	IsRecovering       bool      `json:"is_recovering"`
	Confidence         int       `json:"confidence"`
	LastStatusChange   time.Time `json:"last_status_change"`
}

// Equal reports whether two snapshots describe the same connectivity state.
// Confidence and timestamps are informational and do not participate.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.IsOffline == other.IsOffline &&
		s.NetworkOffline == other.NetworkOffline &&
		s.ServiceOffline == other.ServiceOffline &&
		s.IsPartiallyOffline == other.IsPartiallyOffline
}

// Thresholds carries the asymmetric hysteresis thresholds.
type Thresholds struct {
	Offline  int
	Recovery int
}

// Evaluate recomputes the connectivity snapshot from the most recent records.
//
// Per channel, failing is fast and recovering is slow: a channel that was
// online goes offline only when every one of the last Offline records failed,
// and a channel that was offline comes back only after Recovery consecutive
// recent successes. An empty history preserves the previous status with zero
// confidence.
func Evaluate(prev Snapshot, records []history.CheckRecord, th Thresholds) Snapshot {
	next := prev
	next.IsRecovering = false

	if len(records) == 0 {
		next.Confidence = 0
		return next
	}

	next.NetworkOffline = channelOffline(prev.NetworkOffline, records, th, networkOutcome)
	next.ServiceOffline = channelOffline(prev.ServiceOffline, records, th, serviceOutcome)

	next.IsOffline = next.NetworkOffline || next.ServiceOffline
	next.IsPartiallyOffline = next.NetworkOffline != next.ServiceOffline
	next.Confidence = Confidence(records)

	if prev.IsOffline && !next.IsOffline && anySuccess(records, th.Recovery) {
		next.IsRecovering = true
	}

	return next
}

func networkOutcome(r history.CheckRecord) bool { return r.NetworkSuccess }
func serviceOutcome(r history.CheckRecord) bool { return r.ServiceSuccess }

// channelOffline applies the hysteresis for one channel.
func channelOffline(wasOffline bool, records []history.CheckRecord, th Thresholds, outcome func(history.CheckRecord) bool) bool {
	successes := countRecent(records, th.Recovery, outcome, true)

	if wasOffline {
		// Recover only after sustained success.
		return successes < th.Recovery
	}

	failures := countRecent(records, th.Offline, outcome, false)
	return failures >= th.Offline && successes < th.Recovery
}

// countRecent counts records with the wanted outcome among the last n.
func countRecent(records []history.CheckRecord, n int, outcome func(history.CheckRecord) bool, want bool) int {
	if n > len(records) {
		n = len(records)
	}

	count := 0
	for _, r := range records[len(records)-n:] {
		if outcome(r) == want {
			count++
		}
	}
	return count
}

func anySuccess(records []history.CheckRecord, n int) bool {
	if n > len(records) {
		n = len(records)
	}
	for _, r := range records[len(records)-n:] {
		if r.NetworkSuccess || r.ServiceSuccess {
			return true
		}
	}
	return false
}

// Reason codes carried on status-change events.
const (
	ReasonLostConnectivity      = "lost_connectivity"
	ReasonRecoveredConnectivity = "recovered_connectivity"
	ReasonPartialConnectivity   = "partial_connectivity"
	ReasonDegradedConnectivity  = "degraded_connectivity"
)

// ChangeReason names the transition between two snapshots.
func ChangeReason(prev, next Snapshot) string {
	switch {
	case !prev.IsOffline && next.IsOffline:
		return ReasonLostConnectivity
	case prev.IsOffline && !next.IsOffline:
		return ReasonRecoveredConnectivity
	case next.IsPartiallyOffline:
		return ReasonPartialConnectivity
	default:
		return ReasonDegradedConnectivity
	}
}
