package status

import "github.com/dashlens/resilience-core/internal/history"

// Confidence estimates how trustworthy the derived status is, in [0,100].
//
// It mixes outcome consistency (100 minus the percentage of adjacent-record
// flips, averaged across the network and service channels, weighted 80%) with
// a sample-size bonus (up to 20 points, linear until 10 samples). A small or
// flappy history therefore scores low, signalling that consumers should not
// alarm the user yet.
func Confidence(records []history.CheckRecord) int {
	if len(records) == 0 {
		return 0
	}

	consistency := (channelConsistency(records, networkOutcome) +
		channelConsistency(records, serviceOutcome)) / 2

	sampleRatio := float64(len(records)) / 10
	if sampleRatio > 1 {
		sampleRatio = 1
	}
	bonus := 20 * sampleRatio

	confidence := consistency*0.8 + bonus
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return int(confidence)
}

// channelConsistency returns 100 minus the flip percentage for one channel.
func channelConsistency(records []history.CheckRecord, outcome func(history.CheckRecord) bool) float64 {
	if len(records) < 2 {
		return 100
	}

	flips := 0
	for i := 1; i < len(records); i++ {
		if outcome(records[i]) != outcome(records[i-1]) {
			flips++
		}
	}

	flipPct := float64(flips) / float64(len(records)-1) * 100
	return 100 - flipPct
}
