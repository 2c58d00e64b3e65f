package detector

import "time"

// Ticker abstracts the polling timer so tests can advance virtual time
// instead of waiting on real intervals.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	ticker *time.Ticker
}

// NewRealTicker returns a Ticker backed by time.Ticker.
func NewRealTicker(interval time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(interval)}
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}

// ManualTicker is a Ticker driven explicitly by tests.
type ManualTicker struct {
	ch chan time.Time
}

// NewManualTicker creates a manual ticker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time, 1)}
}

// C returns the tick channel.
func (t *ManualTicker) C() <-chan time.Time {
	return t.ch
}

// Stop is a no-op; the ticker only fires when Tick is called.
func (t *ManualTicker) Stop() {}

// Tick fires one tick. It does not block if a previous tick is still pending.
func (t *ManualTicker) Tick() {
	select {
	case t.ch <- time.Now():
	default:
	}
}
