// Package detector runs the periodic connectivity checks and owns the
// derived connectivity status, including debounced change notification.
package detector

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dashlens/resilience-core/internal/history"
	"github.com/dashlens/resilience-core/internal/probe"
	"github.com/dashlens/resilience-core/internal/status"
	"github.com/dashlens/resilience-core/pkg/config"
	"github.com/dashlens/resilience-core/pkg/errors"
	"github.com/dashlens/resilience-core/pkg/logging"
	"github.com/dashlens/resilience-core/pkg/metrics"
	"github.com/dashlens/resilience-core/pkg/tracing"
)

// resultObserver is implemented by network info sources that want probe
// outcomes fed back to them.
type resultObserver interface {
	Observe(probe.Result)
}

// Options carries the injectable collaborators. Zero values get working
// defaults, so tests can override only what they need.
type Options struct {
	Prober        probe.Prober
	NetworkSource probe.NetworkInfoSource
	Logger        *logging.Logger
	NotifyLogger  *zap.Logger
	Metrics       *metrics.Metrics
	Tracer        *tracing.TracingService
	NewTicker     func(time.Duration) Ticker
}

// Detector monitors network and service reachability and derives the
// connectivity status. Construct one per application with NewDetector; the
// lifecycle is Start / Stop / Destroy.
type Detector struct {
	mu         sync.Mutex
	cfg        *config.Config
	prober     probe.Prober
	autoProber bool
	source     probe.NetworkInfoSource
	tracker    *probe.ServiceTracker
	hist       *history.History
	notify     *notifier
	logger     *logging.Logger
	metrics    *metrics.Metrics
	tracer     *tracing.TracingService
	newTicker  func(time.Duration) Ticker

	started     bool
	destroyed   bool
	inFlight    bool
	current     status.Snapshot
	lastApplied time.Time
	stopCh      chan struct{}
}

// NewDetector creates a detector from the given configuration.
func NewDetector(cfg *config.Config, opts Options) *Detector {
	if cfg == nil {
		cfg = config.Default()
	}

	d := &Detector{
		cfg:       cfg,
		prober:    opts.Prober,
		source:    opts.NetworkSource,
		tracker:   probe.NewServiceTracker(),
		hist:      history.New(cfg.Detection.MaxHistorySize),
		notify:    newNotifier(opts.NotifyLogger),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		newTicker: opts.NewTicker,
	}

	if d.prober == nil {
		d.prober = newConfiguredProber(cfg)
		d.autoProber = true
	}
	if d.source == nil {
		d.source = probe.NewProbeBackedSource()
	}
	if d.logger == nil {
		d.logger = logging.GetLogger()
	}
	if d.metrics == nil {
		d.metrics = &metrics.Metrics{}
	}
	if d.tracer == nil {
		d.tracer, _ = tracing.NewTracingService(&tracing.Config{Enabled: false})
	}
	if d.newTicker == nil {
		d.newTicker = NewRealTicker
	}

	return d
}

func newConfiguredProber(cfg *config.Config) probe.Prober {
	return probe.NewHTTPProber(
		cfg.Detection.NetworkProbeURL,
		cfg.Detection.ServiceHealthEndpoint,
		cfg.Detection.ServerCheckTimeout,
	)
}

// Start begins periodic monitoring. Calling Start on a running or destroyed
// detector is a no-op.
func (d *Detector) Start() {
	d.mu.Lock()
	if d.started || d.destroyed {
		d.mu.Unlock()
		return
	}
	d.started = true
	stopCh := make(chan struct{})
	d.stopCh = stopCh
	ticker := d.newTicker(d.cfg.Detection.CheckInterval)
	d.mu.Unlock()

	d.logger.Info("connectivity monitoring started",
		"check_interval", d.cfg.Detection.CheckInterval,
	)

	go d.run(ticker, stopCh)
}

func (d *Detector) run(ticker Ticker, stopCh chan struct{}) {
	defer ticker.Stop()

	d.performCheck(context.Background(), "initial")

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			d.performCheck(context.Background(), "scheduled")
		}
	}
}

// Stop cancels the polling timer. Idempotent; safe before Start and from
// inside a subscriber callback.
func (d *Detector) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	close(d.stopCh)
	d.stopCh = nil
	d.mu.Unlock()

	d.logger.Info("connectivity monitoring stopped")
}

// Destroy stops monitoring and detaches all subscribers. The detector cannot
// be restarted afterwards.
func (d *Detector) Destroy() {
	d.Stop()

	d.mu.Lock()
	d.destroyed = true
	d.mu.Unlock()

	d.notify.clear()
}

// ForceCheck runs a check cycle immediately, sharing the in-flight guard with
// the scheduler: if a check is already outstanding the current status is
// returned instead of racing it. A failed probe is a meaningful result, not
// an error; the only error is lifecycle misuse.
func (d *Detector) ForceCheck(ctx context.Context) (status.Snapshot, error) {
	d.mu.Lock()
	if d.destroyed {
		snap := d.current
		d.mu.Unlock()
		return snap, errors.NewValidationError("detector has been destroyed")
	}
	d.mu.Unlock()

	return d.performCheck(ctx, "manual"), nil
}

// performCheck runs one probe cycle: both probes, one history record, one
// status evaluation, at most one notification.
func (d *Detector) performCheck(ctx context.Context, trigger string) status.Snapshot {
	d.mu.Lock()
	if d.destroyed || d.inFlight {
		snap := d.current
		d.mu.Unlock()
		return snap
	}
	d.inFlight = true
	det := d.cfg.Detection
	d.mu.Unlock()

	ctx, span := d.tracer.StartCheckSpan(ctx, trigger)
	defer span.End()

	netResult := d.prober.CheckNetwork(ctx)
	d.metrics.RecordProbe("network", netResult.Success, netResult.ResponseTime)
	if det.EnableBrowserAPIMonitoring {
		if obs, ok := d.source.(resultObserver); ok {
			obs.Observe(netResult)
		}
	}

	svcResult := probe.Result{Success: true}
	if det.EnableServiceMonitoring {
		svcResult = d.prober.CheckService(ctx)
		d.metrics.RecordProbe("service", svcResult.Success, svcResult.ResponseTime)
		d.tracker.Observe(svcResult)
	}

	d.hist.Append(history.CheckRecord{
		Timestamp:      time.Now(),
		NetworkSuccess: netResult.Success,
		ServiceSuccess: svcResult.Success,
		ResponseTime:   svcResult.ResponseTime,
		Error:          firstError(netResult, svcResult),
	})

	records := d.hist.Snapshot()
	th := status.Thresholds{Offline: det.OfflineThreshold, Recovery: det.RecoveryThreshold}

	d.mu.Lock()
	prev := d.current
	next := status.Evaluate(prev, records, th)
	now := time.Now()

	var event *ChangeEvent
	if next.Equal(prev) {
		next.LastStatusChange = prev.LastStatusChange
		d.current = next
	} else if !d.lastApplied.IsZero() && now.Sub(d.lastApplied) < det.StatusChangeDebounce {
		// Discarded, not queued: the next tick reassesses.
		d.current.Confidence = next.Confidence
	} else {
		next.LastStatusChange = now
		d.current = next
		d.lastApplied = now
		event = &ChangeEvent{
			Previous:  prev,
			New:       next,
			Reason:    status.ChangeReason(prev, next),
			Timestamp: now,
		}
	}
	snap := d.current
	d.inFlight = false
	d.mu.Unlock()

	if event != nil {
		d.metrics.RecordStatusTransition(event.Reason, snap.Confidence, snap.NetworkOffline, snap.ServiceOffline)
		d.logger.Info("connectivity status changed",
			"reason", event.Reason,
			"is_offline", snap.IsOffline,
			"network_offline", snap.NetworkOffline,
			"service_offline", snap.ServiceOffline,
			"confidence", snap.Confidence,
		)
		d.notify.dispatch(*event)
	}

	return snap
}

func firstError(results ...probe.Result) string {
	for _, r := range results {
		if r.Error != "" {
			return r.Error
		}
	}
	return ""
}

// OnStatusChange registers a status-change subscriber and returns an
// unsubscribe function.
func (d *Detector) OnStatusChange(fn func(ChangeEvent)) func() {
	return d.notify.subscribe(fn)
}

// Status returns the current connectivity snapshot.
func (d *Detector) Status() status.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// NetworkInfo returns the most recent network environment observation.
func (d *Detector) NetworkInfo() probe.NetworkInfo {
	return d.source.Info()
}

// ServiceStatus returns the rolling backend service status.
func (d *Detector) ServiceStatus() probe.ServiceStatus {
	return d.tracker.Status()
}

// History returns a copy of the retained check records, oldest first.
func (d *Detector) History() []history.CheckRecord {
	return d.hist.Snapshot()
}

// ConnectionQuality classifies the connection into a coarse quality tier.
func (d *Detector) ConnectionQuality() string {
	d.mu.Lock()
	det := d.cfg.Detection
	snap := d.current
	d.mu.Unlock()

	if !det.EnableQualityAssessment {
		return "unknown"
	}
	if snap.IsOffline {
		return "offline"
	}

	avg := d.tracker.Status().AverageResponseTime
	switch {
	case snap.IsPartiallyOffline:
		return "poor"
	case avg < 150*time.Millisecond && snap.Confidence >= 80:
		return "excellent"
	case avg < 400*time.Millisecond && snap.Confidence >= 60:
		return "good"
	case avg < time.Second:
		return "fair"
	default:
		return "poor"
	}
}

// UpdateConfig applies a sparse configuration override. The polling loop is
// restarted when the check interval changes; the history is re-bounded when
// the capacity changes.
func (d *Detector) UpdateConfig(partial *config.Partial) error {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return errors.NewValidationError("detector has been destroyed")
	}

	resolved, err := d.cfg.Resolve(partial)
	if err != nil {
		d.mu.Unlock()
		return err
	}

	prevDet := d.cfg.Detection
	d.cfg = resolved
	d.hist.SetCapacity(resolved.Detection.MaxHistorySize)

	if d.autoProber && proberConfigChanged(prevDet, resolved.Detection) {
		d.prober = newConfiguredProber(resolved)
	}

	restart := d.started && resolved.Detection.CheckInterval != prevDet.CheckInterval
	d.mu.Unlock()

	if restart {
		d.Stop()
		d.Start()
	}

	return nil
}

func proberConfigChanged(prev, next config.DetectionConfig) bool {
	return prev.NetworkProbeURL != next.NetworkProbeURL ||
		prev.ServiceHealthEndpoint != next.ServiceHealthEndpoint ||
		prev.ServerCheckTimeout != next.ServerCheckTimeout
}

// Config returns a copy of the current configuration.
func (d *Detector) Config() config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.cfg
}
