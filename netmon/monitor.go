// Package netmon periodically samples transport-level counters and derives
// bandwidth, packet loss, latency, and jitter measurements.
//
// The monitor owns one timer goroutine between Start and Stop. Each tick it
// reads raw counters from the attached StatsSource, computes deltas against
// the previous snapshot, and fans the resulting Sample out to every
// subscriber. When no source is attached (pre-join preview, transport torn
// down) it falls back to a coarse connection-info estimate that never
// fails.
//
// Sampling never surfaces errors to subscribers: a failed read is logged
// and the tick is skipped; the next tick continues normally.
package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is the sampling cadence used when none is configured.
const DefaultInterval = 2 * time.Second

// Monitor produces one Sample per interval and fans it out to subscribers.
type Monitor struct {
	mu sync.Mutex

	interval time.Duration
	source   StatsSource
	fallback *FallbackSource
	prev     *RawCounters

	running bool
	cancel  context.CancelFunc

	subscribers map[int]func(Sample)
	nextSubID   int

	timeProvider TimeProvider
}

// NewMonitor creates a monitor sampling at the given interval. A
// non-positive interval selects DefaultInterval. The hint function feeds
// the fallback estimate used while no StatsSource is attached; nil is
// accepted and yields fixed defaults.
func NewMonitor(interval time.Duration, hint HintFunc) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewMonitor",
		"interval": interval,
	}).Info("Creating network monitor")

	return &Monitor{
		interval:     interval,
		fallback:     NewFallbackSource(hint),
		subscribers:  make(map[int]func(Sample)),
		timeProvider: DefaultTimeProvider{},
	}
}

// SetTimeProvider sets the time provider for deterministic testing.
func (m *Monitor) SetTimeProvider(tp TimeProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	m.timeProvider = tp
}

// AttachSource points the monitor at a live transport's counters. The
// previous snapshot is discarded so the first sample against the new
// source carries no throughput delta.
func (m *Monitor) AttachSource(src StatsSource) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.source = src
	m.prev = nil

	logrus.WithFields(logrus.Fields{
		"function":   "AttachSource",
		"has_source": src != nil,
	}).Debug("Stats source attached")
}

// DetachSource reverts the monitor to the fallback estimate. Safe to call
// when no source is attached.
func (m *Monitor) DetachSource() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.source = nil
	m.prev = nil
}

// Start begins periodic sampling. Calling Start while already running is a
// no-op; repeated mount effects must not spawn duplicate timers.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		logrus.WithFields(logrus.Fields{
			"function": "Start",
		}).Debug("Monitor already running, ignoring Start")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	m.prev = nil

	go m.sampleLoop(ctx)

	logrus.WithFields(logrus.Fields{
		"function": "Start",
		"interval": m.interval,
	}).Info("Network monitor started")
}

// Stop halts sampling. Safe to call multiple times and after the transport
// has already disconnected.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.running = false
	m.cancel()
	m.cancel = nil
	m.prev = nil

	logrus.WithFields(logrus.Fields{
		"function": "Stop",
	}).Info("Network monitor stopped")
}

// IsRunning reports whether the sampling loop is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Subscribe registers a sample callback and returns its unsubscribe
// function. Every subscriber receives every emitted sample; unsubscribing
// during emission neither panics nor skips other subscribers.
func (m *Monitor) Subscribe(fn func(Sample)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	logrus.WithFields(logrus.Fields{
		"function":         "Subscribe",
		"subscriber_id":    id,
		"subscriber_count": len(m.subscribers),
	}).Debug("Sample subscriber registered")

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// sampleLoop drives the sampling ticker until the context is cancelled.
func (m *Monitor) sampleLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{
		"function": "sampleLoop",
		"interval": m.interval,
	}).Debug("Sample loop started")

	for {
		select {
		case <-ctx.Done():
			logrus.WithFields(logrus.Fields{
				"function": "sampleLoop",
			}).Debug("Sample loop stopped")
			return

		case <-ticker.C:
			m.SampleOnce(ctx)
		}
	}
}

// SampleOnce performs a single sampling pass: read counters, derive a
// sample, and emit it. Exposed for callers that want an immediate reading
// outside the timer cadence (and for deterministic tests).
func (m *Monitor) SampleOnce(ctx context.Context) {
	m.mu.Lock()
	source := m.source
	m.mu.Unlock()

	var sample Sample
	if source == nil {
		sample = m.fallback.Estimate(m.now())
	} else {
		raw, err := source.ReadCounters(ctx)
		if err != nil {
			// A missed sample is absent, not an error; subscribers
			// never see it.
			logrus.WithFields(logrus.Fields{
				"function": "SampleOnce",
				"error":    err.Error(),
			}).Warn("Skipping sample, counter read failed")
			return
		}
		sample = m.deriveSample(raw)
	}

	m.emit(sample)
}

// deriveSample computes a Sample from raw counters against the previous
// snapshot. The first reading after Start or AttachSource has no previous
// snapshot and produces no throughput delta.
func (m *Monitor) deriveSample(raw RawCounters) Sample {
	if raw.Timestamp.IsZero() {
		raw.Timestamp = m.now()
	}

	m.mu.Lock()
	prev := m.prev
	snapshot := raw
	m.prev = &snapshot
	m.mu.Unlock()

	sample := Sample{
		LatencyMs: float64(raw.RoundTripTime.Microseconds()) / 1000.0,
		JitterMs:  float64(raw.Jitter.Microseconds()) / 1000.0,
		Timestamp: raw.Timestamp,
	}

	if prev == nil {
		logrus.WithFields(logrus.Fields{
			"function": "deriveSample",
		}).Debug("No previous counter snapshot, suppressing throughput delta")
		return sample
	}

	deltaSeconds := raw.Timestamp.Sub(prev.Timestamp).Seconds()
	if deltaSeconds <= 0 ||
		raw.BytesReceived < prev.BytesReceived ||
		raw.PacketsReceived < prev.PacketsReceived ||
		raw.PacketsLost < prev.PacketsLost {
		// Counter reset or clock anomaly: treat like a first sample.
		logrus.WithFields(logrus.Fields{
			"function":      "deriveSample",
			"delta_seconds": deltaSeconds,
		}).Debug("Counter snapshot not comparable, suppressing throughput delta")
		return sample
	}

	deltaBytes := raw.BytesReceived - prev.BytesReceived
	deltaReceived := raw.PacketsReceived - prev.PacketsReceived
	deltaLost := raw.PacketsLost - prev.PacketsLost

	sample.HasThroughput = true
	sample.BandwidthKbps = float64(deltaBytes) * 8 / deltaSeconds / 1000

	if deltaReceived > 0 {
		loss := float64(deltaLost) / float64(deltaReceived) * 100
		if loss > 100 {
			loss = 100
		}
		sample.PacketLossPct = loss
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.WithFields(logrus.Fields{
			"function":       "deriveSample",
			"bandwidth_kbps": sample.BandwidthKbps,
			"loss_pct":       sample.PacketLossPct,
			"latency_ms":     sample.LatencyMs,
			"jitter_ms":      sample.JitterMs,
		}).Trace("Derived network sample")
	}

	return sample
}

// emit delivers the sample to a snapshot of the subscriber list, taken
// under the lock. A subscriber unsubscribing mid-emission still lets the
// rest of the list receive the sample.
func (m *Monitor) emit(sample Sample) {
	m.mu.Lock()
	callbacks := make([]func(Sample), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(sample)
	}
}

func (m *Monitor) now() time.Time {
	m.mu.Lock()
	tp := m.timeProvider
	m.mu.Unlock()
	return tp.Now()
}
