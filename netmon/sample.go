package netmon

import (
	"context"
	"time"

	"github.com/opd-ai/sessionkit/quality"
)

// Sample is one immutable network measurement produced at the sampling
// cadence. The monitor retains only the previous raw counter snapshot for
// delta computation, not a history of samples.
type Sample struct {
	BandwidthKbps float64   // Inbound bandwidth in kbit/s
	PacketLossPct float64   // Packet loss percentage, clamped to [0,100]
	LatencyMs     float64   // Round-trip time in milliseconds
	JitterMs      float64   // Packet arrival jitter in milliseconds
	HasThroughput bool      // False when no delta was available (first tick)
	Timestamp     time.Time // When the sample was taken
}

// Metrics converts the sample into classifier input.
func (s Sample) Metrics() quality.Metrics {
	return quality.Metrics{
		BandwidthKbps: s.BandwidthKbps,
		PacketLossPct: s.PacketLossPct,
		LatencyMs:     s.LatencyMs,
		JitterMs:      s.JitterMs,
	}
}

// RawCounters is one snapshot of transport-level counters for the active
// inbound video stream. Counters are cumulative since stream start.
type RawCounters struct {
	BytesReceived   uint64
	PacketsReceived uint64
	PacketsLost     uint64
	RoundTripTime   time.Duration
	Jitter          time.Duration
	Timestamp       time.Time
}

// StatsSource reads raw counters from a live transport. Implementations
// return an error wrapping ErrStatsCollection when counters are
// unavailable this tick.
type StatsSource interface {
	ReadCounters(ctx context.Context) (RawCounters, error)
}
