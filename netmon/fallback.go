package netmon

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fixed defaults reported when no connection hint is available. These keep
// the pre-join preview rendering a plausible signal instead of failing.
const (
	defaultFallbackBandwidthKbps = 5000
	defaultFallbackLatencyMs     = 50
	defaultFallbackJitterMs      = 5
)

// ConnectionHint is a coarse connection estimate, typically sourced from
// the platform's network-information surface (downlink estimate and RTT
// estimate).
type ConnectionHint struct {
	DownlinkMbps float64
	RTT          time.Duration
}

// HintFunc supplies the current connection hint. The second return value
// reports whether a hint is available at all.
type HintFunc func() (ConnectionHint, bool)

// FallbackSource approximates network metrics when no live transport
// exists. Estimate never fails.
type FallbackSource struct {
	hint HintFunc
}

// NewFallbackSource creates a fallback source. A nil hint function is
// accepted; every estimate then uses the fixed defaults.
func NewFallbackSource(hint HintFunc) *FallbackSource {
	return &FallbackSource{hint: hint}
}

// Estimate produces a sample from the coarse connection hint, or from
// fixed defaults when the hint surface is unavailable.
func (f *FallbackSource) Estimate(now time.Time) Sample {
	sample := Sample{
		BandwidthKbps: defaultFallbackBandwidthKbps,
		PacketLossPct: 0,
		LatencyMs:     defaultFallbackLatencyMs,
		JitterMs:      defaultFallbackJitterMs,
		HasThroughput: true,
		Timestamp:     now,
	}

	if f.hint == nil {
		return sample
	}

	hint, ok := f.hint()
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "Estimate",
		}).Trace("Connection hint unavailable, using fixed defaults")
		return sample
	}

	if hint.DownlinkMbps > 0 {
		sample.BandwidthKbps = hint.DownlinkMbps * 1000
	}
	if hint.RTT > 0 {
		sample.LatencyMs = float64(hint.RTT.Microseconds()) / 1000.0
	}

	return sample
}
