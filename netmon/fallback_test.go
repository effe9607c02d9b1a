package netmon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFallbackDefaults(t *testing.T) {
	f := NewFallbackSource(nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := f.Estimate(now)
	assert.Equal(t, float64(defaultFallbackBandwidthKbps), s.BandwidthKbps)
	assert.Equal(t, float64(defaultFallbackLatencyMs), s.LatencyMs)
	assert.Equal(t, float64(defaultFallbackJitterMs), s.JitterMs)
	assert.Zero(t, s.PacketLossPct)
	assert.True(t, s.HasThroughput)
	assert.Equal(t, now, s.Timestamp)
}

func TestFallbackUsesHint(t *testing.T) {
	f := NewFallbackSource(func() (ConnectionHint, bool) {
		return ConnectionHint{DownlinkMbps: 10, RTT: 120 * time.Millisecond}, true
	})

	s := f.Estimate(time.Now())
	assert.Equal(t, 10000.0, s.BandwidthKbps)
	assert.InDelta(t, 120.0, s.LatencyMs, 0.01)
	assert.Equal(t, float64(defaultFallbackJitterMs), s.JitterMs)
}

func TestFallbackHintUnavailable(t *testing.T) {
	f := NewFallbackSource(func() (ConnectionHint, bool) {
		return ConnectionHint{}, false
	})

	s := f.Estimate(time.Now())
	assert.Equal(t, float64(defaultFallbackBandwidthKbps), s.BandwidthKbps)
}

// TestFallbackIgnoresNonPositiveHint verifies zero-valued hints do not
// zero out the estimate.
func TestFallbackIgnoresNonPositiveHint(t *testing.T) {
	f := NewFallbackSource(func() (ConnectionHint, bool) {
		return ConnectionHint{DownlinkMbps: 0, RTT: 0}, true
	})

	s := f.Estimate(time.Now())
	assert.Equal(t, float64(defaultFallbackBandwidthKbps), s.BandwidthKbps)
	assert.Equal(t, float64(defaultFallbackLatencyMs), s.LatencyMs)
}
