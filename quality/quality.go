// Package quality maps network measurements to discrete quality tiers and
// concrete media capture presets.
//
// The package deliberately contains two independent classifiers:
//
//   - Classify answers "how good is the connection" for UI consumption
//     (a five-step tier with an associated signal-bar count), and
//   - RecommendPreset answers "what capture preset should we request"
//     with its own, coarser thresholds.
//
// Their thresholds are tuned independently and must not be merged without
// revisiting the product behavior; the tier is a display concern while the
// recommendation drives renegotiation.
//
// Everything in this package is pure and stateless: the same Metrics input
// always yields the same output, and no smoothing or hysteresis is applied
// here. Flicker damping, if desired, belongs to the sampling cadence of the
// caller.
package quality

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Tier represents the discrete connection quality assessment.
type Tier int

const (
	// TierExcellent indicates an optimal connection.
	TierExcellent Tier = iota
	// TierGood indicates a good connection with minor issues.
	TierGood
	// TierFair indicates an acceptable connection with noticeable issues.
	TierFair
	// TierPoor indicates a degraded connection.
	TierPoor
	// TierBad indicates a barely usable connection.
	TierBad
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierExcellent:
		return "excellent"
	case TierGood:
		return "good"
	case TierFair:
		return "fair"
	case TierPoor:
		return "poor"
	case TierBad:
		return "bad"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Bars returns the 1-5 signal-bar count associated with the tier.
func (t Tier) Bars() int {
	switch t {
	case TierExcellent:
		return 5
	case TierGood:
		return 4
	case TierFair:
		return 3
	case TierPoor:
		return 2
	default:
		return 1
	}
}

// Metrics is the network measurement input consumed by both classifiers.
type Metrics struct {
	BandwidthKbps float64 // Inbound bandwidth estimate in kbit/s
	PacketLossPct float64 // Packet loss percentage (0-100)
	LatencyMs     float64 // Round-trip time in milliseconds
	JitterMs      float64 // Packet arrival jitter in milliseconds
}

// Score computes the 0-100 quality score for the given metrics.
//
// The score starts at 100 and subtracts an independent tiered penalty for
// each of bandwidth, packet loss, and latency. Jitter does not contribute
// to the score; it is carried in Metrics for display purposes only.
func Score(m Metrics) int {
	score := 100
	score -= bandwidthPenalty(m.BandwidthKbps)
	score -= packetLossPenalty(m.PacketLossPct)
	score -= latencyPenalty(m.LatencyMs)
	if score < 0 {
		score = 0
	}
	return score
}

func bandwidthPenalty(kbps float64) int {
	switch {
	case kbps < 1000:
		return 40
	case kbps < 2000:
		return 30
	case kbps < 3000:
		return 20
	case kbps < 5000:
		return 10
	default:
		return 0
	}
}

func packetLossPenalty(pct float64) int {
	switch {
	case pct > 10:
		return 30
	case pct > 5:
		return 20
	case pct > 2:
		return 10
	case pct > 0.5:
		return 5
	default:
		return 0
	}
}

func latencyPenalty(ms float64) int {
	switch {
	case ms > 500:
		return 30
	case ms > 300:
		return 20
	case ms > 150:
		return 10
	case ms > 100:
		return 5
	default:
		return 0
	}
}

// Classify maps metrics to a quality tier.
//
// The mapping is deterministic, stateless, and monotonic: worsening any
// single factor never yields a higher tier.
func Classify(m Metrics) Tier {
	score := Score(m)

	var tier Tier
	switch {
	case score >= 90:
		tier = TierExcellent
	case score >= 70:
		tier = TierGood
	case score >= 50:
		tier = TierFair
	case score >= 30:
		tier = TierPoor
	default:
		tier = TierBad
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.WithFields(logrus.Fields{
			"function":       "Classify",
			"bandwidth_kbps": m.BandwidthKbps,
			"loss_pct":       m.PacketLossPct,
			"latency_ms":     m.LatencyMs,
			"score":          score,
			"tier":           tier.String(),
		}).Trace("Classified network metrics")
	}

	return tier
}

// RecommendPreset maps metrics to the capture preset the session should
// request from the remote endpoint.
//
// This classifier is intentionally coarser than Classify and uses its own
// thresholds. Severe loss or latency forces the low preset regardless of
// bandwidth; abundant bandwidth with a clean path earns high; everything
// in between settles at medium.
func RecommendPreset(m Metrics) Preset {
	var preset Preset
	switch {
	case m.PacketLossPct > 5 || m.LatencyMs > 300:
		preset = PresetLow
	case m.BandwidthKbps < 1500:
		preset = PresetLow
	case m.BandwidthKbps < 3000 || m.LatencyMs > 150:
		preset = PresetMedium
	case m.BandwidthKbps > 5000 && m.LatencyMs < 100 && m.PacketLossPct < 1:
		preset = PresetHigh
	default:
		preset = PresetMedium
	}

	logrus.WithFields(logrus.Fields{
		"function":       "RecommendPreset",
		"bandwidth_kbps": m.BandwidthKbps,
		"loss_pct":       m.PacketLossPct,
		"latency_ms":     m.LatencyMs,
		"preset":         preset.String(),
	}).Debug("Computed preset recommendation")

	return preset
}
