package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierString(t *testing.T) {
	tests := []struct {
		name     string
		tier     Tier
		expected string
	}{
		{"excellent tier", TierExcellent, "excellent"},
		{"good tier", TierGood, "good"},
		{"fair tier", TierFair, "fair"},
		{"poor tier", TierPoor, "poor"},
		{"bad tier", TierBad, "bad"},
		{"unknown tier", Tier(999), "unknown(999)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.tier.String())
		})
	}
}

func TestTierBars(t *testing.T) {
	assert.Equal(t, 5, TierExcellent.Bars())
	assert.Equal(t, 4, TierGood.Bars())
	assert.Equal(t, 3, TierFair.Bars())
	assert.Equal(t, 2, TierPoor.Bars())
	assert.Equal(t, 1, TierBad.Bars())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		metrics  Metrics
		expected Tier
	}{
		{
			name:     "clean fast connection is excellent",
			metrics:  Metrics{BandwidthKbps: 6000, PacketLossPct: 0, LatencyMs: 50},
			expected: TierExcellent,
		},
		{
			name:     "congested lossy connection is bad",
			metrics:  Metrics{BandwidthKbps: 800, PacketLossPct: 12, LatencyMs: 600},
			expected: TierBad,
		},
		{
			name:     "modest bandwidth only costs one tier",
			metrics:  Metrics{BandwidthKbps: 2500, PacketLossPct: 0, LatencyMs: 50},
			expected: TierGood,
		},
		{
			name:     "combined mid-range penalties reach fair",
			metrics:  Metrics{BandwidthKbps: 2500, PacketLossPct: 3, LatencyMs: 200},
			expected: TierFair,
		},
		{
			name:     "heavy loss alone drops to good",
			metrics:  Metrics{BandwidthKbps: 6000, PacketLossPct: 11, LatencyMs: 50},
			expected: TierGood,
		},
		{
			name:     "boundary score 90 stays excellent",
			metrics:  Metrics{BandwidthKbps: 4000, PacketLossPct: 0, LatencyMs: 50},
			expected: TierExcellent,
		},
		{
			name:     "everything degraded bottoms out",
			metrics:  Metrics{BandwidthKbps: 500, PacketLossPct: 50, LatencyMs: 1000},
			expected: TierBad,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.metrics),
				"metrics=%+v score=%d", tt.metrics, Score(tt.metrics))
		})
	}
}

// TestClassifyDeterministic verifies repeated classification of the same
// input yields the same tier.
func TestClassifyDeterministic(t *testing.T) {
	m := Metrics{BandwidthKbps: 2750, PacketLossPct: 4.2, LatencyMs: 180}
	first := Classify(m)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify(m))
	}
}

// TestClassifyMonotonic verifies worsening any single factor never earns
// more bars.
func TestClassifyMonotonic(t *testing.T) {
	bandwidths := []float64{500, 1500, 2500, 4000, 6000}
	losses := []float64{0, 0.4, 1, 3, 7, 15}
	latencies := []float64{50, 120, 200, 400, 700}

	for _, bw := range bandwidths {
		for _, loss := range losses {
			for _, lat := range latencies {
				base := Classify(Metrics{BandwidthKbps: bw, PacketLossPct: loss, LatencyMs: lat}).Bars()

				worseLoss := Classify(Metrics{BandwidthKbps: bw, PacketLossPct: loss + 5, LatencyMs: lat}).Bars()
				assert.LessOrEqual(t, worseLoss, base, "increased loss at bw=%v loss=%v lat=%v", bw, loss, lat)

				worseLatency := Classify(Metrics{BandwidthKbps: bw, PacketLossPct: loss, LatencyMs: lat + 200}).Bars()
				assert.LessOrEqual(t, worseLatency, base, "increased latency at bw=%v loss=%v lat=%v", bw, loss, lat)

				lessBandwidth := Classify(Metrics{BandwidthKbps: bw / 2, PacketLossPct: loss, LatencyMs: lat}).Bars()
				assert.LessOrEqual(t, lessBandwidth, base, "decreased bandwidth at bw=%v loss=%v lat=%v", bw, loss, lat)
			}
		}
	}
}

func TestRecommendPreset(t *testing.T) {
	tests := []struct {
		name     string
		metrics  Metrics
		expected Preset
	}{
		{
			name:     "starved bandwidth forces low",
			metrics:  Metrics{BandwidthKbps: 800, PacketLossPct: 0, LatencyMs: 50},
			expected: PresetLow,
		},
		{
			name:     "clean fast path earns high",
			metrics:  Metrics{BandwidthKbps: 6000, PacketLossPct: 0.2, LatencyMs: 80},
			expected: PresetHigh,
		},
		{
			name:     "severe loss forces low despite bandwidth",
			metrics:  Metrics{BandwidthKbps: 8000, PacketLossPct: 6, LatencyMs: 50},
			expected: PresetLow,
		},
		{
			name:     "severe latency forces low despite bandwidth",
			metrics:  Metrics{BandwidthKbps: 8000, PacketLossPct: 0, LatencyMs: 350},
			expected: PresetLow,
		},
		{
			name:     "moderate bandwidth settles at medium",
			metrics:  Metrics{BandwidthKbps: 2500, PacketLossPct: 0, LatencyMs: 50},
			expected: PresetMedium,
		},
		{
			name:     "elevated latency caps at medium",
			metrics:  Metrics{BandwidthKbps: 6000, PacketLossPct: 0, LatencyMs: 200},
			expected: PresetMedium,
		},
		{
			name:     "good but not abundant bandwidth stays medium",
			metrics:  Metrics{BandwidthKbps: 4000, PacketLossPct: 0.2, LatencyMs: 60},
			expected: PresetMedium,
		},
		{
			name:     "high bandwidth with borderline loss stays medium",
			metrics:  Metrics{BandwidthKbps: 6000, PacketLossPct: 2, LatencyMs: 60},
			expected: PresetMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RecommendPreset(tt.metrics))
		})
	}
}
