package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresetString(t *testing.T) {
	tests := []struct {
		preset   Preset
		expected string
	}{
		{PresetAuto, "auto"},
		{PresetHigh, "high"},
		{PresetMedium, "medium"},
		{PresetLow, "low"},
		{Preset(999), "unknown(999)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.preset.String())
	}
}

// TestLookupTotal verifies every defined preset maps to fully populated
// constraints.
func TestLookupTotal(t *testing.T) {
	for _, p := range Presets() {
		t.Run(p.String(), func(t *testing.T) {
			c := Lookup(p)
			assert.Greater(t, c.Width, 0)
			assert.Greater(t, c.Height, 0)
			assert.Greater(t, c.FrameRate, 0)
		})
	}
}

func TestLookupAutoUncapped(t *testing.T) {
	assert.Equal(t, uint32(0), Lookup(PresetAuto).MaxBitrate)
}

func TestLookupOrdering(t *testing.T) {
	high := Lookup(PresetHigh)
	medium := Lookup(PresetMedium)
	low := Lookup(PresetLow)

	assert.Greater(t, high.MaxBitrate, medium.MaxBitrate)
	assert.Greater(t, medium.MaxBitrate, low.MaxBitrate)
	assert.Greater(t, high.Width, medium.Width)
	assert.Greater(t, medium.Width, low.Width)
}

// TestLookupUnknownDegrades verifies an out-of-range preset value returns
// usable constraints instead of a zero value.
func TestLookupUnknownDegrades(t *testing.T) {
	c := Lookup(Preset(42))
	assert.Equal(t, Lookup(PresetMedium), c)
}

func TestParsePreset(t *testing.T) {
	for _, p := range Presets() {
		parsed, err := ParsePreset(p.String())
		assert.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := ParsePreset("ultra")
	assert.Error(t, err)
}
