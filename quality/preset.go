package quality

import "fmt"

// Preset names a bundle of concrete video capture constraints.
type Preset int

const (
	// PresetAuto lets the negotiation layer adapt; no fixed bitrate cap.
	PresetAuto Preset = iota
	// PresetHigh requests 720p at 30fps.
	PresetHigh
	// PresetMedium requests 480p at 30fps.
	PresetMedium
	// PresetLow requests 240p at 15fps.
	PresetLow
)

// String returns the string representation of the preset.
func (p Preset) String() string {
	switch p {
	case PresetAuto:
		return "auto"
	case PresetHigh:
		return "high"
	case PresetMedium:
		return "medium"
	case PresetLow:
		return "low"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// Constraints are the concrete capture parameters bound to a preset.
type Constraints struct {
	Width      int    // Capture width in pixels
	Height     int    // Capture height in pixels
	FrameRate  int    // Frames per second
	MaxBitrate uint32 // Outgoing bitrate cap in bps; 0 means uncapped
}

// catalog is the static, total preset-to-constraints mapping. Auto carries
// no bitrate cap so the negotiation layer can adapt freely.
var catalog = map[Preset]Constraints{
	PresetAuto:   {Width: 1280, Height: 720, FrameRate: 30, MaxBitrate: 0},
	PresetHigh:   {Width: 1280, Height: 720, FrameRate: 30, MaxBitrate: 2_500_000},
	PresetMedium: {Width: 640, Height: 480, FrameRate: 30, MaxBitrate: 1_000_000},
	PresetLow:    {Width: 320, Height: 240, FrameRate: 15, MaxBitrate: 350_000},
}

// Lookup returns the constraints bound to the preset.
//
// The mapping is total and pure. An out-of-range preset value degrades to
// the medium constraints rather than failing.
func Lookup(p Preset) Constraints {
	if c, ok := catalog[p]; ok {
		return c
	}
	return catalog[PresetMedium]
}

// Presets returns every defined preset, for iteration in callers and tests.
func Presets() []Preset {
	return []Preset{PresetAuto, PresetHigh, PresetMedium, PresetLow}
}

// ParsePreset converts a preset name (as it appears in configuration)
// back to a Preset.
func ParsePreset(name string) (Preset, error) {
	switch name {
	case "auto":
		return PresetAuto, nil
	case "high":
		return PresetHigh, nil
	case "medium":
		return PresetMedium, nil
	case "low":
		return PresetLow, nil
	default:
		return PresetAuto, fmt.Errorf("unknown preset %q", name)
	}
}
