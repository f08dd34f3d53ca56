package pipeline

import (
	"github.com/wheelcraft/wheelcraft/internal/numeric"
	"github.com/wheelcraft/wheelcraft/internal/resolved"
)

// resolveHoldFactor reads a HoldFactor to a value in [0,1]. A cross-control
// reference is read through reader and normalized from its declared source
// range.
func resolveHoldFactor(hf resolved.HoldFactor, reader ControlReader) float64 {
	switch v := hf.(type) {
	case resolved.HoldFactorValue:
		return clamp01(float64(v))
	case resolved.HoldFactorReference:
		raw := int(reader.Get(v.DeviceKey, v.ControlKey))
		return clamp01(numeric.NormalizeToUnit(v.SourceRange, raw))
	default:
		return 0
	}
}

// resolveGentling is the pedal smoother's variant of hold-factor resolution:
// for a cross-control Reference, the reading is inverted before
// normalizing, so a fully pressed reference control yields 0 and a released
// one yields 1; the smoother multiplies its fall rate by this value.
func resolveGentling(hf resolved.HoldFactor, reader ControlReader) float64 {
	switch v := hf.(type) {
	case resolved.HoldFactorValue:
		return clamp01(float64(v))
	case resolved.HoldFactorReference:
		raw := int(reader.Get(v.DeviceKey, v.ControlKey))
		inverted, err := v.SourceRange.Invert(v.SourceRange.Clamp(raw))
		if err != nil {
			inverted = raw
		}
		return clamp01(numeric.NormalizeToUnit(v.SourceRange, inverted))
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
