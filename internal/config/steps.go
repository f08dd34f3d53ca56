package config

import (
	"fmt"

	"github.com/wheelcraft/wheelcraft/internal/numeric"
	"github.com/wheelcraft/wheelcraft/internal/resolved"
)

// resolveStep decodes one StepConfig's Params into the concrete resolved.Step
// variant its Type names, allocating runtime-state ids from ids for every
// stateful step.
func resolveStep(cfg StepConfig, ids *resolved.IDAllocator) (resolved.Step, error) {
	p := params(cfg.Params)

	switch cfg.Type {
	case "invert":
		return resolved.InvertStep{IsRelative: p.bool("relative", false)}, nil

	case "integrate":
		rng := p.intRange("range", 0, 750)
		return resolved.IntegrateStep{
			Range:        rng,
			DeadzoneNorm: p.float("deadzone_norm", 0),
			ID:           ids.Next(),
		}, nil

	case "clamp":
		return resolved.ClampStep{
			From:          p.intPtr("from"),
			To:            p.intPtr("to"),
			OverrideRange: p.bool("override_range", false),
		}, nil

	case "ema":
		return resolved.EmaFilterStep{
			Tau:    p.float("tau", 0.1),
			OnIdle: p.bool("on_idle", true),
			ID:     ids.Next(),
		}, nil

	case "low_pass":
		return resolved.LowPassStep{
			TimeConstant: p.float("time_constant", 0.1),
			OnIdle:       p.bool("on_idle", true),
			ID:           ids.Next(),
		}, nil

	case "high_pass":
		return resolved.HighPassStep{
			TimeConstant: p.float("time_constant", 0.1),
			OnIdle:       p.bool("on_idle", true),
			ID:           ids.Next(),
		}, nil

	case "linear":
		return resolved.LinearStep{
			Slope:  p.float("slope", 1),
			ShiftX: p.float("shift_x", 0),
			ShiftY: p.float("shift_y", 0),
		}, nil

	case "quadratic":
		return resolved.QuadraticStep{}, nil

	case "cubic":
		return resolved.CubicStep{}, nil

	case "smoothstep":
		return resolved.SmoothstepStep{}, nil

	case "s_curve":
		return resolved.SCurveStep{Steepness: p.float("steepness", 10)}, nil

	case "exponential":
		return resolved.ExponentialStep{Base: p.float("base", 2)}, nil

	case "power":
		return resolved.PowerStep{P: p.float("p", 2)}, nil

	case "symmetric_power":
		return resolved.SymmetricPowerStep{P: p.float("p", 2)}, nil

	case "steering":
		return resolveSteeringStep(p, ids)

	case "pedal_smoother":
		return resolved.PedalSmootherStep{
			RiseRate:  p.float("rise_rate", 1000),
			FallRate:  p.float("fall_rate", 1000),
			FallDelay: p.float("fall_delay", 0),
			Alpha:     p.float("alpha", 1),
			Gentling:  p.holdFactor("gentling", 1),
			ID:        ids.Next(),
		}, nil

	default:
		return nil, fmt.Errorf("unknown step type %q", cfg.Type)
	}
}

func resolveSteeringStep(p params, ids *resolved.IDAllocator) (resolved.Step, error) {
	s := resolved.SteeringStep{
		CountsToLock:       p.float("counts_to_lock", 900),
		SmoothingAlpha:     p.float("smoothing_alpha", 1),
		DeadzoneCounts:     p.float("deadzone_counts", 0),
		HoldFactor:         p.holdFactor("hold_factor", 0),
		Influence:          p.float("influence", 0.7),
		AutoCenterHalflife: p.float("auto_center_halflife", 0.1),
		ID:                 ids.Next(),
	}
	if v, ok := p.floatOk("symmetric_power"); ok {
		s.SymmetricPower = &v
	}
	if v, ok := p.floatOk("ema_tau"); ok {
		s.EmaTau = &v
		s.EmaID = ids.Next()
	}
	s.FF = resolved.ForceFeedback{
		Enabled: p.bool("ff_enabled", false),
		Scale:   p.float("ff_scale", 1),
		Invert:  p.bool("ff_invert", false),
	}
	return s, nil
}

// params is a thin typed-accessor wrapper over a StepConfig's raw
// inline-decoded field map, every value of which comes back from yaml.v3 as
// one of string/bool/int/float64/[]interface{}/map[string]interface{}.
type params map[string]interface{}

func (p params) bool(key string, fallback bool) bool {
	if v, ok := p[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

func (p params) float(key string, fallback float64) float64 {
	v, ok := p.floatOk(key)
	if !ok {
		return fallback
	}
	return v
}

func (p params) floatOk(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func (p params) intPtr(key string) *int {
	v, ok := p[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case int:
		return &n
	case float64:
		i := int(n)
		return &i
	default:
		return nil
	}
}

func (p params) intRange(key string, defFrom, defTo int) numeric.Interval[int] {
	v, ok := p[key]
	if !ok {
		return numeric.NewInterval(defFrom, defTo)
	}
	list, ok := v.([]interface{})
	if !ok || len(list) != 2 {
		return numeric.NewInterval(defFrom, defTo)
	}
	from, fOk := toInt(list[0])
	to, tOk := toInt(list[1])
	if !fOk || !tOk {
		return numeric.NewInterval(defFrom, defTo)
	}
	return numeric.NewInterval(from, to)
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// holdFactor decodes the hold_factor/gentling param, which is either a bare
// number (a constant) or a mapping with device/control/range_from/range_to
// keys (a cross-control reference).
func (p params) holdFactor(key string, fallback float64) resolved.HoldFactor {
	v, ok := p[key]
	if !ok {
		return resolved.HoldFactorValue(fallback)
	}
	switch n := v.(type) {
	case float64:
		return resolved.HoldFactorValue(n)
	case int:
		return resolved.HoldFactorValue(float64(n))
	case map[string]interface{}:
		ref := resolved.HoldFactorReference{
			DeviceKey:   toString(n["device"]),
			ControlKey:  toString(n["control"]),
			SourceRange: numeric.NewInterval(0, 127),
		}
		from, fOk := toInt(n["range_from"])
		to, tOk := toInt(n["range_to"])
		if fOk && tOk {
			ref.SourceRange = numeric.NewInterval(from, to)
		}
		return ref
	default:
		return resolved.HoldFactorValue(fallback)
	}
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}
