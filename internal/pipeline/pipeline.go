// Package pipeline executes the ordered per-mapping transformation step list
// described in component design 4.3, threading a (value, current_range)
// pair from step to step and resolving cross-control references along the
// way.
package pipeline

import (
	"log"
	"time"

	"github.com/wheelcraft/wheelcraft/internal/numeric"
	"github.com/wheelcraft/wheelcraft/internal/resolved"
	"github.com/wheelcraft/wheelcraft/internal/state"
)

// ControlReader is the subset of the joystick control surface the pipeline
// needs to resolve cross-control hold-factor references and FF coupling.
// joystick.Manager satisfies this by having matching methods.
type ControlReader interface {
	Get(joystickKey, controlKey string) int32
	FFSummaryNorm(joystickKey string) float64
}

// Input is everything one pipeline invocation needs besides the mapping
// itself.
type Input struct {
	RawValue   float64
	IsIdleTick bool
	Now        time.Time
}

// Execute runs mapping's step list on in, returning the value already
// remapped and clamped onto the destination's declared range. It does not
// write to the destination control surface; the engine does that and is
// responsible for flipping the idle-tick-enabled flag on first non-idle
// completion.
func Execute(mapping *resolved.ResolvedMapping, in Input, store *state.Store, reader ControlReader) float64 {
	srcRange := rangeOrDefault(mapping.Source.Range, 0, 127)
	currentRange := numeric.CastInterval[float64](srcRange)

	value := in.RawValue
	if !srcRange.ContainsInclusive(int(value)) {
		log.Printf("[Pipeline] value %v outside source range [%d,%d] for %q, clamping", value, srcRange.From, srcRange.To, mappingLabel(mapping))
		value = float64(srcRange.Clamp(int(value)))
	}

	for _, step := range mapping.Steps {
		value, currentRange = applyStep(step, value, currentRange, in, store, reader, mapping)
	}

	destRange := numeric.CastInterval[float64](mapping.Destination.Range)
	if currentRange.From != destRange.From || currentRange.To != destRange.To {
		value = numeric.MapFrom(destRange, value, currentRange)
	}
	return destRange.Clamp(value)
}

func mappingLabel(m *resolved.ResolvedMapping) string {
	if m.Name != "" {
		return m.Name
	}
	return m.Source.DeviceKey + "/" + m.Source.ControlKey
}

func rangeOrDefault(r numeric.Interval[int], from, to int) numeric.Interval[int] {
	if r.From == 0 && r.To == 0 {
		return numeric.NewInterval(from, to)
	}
	return r
}

// applyStep dispatches to the per-step-kind implementation. Unknown step
// types (there should be none, since Step is a closed set of variants
// defined in this repository) are a no-op, matching the "never panic on
// user input" propagation policy.
func applyStep(step resolved.Step, value float64, r numeric.Interval[float64], in Input, store *state.Store, reader ControlReader, mapping *resolved.ResolvedMapping) (float64, numeric.Interval[float64]) {
	switch s := step.(type) {
	case resolved.InvertStep:
		return applyInvert(s, value, r)
	case resolved.IntegrateStep:
		return applyIntegrate(s, value, r, in, store)
	case resolved.ClampStep:
		return applyClamp(s, value, r)
	case resolved.EmaFilterStep:
		return applyEma(s, value, r, in, store)
	case resolved.LowPassStep:
		return applyLowPass(s, value, r, in, store)
	case resolved.HighPassStep:
		return applyHighPass(s, value, r, in, store)
	case resolved.LinearStep:
		return applyCurve(s.OnIdle, value, r, in, func(x float64) float64 {
			return numeric.Linear(x, nonZero(s.Slope, 1), s.ShiftX, s.ShiftY)
		})
	case resolved.QuadraticStep:
		return applyCurve(s.OnIdle, value, r, in, numeric.Quadratic)
	case resolved.CubicStep:
		return applyCurve(s.OnIdle, value, r, in, numeric.Cubic)
	case resolved.SmoothstepStep:
		return applyCurve(s.OnIdle, value, r, in, numeric.Smoothstep)
	case resolved.SCurveStep:
		return applyCurve(s.OnIdle, value, r, in, func(x float64) float64 {
			return numeric.SCurve(x, nonZero(s.Steepness, 10))
		})
	case resolved.ExponentialStep:
		return applyCurve(s.OnIdle, value, r, in, func(x float64) float64 {
			return numeric.Exponential(x, s.Base)
		})
	case resolved.PowerStep:
		return applyCurve(s.OnIdle, value, r, in, func(x float64) float64 {
			return numeric.Power(x, s.P)
		})
	case resolved.SymmetricPowerStep:
		return applyCurve(s.OnIdle, value, r, in, func(x float64) float64 {
			return numeric.SymmetricPower(x, s.P)
		})
	case resolved.SteeringStep:
		return applySteering(s, value, r, in, store, reader, mapping)
	case resolved.PedalSmootherStep:
		return applyPedalSmoother(s, value, r, in, store, reader)
	default:
		return value, r
	}
}

func nonZero(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func applyInvert(s resolved.InvertStep, value float64, r numeric.Interval[float64]) (float64, numeric.Interval[float64]) {
	if s.IsRelative {
		return -value, r
	}
	clamped := r.Clamp(value)
	inverted, err := r.Invert(clamped)
	if err != nil {
		return clamped, r
	}
	return inverted, r
}

func applyIntegrate(s resolved.IntegrateStep, value float64, r numeric.Interval[float64], in Input, store *state.Store) (float64, numeric.Interval[float64]) {
	integRange := s.Range
	if integRange.From == 0 && integRange.To == 0 {
		integRange = numeric.NewInterval(0, 750)
	}
	floatRange := numeric.CastInterval[float64](integRange)

	st := store.Integrate(s.ID)
	if !st.HasRun {
		st.Position = floatRange.Midpoint()
		st.HasRun = true
	}
	if in.IsIdleTick {
		return st.Position, floatRange
	}

	delta := value
	span := floatRange.Span()
	if s.DeadzoneNorm > 0 && span > 0 {
		if absf(value)/span < s.DeadzoneNorm {
			delta = 0
		}
	}
	st.Position = floatRange.Clamp(st.Position + delta)
	return st.Position, floatRange
}

func applyClamp(s resolved.ClampStep, value float64, r numeric.Interval[float64]) (float64, numeric.Interval[float64]) {
	from, to := r.From, r.To
	if s.From != nil {
		from = float64(*s.From)
	}
	if s.To != nil {
		to = float64(*s.To)
	}
	clampRange := numeric.NewInterval(from, to)
	clamped := clampRange.Clamp(value)
	if s.OverrideRange {
		return clamped, clampRange
	}
	return clamped, r
}

func applyEma(s resolved.EmaFilterStep, value float64, r numeric.Interval[float64], in Input, store *state.Store) (float64, numeric.Interval[float64]) {
	st := store.Filter(s.ID)
	dt := filterDt(st, in)
	out := numeric.Ema(pick(st.HasRun, st.PrevOut, value), value, dt, s.Tau)
	st.PrevOut = out
	st.LastTick = in.Now
	st.HasRun = true
	if in.IsIdleTick && !s.OnIdle {
		return value, r
	}
	return out, r
}

func applyLowPass(s resolved.LowPassStep, value float64, r numeric.Interval[float64], in Input, store *state.Store) (float64, numeric.Interval[float64]) {
	tau := s.TimeConstant
	if tau == 0 {
		tau = 0.1
	}
	st := store.Filter(s.ID)
	dt := filterDt(st, in)
	out := numeric.LowPass(pick(st.HasRun, st.PrevOut, value), value, dt, tau)
	st.PrevOut = out
	st.LastTick = in.Now
	st.HasRun = true
	if in.IsIdleTick && !s.OnIdle {
		return value, r
	}
	return out, r
}

func applyHighPass(s resolved.HighPassStep, value float64, r numeric.Interval[float64], in Input, store *state.Store) (float64, numeric.Interval[float64]) {
	tau := s.TimeConstant
	if tau == 0 {
		tau = 0.1
	}
	st := store.Filter(s.ID)
	dt := filterDt(st, in)
	out := numeric.HighPass(pick(st.HasRun, st.PrevOut, 0), st.PrevIn, value, dt, tau)
	st.PrevOut = out
	st.PrevIn = value
	st.LastTick = in.Now
	st.HasRun = true
	if in.IsIdleTick && !s.OnIdle {
		return value, r
	}
	return out, r
}

// filterDt returns the elapsed time since a filter step's last call, 0 on
// its first call, matching every other stateful step's "dt=0 on first
// call" convention.
func filterDt(st *state.FilterState, in Input) float64 {
	if !st.HasRun {
		return 0
	}
	return in.Now.Sub(st.LastTick).Seconds()
}

func applyCurve(onIdle bool, value float64, r numeric.Interval[float64], in Input, curve func(float64) float64) (float64, numeric.Interval[float64]) {
	if in.IsIdleTick && !onIdle {
		return value, r
	}
	u := numeric.NormalizeToUnit(r, value)
	out := curve(u)
	return numeric.DenormalizeFromUnit(r, out), r
}

func pick(hasRun bool, prev, value float64) float64 {
	if hasRun {
		return prev
	}
	return value
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
