package pipeline

import (
	"math"

	"github.com/wheelcraft/wheelcraft/internal/numeric"
	"github.com/wheelcraft/wheelcraft/internal/resolved"
	"github.com/wheelcraft/wheelcraft/internal/state"
)

// symmetricUnit is the [-1,1] interval the steering transform integrates
// its position in.
var symmetricUnit = numeric.NewInterval(-1.0, 1.0)

// applySteering runs the ten-step incremental pointer-style integrator
// described in component design 4.4. It ignores the incoming current_range
// entirely past step 1, which re-derives position from the destination's
// last committed output rather than from the pipeline's threaded value -
// matching the upstream algorithm's feedback-loop design.
func applySteering(s resolved.SteeringStep, value float64, r numeric.Interval[float64], in Input, store *state.Store, reader ControlReader, mapping *resolved.ResolvedMapping) (float64, numeric.Interval[float64]) {
	st := store.Steering(s.ID)
	destRange := numeric.CastInterval[float64](mapping.Destination.Range)

	// Step 1: last committed output, mapped onto [-1,1].
	lastOutput := float64(reader.Get(mapping.Destination.JoystickKey, mapping.Destination.ControlKey))
	pPrev := numeric.MapFrom(symmetricUnit, lastOutput, destRange)

	// Step 2: dt, 0 on first call.
	var dt float64
	if st.HasRun {
		dt = in.Now.Sub(st.LastTick).Seconds()
	}
	st.LastTick = in.Now
	st.HasRun = true

	// Step 3: delta from raw counts. deadzone_counts is accepted and
	// persisted but not consulted here, per the open question this
	// repository resolves in favor of "document as reserved" (see
	// DESIGN.md).
	lock := s.CountsToLock
	if lock < 1 {
		lock = 1
	}
	delta := value / (lock / 2)

	// Step 4: integrate then one-step smooth toward it.
	p := pPrev + delta
	alpha := s.SmoothingAlpha
	p = (1-alpha)*pPrev + alpha*p

	// Step 5: optional symmetric-power shaping, then optional EMA
	// sub-filter with its own dedicated state id.
	if delta != 0 && s.SymmetricPower != nil {
		unit := numeric.NormalizeToUnit(symmetricUnit, p)
		shaped := numeric.SymmetricPower(unit, *s.SymmetricPower)
		p = numeric.DenormalizeFromUnit(symmetricUnit, shaped)
	}
	if delta != 0 && s.EmaTau != nil && s.EmaID != 0 {
		sub := store.Filter(s.EmaID)
		subDt := dt
		if !sub.HasRun {
			subDt = 0
		}
		out := numeric.Ema(pick(sub.HasRun, sub.PrevOut, p), p, subDt, *s.EmaTau)
		sub.PrevOut = out
		sub.HasRun = true
		p = out
	}

	// Step 6: hold factor.
	holdFactor := resolveHoldFactor(s.HoldFactor, reader)

	// Step 7: FF force.
	var ffForce float64
	if s.FF.Enabled {
		raw := reader.FFSummaryNorm(mapping.Destination.JoystickKey)
		sign := 1.0
		if s.FF.Invert {
			sign = -1.0
		}
		ffForce = raw * s.FF.Scale * sign
	}

	// Step 8: FF-driven positional offset.
	if math.Abs(ffForce) > 0.001 {
		influence := s.Influence
		if influence == 0 {
			influence = 0.7
		}
		p += ffForce * (1 - holdFactor) * influence * dt
	}

	// Step 9: auto-center.
	if s.AutoCenterHalflife > 0 && dt > 0 && math.Abs(ffForce) < 0.001 && delta == 0 {
		k := (1 - math.Pow(2, -dt/s.AutoCenterHalflife)) * clamp01(1-holdFactor)
		p += (0 - p) * k
	}

	// Step 10: clamp and remap to the destination range.
	p = symmetricUnit.Clamp(p)
	st.LastP = p
	st.LastHoldFactor = holdFactor

	return numeric.MapFrom(destRange, p, symmetricUnit), destRange
}
