package pipeline

import (
	"github.com/wheelcraft/wheelcraft/internal/numeric"
	"github.com/wheelcraft/wheelcraft/internal/resolved"
	"github.com/wheelcraft/wheelcraft/internal/state"
)

// applyPedalSmoother runs the rise/fall rate-limited follower described in
// component design 4.5. On active (non-idle) input it only records the
// target and returns the previous output unchanged; advancing toward the
// target is entirely the idle-tick scheduler's job.
func applyPedalSmoother(s resolved.PedalSmootherStep, value float64, r numeric.Interval[float64], in Input, store *state.Store, reader ControlReader) (float64, numeric.Interval[float64]) {
	st := store.Pedal(s.ID)
	if !st.Initialized {
		st.PrevOut = r.From
		st.LastTarget = r.From
		st.LastTick = in.Now
		st.LastUserInput = in.Now
		st.Initialized = true
	}

	if !in.IsIdleTick {
		st.LastUserInput = in.Now
		st.LastTarget = value
		return st.PrevOut, r
	}

	dt := in.Now.Sub(st.LastTick).Seconds()
	st.LastTick = in.Now

	deltaV := st.LastTarget - st.PrevOut

	var rate float64
	if deltaV > 0 {
		rate = s.RiseRate
	} else {
		gentling := resolveGentling(s.Gentling, reader)
		rate = s.FallRate * gentling
		if s.FallDelay > 0 {
			sinceInput := in.Now.Sub(st.LastUserInput).Seconds()
			if sinceInput < s.FallDelay {
				rate = 0
			}
		}
	}

	maxStep := rate * dt
	actualDelta := clampMagnitude(deltaV, maxStep)
	out := st.PrevOut + actualDelta

	alpha := s.Alpha
	if alpha == 0 {
		alpha = 1
	}
	out = alpha*out + (1-alpha)*st.PrevOut

	out = r.Clamp(out)
	st.PrevOut = out
	return out, r
}

func clampMagnitude(v, maxAbs float64) float64 {
	if maxAbs < 0 {
		maxAbs = -maxAbs
	}
	if v > maxAbs {
		return maxAbs
	}
	if v < -maxAbs {
		return -maxAbs
	}
	return v
}
