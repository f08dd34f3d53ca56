package numeric

import "math"

// EmaAlpha computes the exponential-moving-average blend factor for a given
// elapsed time and time constant: alpha = 1 - exp(-dt/tau).
func EmaAlpha(dt, tau float64) float64 {
	if tau <= 0 {
		return 1
	}
	return 1 - math.Exp(-dt/tau)
}

// Ema advances an exponential moving average by one step.
func Ema(prev, x, dt, tau float64) float64 {
	alpha := EmaAlpha(dt, tau)
	return prev + alpha*(x-prev)
}

// LowPass applies the identical blend as Ema; a non-positive time constant
// passes the input through unchanged (alpha=1).
func LowPass(prev, x, dt, timeConstant float64) float64 {
	if timeConstant <= 0 {
		return x
	}
	return Ema(prev, x, dt, timeConstant)
}

// HighPass implements the standard first-order complement to LowPass:
// y = alpha*(prevOut + x - prevIn), sharing low-pass's alpha. This step is
// declared but left unimplemented upstream; this is the suggested formula.
func HighPass(prevOut, prevIn, x, dt, timeConstant float64) float64 {
	alpha := EmaAlpha(dt, timeConstant)
	return alpha * (prevOut + x - prevIn)
}
