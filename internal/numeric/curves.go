package numeric

import "math"

// Curves operate on a unit input in [0,1] and return a unit output. They are
// total functions: every boundary and degenerate-parameter case is handled
// explicitly rather than left to produce NaN or Inf.

// Linear applies slope*(x-shiftX)+shiftY.
func Linear(x, slope, shiftX, shiftY float64) float64 {
	return slope*(x-shiftX) + shiftY
}

// Quadratic returns x^2.
func Quadratic(x float64) float64 {
	return x * x
}

// Cubic returns x^3.
func Cubic(x float64) float64 {
	return x * x * x
}

// Smoothstep returns 3x^2-2x^3.
func Smoothstep(x float64) float64 {
	return 3*x*x - 2*x*x*x
}

// SCurve applies a tanh-shaped curve of the given steepness, clamped to
// [0,1]. Near-zero steepness and a degenerate denominator both fall back to
// the identity.
func SCurve(x, steepness float64) float64 {
	if math.Abs(steepness) < 1e-8 {
		return x
	}
	denom := math.Tanh(0.25 * steepness)
	if denom == 0 {
		return x
	}
	y := 0.5 * (1 + math.Tanh(0.5*steepness*(x-0.5))/denom)
	if y < 0 {
		return 0
	}
	if y > 1 {
		return 1
	}
	return y
}

// Exponential raises base to x and normalizes so f(0)=0, f(1)=1. Bases at or
// below 1 fall back to the identity to avoid division by zero / decay.
func Exponential(x, base float64) float64 {
	if base <= 1 {
		return x
	}
	return (math.Pow(base, x) - 1) / (base - 1)
}

// Power applies sign(x)*|x|^p for p>0, identity otherwise.
func Power(x, p float64) float64 {
	if p <= 0 {
		return x
	}
	return math.Copysign(math.Pow(math.Abs(x), p), x)
}

// SymmetricPower applies Power around the midpoint of [0,1] rather than
// around 0: x is remapped to [-1,1], powered, and remapped back.
func SymmetricPower(x, p float64) float64 {
	if p <= 0 {
		return x
	}
	signed := 2*x - 1
	powered := math.Copysign(math.Pow(math.Abs(signed), p), signed)
	return (powered + 1) / 2
}
