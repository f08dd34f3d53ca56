package numeric

import "testing"

func approxEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestQuadraticCubicSmoothstepBoundaries(t *testing.T) {
	for _, fn := range []func(float64) float64{Quadratic, Cubic, Smoothstep} {
		if got := fn(0); !approxEqual(got, 0, 1e-9) {
			t.Errorf("fn(0) = %v, want 0", got)
		}
		if got := fn(1); !approxEqual(got, 1, 1e-9) {
			t.Errorf("fn(1) = %v, want 1", got)
		}
	}
}

func TestSymmetricPowerIsSymmetricAroundHalf(t *testing.T) {
	for _, p := range []float64{0.5, 1.5, 2, 3} {
		mid := SymmetricPower(0.5, p)
		if !approxEqual(mid, 0.5, 1e-9) {
			t.Errorf("SymmetricPower(0.5, %v) = %v, want 0.5", p, mid)
		}
		for _, d := range []float64{0.1, 0.2, 0.45} {
			lo := SymmetricPower(0.5-d, p)
			hi := SymmetricPower(0.5+d, p)
			if !approxEqual(lo+hi, 1, 1e-9) {
				t.Errorf("SymmetricPower(0.5-%v)+SymmetricPower(0.5+%v) = %v, want 1", d, d, lo+hi)
			}
		}
	}
}

func TestSCurveDegenerateStepnessIsIdentity(t *testing.T) {
	for _, x := range []float64{0, 0.3, 0.5, 1} {
		if got := SCurve(x, 0); got != x {
			t.Errorf("SCurve(%v, 0) = %v, want %v", x, got, x)
		}
	}
}

func TestSCurveStaysInUnitRange(t *testing.T) {
	for _, x := range []float64{0, 0.25, 0.5, 0.75, 1} {
		got := SCurve(x, 10)
		if got < 0 || got > 1 {
			t.Errorf("SCurve(%v, 10) = %v, out of [0,1]", x, got)
		}
	}
}

func TestExponentialFallsBackBelowUnityBase(t *testing.T) {
	for _, x := range []float64{0, 0.5, 1} {
		if got := Exponential(x, 1); got != x {
			t.Errorf("Exponential(%v, 1) = %v, want %v", x, got, x)
		}
		if got := Exponential(x, 0.5); got != x {
			t.Errorf("Exponential(%v, 0.5) = %v, want %v", x, got, x)
		}
	}
}

func TestPowerFallsBackForNonPositiveExponent(t *testing.T) {
	if got := Power(0.3, 0); got != 0.3 {
		t.Errorf("Power(0.3, 0) = %v, want 0.3", got)
	}
	if got := Power(-0.3, -1); got != -0.3 {
		t.Errorf("Power(-0.3, -1) = %v, want -0.3", got)
	}
}
