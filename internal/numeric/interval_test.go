package numeric

import "testing"

func TestNewIntervalSwapsReversedEndpoints(t *testing.T) {
	iv := NewInterval(10.0, -5.0)
	if iv.From != -5 || iv.To != 10 {
		t.Fatalf("expected swapped endpoints, got %+v", iv)
	}
}

func TestClampStaysInRange(t *testing.T) {
	iv := NewInterval(0, 127)
	cases := []struct {
		in, want int
	}{
		{-10, 0},
		{200, 127},
		{64, 64},
	}
	for _, c := range cases {
		if got := iv.Clamp(c.in); got != c.want {
			t.Errorf("Clamp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestInvertRoundTrips(t *testing.T) {
	iv := NewInterval(0, 127)
	for _, v := range []int{0, 1, 64, 126, 127} {
		inv, err := iv.Invert(v)
		if err != nil {
			t.Fatalf("Invert(%d) errored: %v", v, err)
		}
		if !iv.ContainsInclusive(inv) {
			t.Errorf("Invert(%d)=%d not in interval", v, inv)
		}
		back, err := iv.Invert(inv)
		if err != nil {
			t.Fatalf("Invert(Invert(%d)) errored: %v", v, err)
		}
		if back != v {
			t.Errorf("Invert(Invert(%d)) = %d, want %d", v, back, v)
		}
	}
}

func TestInvertRejectsOutOfRange(t *testing.T) {
	iv := NewInterval(0, 127)
	if _, err := iv.Invert(-1); err == nil {
		t.Fatal("expected error for out-of-range Invert")
	}
}

func TestNormalizeDenormalizeRoundTrip(t *testing.T) {
	iv := NewInterval(-32768, 32767)
	for _, u := range []float64{0, 0.25, 0.5, 0.75, 1} {
		v := DenormalizeFromUnit(iv, u)
		back := NormalizeToUnit(iv, v)
		if diff := back - u; diff > 1e-3 || diff < -1e-3 {
			t.Errorf("round trip u=%v -> v=%v -> %v, too far off", u, v, back)
		}
	}
}

func TestNormalizeZeroSpanIsZero(t *testing.T) {
	iv := NewInterval(5, 5)
	if got := NormalizeToUnit(iv, 5); got != 0 {
		t.Fatalf("expected 0 for zero-span interval, got %v", got)
	}
}

func TestOrderingBySpanThenFrom(t *testing.T) {
	small := NewInterval(0, 10)
	big := NewInterval(0, 20)
	if !small.Less(big) {
		t.Fatal("expected smaller-span interval to be Less")
	}

	a := NewInterval(0, 10)
	b := NewInterval(5, 15)
	if !a.Less(b) {
		t.Fatal("expected equal-span intervals to tie-break on From")
	}
}

func TestEqualComparesSpanOnly(t *testing.T) {
	a := NewInterval(0, 10)
	b := NewInterval(100, 110)
	if !a.Equal(b) {
		t.Fatal("expected equal spans to be Equal regardless of position")
	}
}

func TestMapFromComposesNormalizeDenormalize(t *testing.T) {
	src := NewInterval(0, 127)
	dst := NewInterval(-32768, 32767)
	got := MapFrom(dst, 0, src)
	if got != dst.From {
		t.Errorf("MapFrom(0) = %d, want %d", got, dst.From)
	}
	got = MapFrom(dst, 127, src)
	if got != dst.To {
		t.Errorf("MapFrom(127) = %d, want %d", got, dst.To)
	}
}
