package pipeline

import (
	"testing"
	"time"

	"github.com/wheelcraft/wheelcraft/internal/numeric"
	"github.com/wheelcraft/wheelcraft/internal/resolved"
	"github.com/wheelcraft/wheelcraft/internal/state"
)

type fakeReader struct {
	values map[string]int32
	ff     map[string]float64
}

func newFakeReader() *fakeReader {
	return &fakeReader{values: map[string]int32{}, ff: map[string]float64{}}
}

func (f *fakeReader) key(j, c string) string { return j + "/" + c }

func (f *fakeReader) Get(joystickKey, controlKey string) int32 {
	return f.values[f.key(joystickKey, controlKey)]
}

func (f *fakeReader) set(joystickKey, controlKey string, v int32) {
	f.values[f.key(joystickKey, controlKey)] = v
}

func (f *fakeReader) FFSummaryNorm(joystickKey string) float64 {
	return f.ff[joystickKey]
}

func TestIntegrateScenarioMouseToThrottle(t *testing.T) {
	store := state.NewStore()
	reader := newFakeReader()

	mapping := &resolved.ResolvedMapping{
		Source: resolved.Source{Range: numeric.NewInterval(-1000, 1000)},
		Destination: resolved.Destination{
			JoystickKey: "wheel", ControlKey: "throttle",
			Range: numeric.NewInterval(0, 750),
		},
		Steps: []resolved.Step{
			resolved.IntegrateStep{Range: numeric.NewInterval(0, 750), ID: 1},
		},
	}

	now := time.Unix(0, 0)
	want := []float64{385, 395, 390}
	for i, delta := range []float64{10, 10, -5} {
		got := Execute(mapping, Input{RawValue: delta, Now: now}, store, reader)
		if got != want[i] {
			t.Errorf("step %d: Execute(%v) = %v, want %v", i, delta, got, want[i])
		}
		now = now.Add(10 * time.Millisecond)
	}
}

func TestClampStepOverridesRange(t *testing.T) {
	r := numeric.NewInterval(0.0, 127.0)
	from, to := 50, 100
	step := resolved.ClampStep{From: &from, To: &to, OverrideRange: true}

	value, newRange := applyClamp(step, 200, r)
	if value != 100 {
		t.Errorf("clamped value = %v, want 100", value)
	}
	if newRange.From != 50 || newRange.To != 100 {
		t.Errorf("new range = %+v, want [50,100]", newRange)
	}

	// Subsequent linear remap onto a [0,1000] destination.
	dest := numeric.NewInterval(0.0, 1000.0)
	remapped := numeric.MapFrom(dest, value, newRange)
	if remapped != 1000 {
		t.Errorf("remapped value = %v, want 1000", remapped)
	}
}

func TestSteeringFFPushedDeflection(t *testing.T) {
	store := state.NewStore()
	reader := newFakeReader()
	reader.ff["wheel"] = -0.5

	mapping := &resolved.ResolvedMapping{
		Destination: resolved.Destination{
			JoystickKey: "wheel", ControlKey: "steer",
			Range: numeric.NewInterval(-32767, 32767),
		},
	}
	step := resolved.SteeringStep{
		CountsToLock: 60,
		FF:           resolved.ForceFeedback{Enabled: true, Scale: 1, Invert: false},
		Influence:    0.7,
		HoldFactor:   resolved.HoldFactorValue(0),
		ID:           1,
	}

	now := time.Unix(0, 0)
	// First call establishes LastTick with dt=0 and no user input (delta=0).
	applySteering(step, 0, numeric.NewInterval(0.0, 127.0), Input{RawValue: 0, Now: now}, store, reader, mapping)

	now = now.Add(10 * time.Millisecond)
	_, _ = applySteering(step, 0, numeric.NewInterval(0.0, 127.0), Input{RawValue: 0, Now: now}, store, reader, mapping)

	st := store.Steering(1)
	want := -0.5 * 1 * 0.7 * 0.01
	if diff := st.LastP - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("steering p after FF push = %v, want %v", st.LastP, want)
	}
}

func TestSteeringAutoCenterStationaryAtFullHold(t *testing.T) {
	store := state.NewStore()
	reader := newFakeReader()
	mapping := &resolved.ResolvedMapping{
		Destination: resolved.Destination{
			JoystickKey: "wheel", ControlKey: "steer",
			Range: numeric.NewInterval(-32767, 32767),
		},
	}
	step := resolved.SteeringStep{
		CountsToLock:       60,
		AutoCenterHalflife: 0.5,
		HoldFactor:         resolved.HoldFactorValue(1),
		ID:                 1,
	}

	now := time.Unix(0, 0)
	reader.set("wheel", "steer", 16000)
	applySteering(step, 0, numeric.NewInterval(0.0, 127.0), Input{RawValue: 0, Now: now}, store, reader, mapping)
	now = now.Add(100 * time.Millisecond)
	value, _ := applySteering(step, 0, numeric.NewInterval(0.0, 127.0), Input{RawValue: 0, Now: now}, store, reader, mapping)

	diff := value - 16000
	if diff < -1 || diff > 1 {
		t.Errorf("expected stationary position at hold_factor=1, got %v want ~16000", value)
	}
}

func TestPedalSmootherHoldsDuringFallDelayThenDecays(t *testing.T) {
	store := state.NewStore()
	reader := newFakeReader()

	destRange := numeric.NewInterval(0.0, 10000.0)
	step := resolved.PedalSmootherStep{
		RiseRate:  5000,
		FallRate:  2000,
		FallDelay: 0.3,
		Alpha:     1.0,
		Gentling:  resolved.HoldFactorValue(1),
		ID:        1,
	}

	now := time.Unix(0, 0)
	// Sustained input 1000 for 1s at 100Hz: active input then idle ticks
	// rise to the target.
	for i := 0; i < 100; i++ {
		applyPedalSmoother(step, 1000, destRange, Input{RawValue: 1000, IsIdleTick: false, Now: now}, store, reader)
		applyPedalSmoother(step, 1000, destRange, Input{IsIdleTick: true, Now: now}, store, reader)
		now = now.Add(10 * time.Millisecond)
	}
	st := store.Pedal(1)
	if st.PrevOut < 999 {
		t.Fatalf("expected output to reach rise target ~1000, got %v", st.PrevOut)
	}

	// Drop to 0, then tick at 100Hz for 0.3s: output must hold.
	applyPedalSmoother(step, 0, destRange, Input{RawValue: 0, IsIdleTick: false, Now: now}, store, reader)
	held := st.PrevOut
	for i := 0; i < 29; i++ {
		now = now.Add(10 * time.Millisecond)
		out, _ := applyPedalSmoother(step, 0, destRange, Input{IsIdleTick: true, Now: now}, store, reader)
		if out != held {
			t.Fatalf("expected output to hold at %v during fall delay, got %v at tick %d", held, out, i)
		}
	}

	// Past fall_delay, output should now be decaying.
	now = now.Add(50 * time.Millisecond)
	out, _ := applyPedalSmoother(step, 0, destRange, Input{IsIdleTick: true, Now: now}, store, reader)
	if out >= held {
		t.Fatalf("expected output to have started decaying past fall_delay, got %v (was %v)", out, held)
	}
}

func TestIdleTickIsNoOpForIntegrate(t *testing.T) {
	store := state.NewStore()
	step := resolved.IntegrateStep{Range: numeric.NewInterval(0, 750), ID: 1}
	r := numeric.NewInterval(0.0, 750.0)

	now := time.Unix(0, 0)
	v1, _ := applyIntegrate(step, 10, r, Input{Now: now}, store)
	v2, _ := applyIntegrate(step, 999, r, Input{IsIdleTick: true, Now: now}, store)
	if v1 != v2 {
		t.Errorf("idle tick should be a no-op for Integrate: got %v then %v", v1, v2)
	}
}
