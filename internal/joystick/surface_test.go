package joystick

import (
	"testing"

	"github.com/wheelcraft/wheelcraft/internal/controltype"
)

type fakeDevice struct {
	keyEvents map[uint16]int32
	absEvents map[uint16]int32
	ffEvents  chan FFKernelEvent
	uploads   []int16
	retvals   []int32
	erases    []int16
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		keyEvents: map[uint16]int32{},
		absEvents: map[uint16]int32{},
		ffEvents:  make(chan FFKernelEvent, 8),
	}
}

func (f *fakeDevice) EmitKey(code uint16, value int32) error {
	f.keyEvents[code] = value
	return nil
}
func (f *fakeDevice) EmitAbs(code uint16, value int32) error {
	f.absEvents[code] = value
	return nil
}
func (f *fakeDevice) FFEvents() <-chan FFKernelEvent { return f.ffEvents }
func (f *fakeDevice) RespondFFUpload(requestID, effectID int16, retval int32, level int16, isConstant bool) error {
	f.uploads = append(f.uploads, effectID)
	f.retvals = append(f.retvals, retval)
	return nil
}
func (f *fakeDevice) RespondFFErase(requestID int16, retval int32) error {
	f.erases = append(f.erases, requestID)
	return nil
}
func (f *fakeDevice) Close() error {
	close(f.ffEvents)
	return nil
}

func TestSetButtonMapsNonZeroToOne(t *testing.T) {
	dev := newFakeDevice()
	btn, _ := controltype.Parse("BTN_SOUTH")
	cs := NewControlSurface("test", dev, map[string]controltype.ControlType{"fire": btn}, nil, false)

	if err := cs.Set("fire", 42, false); err != nil {
		t.Fatalf("Set errored: %v", err)
	}
	if got := cs.Get("fire"); got != 1 {
		t.Errorf("Get(fire) = %d, want 1", got)
	}
	if dev.keyEvents[btn.Code] != 1 {
		t.Errorf("emitted key value = %d, want 1", dev.keyEvents[btn.Code])
	}

	if err := cs.Set("fire", 0, false); err != nil {
		t.Fatalf("Set errored: %v", err)
	}
	if got := cs.Get("fire"); got != 0 {
		t.Errorf("Get(fire) after zero = %d, want 0", got)
	}
}

func TestSetAbsoluteRoundsToInt(t *testing.T) {
	dev := newFakeDevice()
	axis, _ := controltype.Parse("ABS_X")
	cs := NewControlSurface("test", dev, map[string]controltype.ControlType{"x": axis}, nil, false)

	if err := cs.Set("x", 1234.7, false); err != nil {
		t.Fatalf("Set errored: %v", err)
	}
	if got := cs.Get("x"); got != 1235 {
		t.Errorf("Get(x) = %d, want 1235", got)
	}
}

func TestSetUnknownControlErrors(t *testing.T) {
	dev := newFakeDevice()
	cs := NewControlSurface("test", dev, map[string]controltype.ControlType{}, nil, false)
	if err := cs.Set("nope", 1, false); err == nil {
		t.Fatal("expected error for unknown control")
	}
}

func TestFFSummaryNormDisabledIsZero(t *testing.T) {
	dev := newFakeDevice()
	cs := NewControlSurface("test", dev, map[string]controltype.ControlType{}, nil, false)
	if got := cs.FFSummaryNorm(); got != 0 {
		t.Errorf("FFSummaryNorm() with FF disabled = %v, want 0", got)
	}
}

func TestIdleTickEnabledDefaultsFalse(t *testing.T) {
	dev := newFakeDevice()
	axis, _ := controltype.Parse("ABS_X")
	cs := NewControlSurface("test", dev, map[string]controltype.ControlType{"x": axis}, nil, false)
	if cs.IdleTickEnabled("x").Load() {
		t.Fatal("expected idle-tick-enabled flag to default false")
	}
}
