// Package joystick implements the per-virtual-joystick control surface
// (component design 4.8): mutable per-control state other transforms read
// cross-control, kernel event emission via uinput, and the force-feedback
// consumer that couples the kernel's uploaded effects back into the
// steering transform.
package joystick

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/wheelcraft/wheelcraft/internal/controltype"
)

// ControlSurface holds the live, cross-task-visible state for one virtual
// joystick: the last value committed to each control, each control's type,
// and the idle-tick-enabled flag per control that the router and the
// idle-tick scheduler both consult.
type ControlSurface struct {
	Name string

	mu          sync.RWMutex
	lastValue   map[string]int32
	controlType map[string]controltype.ControlType
	idleEnabled map[string]*atomic.Bool

	device Device
	ff     *ffConsumer
}

// Device is the kernel-facing half of a virtual joystick: the uinput
// handle. It is satisfied by the real Linux implementation in
// uinput_linux.go; tests substitute a fake.
type Device interface {
	EmitKey(code uint16, value int32) error
	EmitAbs(code uint16, value int32) error
	// FFEvents returns a channel of raw force-feedback control events read
	// from the kernel side of the uinput device; closed when the device is
	// torn down.
	FFEvents() <-chan FFKernelEvent
	RespondFFUpload(requestID int16, effectID int16, retval int32, level int16, isConstant bool) error
	RespondFFErase(requestID int16, retval int32) error
	Close() error
}

// NewControlSurface builds a ControlSurface backed by the given Device,
// declaring the given controls with their kernel-side initial values.
func NewControlSurface(name string, device Device, controls map[string]controltype.ControlType, initial map[string]int32, ffEnabled bool) *ControlSurface {
	cs := &ControlSurface{
		Name:        name,
		lastValue:   make(map[string]int32, len(controls)),
		controlType: make(map[string]controltype.ControlType, len(controls)),
		idleEnabled: make(map[string]*atomic.Bool, len(controls)),
		device:      device,
	}
	for name, ct := range controls {
		cs.controlType[name] = ct
		cs.lastValue[name] = initial[name]
		cs.idleEnabled[name] = &atomic.Bool{}
	}
	if ffEnabled {
		cs.ff = newFFConsumer(device)
		go cs.ff.run()
	}
	return cs
}

// Set translates value per the control's type (button: non-zero maps to 1;
// absolute: rounded to int32) and emits the corresponding kernel event,
// updating the last-committed value. silent only affects logging done by
// callers; Set itself never logs.
func (cs *ControlSurface) Set(control string, value float64, silent bool) error {
	cs.mu.Lock()
	ct, ok := cs.controlType[control]
	cs.mu.Unlock()
	if !ok {
		return fmt.Errorf("joystick: control %q not found on %q", control, cs.Name)
	}

	var committed int32
	if ct.IsButton() {
		if value != 0 {
			committed = 1
		}
		if err := cs.device.EmitKey(ct.Code, committed); err != nil {
			return err
		}
	} else {
		committed = int32(math.Round(value))
		if err := cs.device.EmitAbs(ct.Code, committed); err != nil {
			return err
		}
	}

	cs.mu.Lock()
	cs.lastValue[control] = committed
	cs.mu.Unlock()
	return nil
}

// Get returns the last committed value for control, or 0 if unknown.
func (cs *ControlSurface) Get(control string) int32 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastValue[control]
}

// IdleTickEnabled returns the atomic flag for control, creating a disabled
// one if the control is unrecognized (defensive default; router
// construction should never request an unknown control).
func (cs *ControlSurface) IdleTickEnabled(control string) *atomic.Bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	flag, ok := cs.idleEnabled[control]
	if !ok {
		flag = &atomic.Bool{}
		cs.idleEnabled[control] = flag
	}
	return flag
}

// FFSummaryNorm returns the current playing constant-force level normalized
// by half the representable force range, or 0 if FF is disabled or idle.
func (cs *ControlSurface) FFSummaryNorm() float64 {
	if cs.ff == nil {
		return 0
	}
	return cs.ff.summaryNorm()
}

// Close stops the FF consumer (if any) and releases the kernel device.
func (cs *ControlSurface) Close() error {
	if cs.ff != nil {
		cs.ff.Stop()
	}
	return cs.device.Close()
}
