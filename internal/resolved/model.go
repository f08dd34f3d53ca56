package resolved

import (
	"github.com/wheelcraft/wheelcraft/internal/controltype"
	"github.com/wheelcraft/wheelcraft/internal/numeric"
)

// MidiChannel is either "any" or a specific 0-15 channel number.
type MidiChannel struct {
	Any    bool
	Number uint8
}

// MidiNumberKind distinguishes the three shapes a MIDI note/CC number filter
// can take in configuration.
type MidiNumberKind uint8

const (
	MidiNumberSingle MidiNumberKind = iota
	MidiNumberMultiple
	MidiNumberAny
)

// MidiNumber filters incoming note/control/program numbers.
type MidiNumber struct {
	Kind    MidiNumberKind
	Single  uint8
	Numbers []uint8
}

// Matches reports whether n accepts the given value.
func (n MidiNumber) Matches(v uint8) bool {
	switch n.Kind {
	case MidiNumberAny:
		return true
	case MidiNumberSingle:
		return v == n.Single
	case MidiNumberMultiple:
		for _, x := range n.Numbers {
			if x == v {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// MidiMessageType enumerates the message kinds the router matches on.
type MidiMessageType uint8

const (
	MidiNote MidiMessageType = iota
	MidiNoteOn
	MidiNoteOff
	MidiControlChange
	MidiPitchWheel
	MidiAftertouch
	MidiProgramChange
)

// MidiMessageSpec is the configured filter a mapping's MIDI source matches
// incoming messages against.
type MidiMessageSpec struct {
	Type    MidiMessageType
	Channel MidiChannel
	Number  *MidiNumber
}

// ControlRef is the tagged union over a mapping source's origin: a MIDI
// message spec, or a mouse control type.
type ControlRef interface {
	isControlRef()
}

// MidiControlRef sources a mapping from MIDI messages matching Spec.
type MidiControlRef struct {
	Spec MidiMessageSpec
}

func (MidiControlRef) isControlRef() {}

// MouseControlRef sources a mapping from mouse events of the given
// controltype.
type MouseControlRef struct {
	Type controltype.ControlType
}

func (MouseControlRef) isControlRef() {}

// Source identifies a mapping's input: a runtime device key, a control key
// (as referenced in config) and the declared range values are interpreted
// against; range defaults to [0,127] when unspecified.
type Source struct {
	DeviceKey  string
	ControlKey string
	Control    ControlRef
	Range      numeric.Interval[int]
}

// Destination identifies a mapping's output control on a virtual joystick.
// The actual last-committed-value and idle-tick-enabled atomics for this
// control live on the joystick control surface, looked up by
// (JoystickKey, ControlKey) at run time; this record only carries the
// declared shape needed by the pipeline to clamp and remap.
type Destination struct {
	JoystickKey  string
	ControlKey   string
	Type         controltype.ControlType
	Range        numeric.Interval[int]
	InitialValue int
}

// HoldFactor is either a constant in [0,1] or a cross-control reference
// resolved through the joystick control surface at read time.
type HoldFactor interface {
	isHoldFactor()
}

// HoldFactorValue is a constant hold factor.
type HoldFactorValue float64

func (HoldFactorValue) isHoldFactor() {}

// HoldFactorReference reads a cross-control value and maps it from
// SourceRange onto [0,1].
type HoldFactorReference struct {
	DeviceKey   string
	ControlKey  string
	SourceRange numeric.Interval[int]
}

func (HoldFactorReference) isHoldFactor() {}

// Step is one tagged variant of the transformation pipeline. Stateful steps
// report a non-zero StateID identifying their slot in the engine's runtime
// state tables; stateless steps report 0.
type Step interface {
	StateID() StateID
}

// InvertStep negates a relative value, or reflects an absolute one around
// its current range's midpoint.
type InvertStep struct {
	IsRelative bool
}

func (InvertStep) StateID() StateID { return 0 }

// IntegrateStep accumulates deltas into a running position within Range,
// defaulting to [0,750]. It is a no-op on idle ticks.
type IntegrateStep struct {
	Range        numeric.Interval[int]
	DeadzoneNorm float64
	ID           StateID
}

func (s IntegrateStep) StateID() StateID { return s.ID }

// ClampStep restricts the value to [From,To] (falling back to the current
// range's endpoints when unset) and optionally adopts that as the new
// current range.
type ClampStep struct {
	From          *int
	To            *int
	OverrideRange bool
}

func (ClampStep) StateID() StateID { return 0 }

// EmaFilterStep runs an exponential moving average; OnIdle controls whether
// its output (not its state advance) is suppressed on idle ticks.
type EmaFilterStep struct {
	Tau    float64
	OnIdle bool
	ID     StateID
}

func (s EmaFilterStep) StateID() StateID { return s.ID }

// LowPassStep is the low-pass filter counterpart to EmaFilterStep, with an
// independent runtime-state id and its own default time constant (0.1).
type LowPassStep struct {
	TimeConstant float64
	OnIdle       bool
	ID           StateID
}

func (s LowPassStep) StateID() StateID { return s.ID }

// HighPassStep is the high-pass complement to LowPassStep, implementing this
// repository's resolution of the upstream HighPass open question: the
// standard first-order formula sharing low-pass's alpha.
type HighPassStep struct {
	TimeConstant float64
	OnIdle       bool
	ID           StateID
}

func (s HighPassStep) StateID() StateID { return s.ID }

// curveStepCommon is embedded by the stateless parametric curve steps; all
// of them carry only an OnIdle suppression flag besides their own
// parameters.
type curveStepCommon struct {
	OnIdle bool
}

func (curveStepCommon) StateID() StateID { return 0 }

// LinearStep applies slope*(x-shiftX)+shiftY.
type LinearStep struct {
	curveStepCommon
	Slope, ShiftX, ShiftY float64
}

// QuadraticStep applies x^2.
type QuadraticStep struct{ curveStepCommon }

// CubicStep applies x^3.
type CubicStep struct{ curveStepCommon }

// SmoothstepStep applies 3x^2-2x^3.
type SmoothstepStep struct{ curveStepCommon }

// SCurveStep applies the tanh-based s-curve with the given steepness.
type SCurveStep struct {
	curveStepCommon
	Steepness float64
}

// ExponentialStep applies the normalized exponential curve with the given
// base.
type ExponentialStep struct {
	curveStepCommon
	Base float64
}

// PowerStep applies sign(x)*|x|^p.
type PowerStep struct {
	curveStepCommon
	P float64
}

// SymmetricPowerStep applies Power around the interval's midpoint.
type SymmetricPowerStep struct {
	curveStepCommon
	P float64
}

// ForceFeedback is the steering step's coupling to the destination
// joystick's uploaded constant-force effect.
type ForceFeedback struct {
	Enabled bool
	Scale   float64
	Invert  bool
}

// SteeringStep is the incremental pointer-style integrator described in
// component design 4.4.
type SteeringStep struct {
	CountsToLock      float64
	SmoothingAlpha    float64
	DeadzoneCounts    float64 // accepted and persisted, not consulted (see DESIGN.md)
	SymmetricPower    *float64
	EmaTau            *float64
	HoldFactor        HoldFactor
	FF                ForceFeedback
	Influence         float64
	AutoCenterHalflife float64
	ID                StateID // last-tick timestamp state
	EmaID             StateID // dedicated sub-filter state, 0 if no EMA configured
}

func (s SteeringStep) StateID() StateID { return s.ID }

// PedalSmootherStep is the rise/fall rate-limited follower described in
// component design 4.5.
type PedalSmootherStep struct {
	RiseRate  float64
	FallRate  float64
	FallDelay float64
	Alpha     float64
	Gentling  HoldFactor
	ID        StateID
}

func (s PedalSmootherStep) StateID() StateID { return s.ID }

// ResolvedMapping is one fully-resolved entry from the configuration's
// mappings list: immutable for the lifetime of an engine instance.
type ResolvedMapping struct {
	Name             string
	Enabled          bool
	Source           Source
	Destination      Destination
	Steps            []Step
	IdleTickRequired bool
}

// HasTimeDrivenStep reports whether any step in the mapping is a Steering or
// PedalSmoother step - the static classification this repository layers on
// top of the empirical idle-tick-enabled flag (see SPEC_FULL.md).
func (m ResolvedMapping) HasTimeDrivenStep() bool {
	for _, s := range m.Steps {
		switch s.(type) {
		case SteeringStep, PedalSmootherStep:
			return true
		}
	}
	return false
}
