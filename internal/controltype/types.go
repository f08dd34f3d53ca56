// Package controltype implements the flat tagged enum over absolute axes,
// relative axes and button codes that both mouse input and virtual-joystick
// output are expressed in terms of.
package controltype

import (
	"fmt"
	"strings"
)

// Kind distinguishes the three disjoint evdev-derived kinds plus the two
// placeholders for MIDI-originated virtual controls and unrecognized events.
type Kind uint8

const (
	KindAbsolute Kind = iota
	KindRelative
	KindButton
	KindMidi
	KindUnhandled
)

func (k Kind) String() string {
	switch k {
	case KindAbsolute:
		return "absolute"
	case KindRelative:
		return "relative"
	case KindButton:
		return "button"
	case KindMidi:
		return "midi"
	default:
		return "unhandled"
	}
}

// ControlType is a single round-trippable control identity: a Kind plus the
// evdev numeric code it carries (zero for Midi/Unhandled) and its canonical
// upper-snake-case name.
type ControlType struct {
	Kind Kind
	Code uint16
	Name string
}

// Unhandled is the ControlType returned whenever an evdev event does not
// correspond to a control the rest of the system understands.
var Unhandled = ControlType{Kind: KindUnhandled, Name: "UNHANDLED"}

// Midi is the placeholder kind for controls sourced purely from MIDI, which
// carry no evdev code of their own.
var Midi = ControlType{Kind: KindMidi, Name: "MIDI"}

// IsButton, IsAbsolute, IsRelative, IsUnhandled report the control's Kind.
func (c ControlType) IsButton() bool    { return c.Kind == KindButton }
func (c ControlType) IsAbsolute() bool  { return c.Kind == KindAbsolute }
func (c ControlType) IsRelative() bool  { return c.Kind == KindRelative }
func (c ControlType) IsUnhandled() bool { return c.Kind == KindUnhandled }

func (c ControlType) String() string { return c.Name }

const (
	evAbs = 0x03
	evRel = 0x02
	evKey = 0x01
)

type codeEntry struct {
	kind Kind
	code uint16
	name string
}

// registry enumerates the evdev absolute axes, relative axes and button
// codes this system round-trips. It covers the axes and buttons a
// synthetic joystick plausibly exposes plus the relative axes a mouse
// plausibly emits; it is not the full evdev code space.
var registry = []codeEntry{
	{KindAbsolute, 0x00, "ABS_X"},
	{KindAbsolute, 0x01, "ABS_Y"},
	{KindAbsolute, 0x02, "ABS_Z"},
	{KindAbsolute, 0x03, "ABS_RX"},
	{KindAbsolute, 0x04, "ABS_RY"},
	{KindAbsolute, 0x05, "ABS_RZ"},
	{KindAbsolute, 0x06, "ABS_THROTTLE"},
	{KindAbsolute, 0x07, "ABS_RUDDER"},
	{KindAbsolute, 0x08, "ABS_WHEEL"},
	{KindAbsolute, 0x09, "ABS_GAS"},
	{KindAbsolute, 0x0a, "ABS_BRAKE"},
	{KindAbsolute, 0x10, "ABS_HAT0X"},
	{KindAbsolute, 0x11, "ABS_HAT0Y"},
	{KindAbsolute, 0x12, "ABS_HAT1X"},
	{KindAbsolute, 0x13, "ABS_HAT1Y"},

	{KindRelative, 0x00, "REL_X"},
	{KindRelative, 0x01, "REL_Y"},
	{KindRelative, 0x02, "REL_Z"},
	{KindRelative, 0x06, "REL_HWHEEL"},
	{KindRelative, 0x08, "REL_WHEEL"},
	{KindRelative, 0x07, "REL_DIAL"},

	{KindButton, 0x120, "BTN_TRIGGER"},
	{KindButton, 0x121, "BTN_THUMB"},
	{KindButton, 0x122, "BTN_THUMB2"},
	{KindButton, 0x123, "BTN_TOP"},
	{KindButton, 0x124, "BTN_TOP2"},
	{KindButton, 0x125, "BTN_PINKIE"},
	{KindButton, 0x126, "BTN_BASE"},
	{KindButton, 0x127, "BTN_BASE2"},
	{KindButton, 0x128, "BTN_BASE3"},
	{KindButton, 0x129, "BTN_BASE4"},
	{KindButton, 0x12a, "BTN_BASE5"},
	{KindButton, 0x12b, "BTN_BASE6"},
	{KindButton, 0x12f, "BTN_DEAD"},
	{KindButton, 0x130, "BTN_SOUTH"},
	{KindButton, 0x131, "BTN_EAST"},
	{KindButton, 0x132, "BTN_C"},
	{KindButton, 0x133, "BTN_NORTH"},
	{KindButton, 0x134, "BTN_WEST"},
	{KindButton, 0x135, "BTN_Z"},
	{KindButton, 0x136, "BTN_TL"},
	{KindButton, 0x137, "BTN_TR"},
	{KindButton, 0x138, "BTN_TL2"},
	{KindButton, 0x139, "BTN_TR2"},
	{KindButton, 0x13a, "BTN_SELECT"},
	{KindButton, 0x13b, "BTN_START"},
	{KindButton, 0x13c, "BTN_MODE"},
	{KindButton, 0x13d, "BTN_THUMBL"},
	{KindButton, 0x13e, "BTN_THUMBR"},

	{KindButton, 0x110, "BTN_LEFT"},
	{KindButton, 0x111, "BTN_RIGHT"},
	{KindButton, 0x112, "BTN_MIDDLE"},
}

var byKindCode = map[Kind]map[uint16]string{}
var byName = map[string]codeEntry{}

func init() {
	for _, e := range registry {
		if byKindCode[e.kind] == nil {
			byKindCode[e.kind] = map[uint16]string{}
		}
		byKindCode[e.kind][e.code] = e.name
		byName[e.name] = e
	}
}

// FromEvdev builds a ControlType from an evdev event type and code; evtype
// values follow the kernel's EV_ABS/EV_REL/EV_KEY constants. Unrecognized
// combinations return Unhandled.
func FromEvdev(evtype uint16, code uint16) ControlType {
	var kind Kind
	switch evtype {
	case evAbs:
		kind = KindAbsolute
	case evRel:
		kind = KindRelative
	case evKey:
		kind = KindButton
	default:
		return Unhandled
	}
	name, ok := byKindCode[kind][code]
	if !ok {
		return Unhandled
	}
	return ControlType{Kind: kind, Code: code, Name: name}
}

// EvdevType returns the evdev EV_* type this control's Kind maps to.
func (c ControlType) EvdevType() (uint16, error) {
	switch c.Kind {
	case KindAbsolute:
		return evAbs, nil
	case KindRelative:
		return evRel, nil
	case KindButton:
		return evKey, nil
	default:
		return 0, fmt.Errorf("controltype: %s has no evdev event type", c.Name)
	}
}

// Parse resolves a canonical upper-snake-case name (e.g. "ABS_X", "BTN_SOUTH")
// back to its ControlType. Unknown names return an error rather than
// Unhandled, since a config referencing an unknown name is a configuration
// mistake, not a runtime event to be shrugged off.
func Parse(name string) (ControlType, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "MIDI" {
		return Midi, nil
	}
	if name == "UNHANDLED" {
		return Unhandled, nil
	}
	e, ok := byName[name]
	if !ok {
		return ControlType{}, fmt.Errorf("controltype: unknown control name %q", name)
	}
	return ControlType{Kind: e.kind, Code: e.code, Name: e.name}, nil
}
