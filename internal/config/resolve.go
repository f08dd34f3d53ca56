package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wheelcraft/wheelcraft/internal/controltype"
	"github.com/wheelcraft/wheelcraft/internal/joystick"
	"github.com/wheelcraft/wheelcraft/internal/numeric"
	"github.com/wheelcraft/wheelcraft/internal/resolved"
)

// Resolved is the fully-resolved output of Resolve: ready to hand to
// router.Build and the joystick manager without any further config lookups.
type Resolved struct {
	TickRateHz   int
	HotReloadOn  bool
	Overlay      OverlayConfig
	StatusAPI    StatusAPIConfig
	MidiDevices  []MidiDeviceConfig
	MouseDevices []MouseDeviceConfig
	Joysticks    map[string]joystickResolved
	Mappings     []*resolved.ResolvedMapping
}

// HotReload reports whether the config hot-reload watcher should run;
// global.hot_reload defaults to true when unset.
func (r *Resolved) HotReload() bool {
	return r.HotReloadOn
}

type joystickResolved struct {
	Config     joystick.JoystickConfig
	Persistent bool
	Enabled    bool
}

// Resolve converts a decoded Config into the runtime model, assigning
// runtime-state ids from ids for every stateful step it encounters.
func Resolve(cfg *Config, ids *resolved.IDAllocator) (*Resolved, error) {
	hotReload := true
	if cfg.Global.HotReload != nil {
		hotReload = *cfg.Global.HotReload
	}
	out := &Resolved{
		TickRateHz:   clampTickRate(cfg.Global.TickRateHz),
		HotReloadOn:  hotReload,
		Overlay:      cfg.Global.Overlay,
		StatusAPI:    cfg.Global.StatusAPI,
		MidiDevices:  cfg.MidiDevices,
		MouseDevices: cfg.MouseDevices,
		Joysticks:    make(map[string]joystickResolved),
	}

	for _, jsCfg := range cfg.VirtualJoysticks {
		resolvedJs, err := resolveJoystick(jsCfg)
		if err != nil {
			return nil, fmt.Errorf("config: virtual_joysticks[%s]: %w", jsCfg.Key, err)
		}
		out.Joysticks[jsCfg.Key] = resolvedJs
	}

	for i, mCfg := range cfg.Mappings {
		m, err := resolveMapping(mCfg, ids, out.Joysticks)
		if err != nil {
			return nil, fmt.Errorf("config: mappings[%d] %q: %w", i, mCfg.Name, err)
		}
		out.Mappings = append(out.Mappings, m)
	}

	if err := validateReferences(cfg, out); err != nil {
		return nil, err
	}
	return out, nil
}

func clampTickRate(hz int) int {
	if hz < 10 {
		return 100
	}
	if hz > 10000 {
		return 10000
	}
	return hz
}

func resolveJoystick(cfg VirtualJoystickConfig) (joystickResolved, error) {
	controls := make(map[string]controltype.ControlType)
	ranges := make(map[string]joystick.AbsAxisSetup)
	initial := make(map[string]int32)

	for name, entry := range cfg.Controls {
		ct, err := controltype.Parse(entry.Type)
		if err != nil {
			return joystickResolved{}, fmt.Errorf("control %q: %w", name, err)
		}
		controls[name] = ct

		if ct.IsAbsolute() {
			axis := joystick.AbsAxisSetup{Code: ct.Code}
			axis.Min = int32(deref(entry.Min, 0))
			axis.Max = int32(deref(entry.Max, 255))
			axis.Fuzz = int32(deref(entry.Fuzz, 0))
			axis.Flat = int32(deref(entry.Flat, 0))
			axis.Resolution = int32(deref(entry.Resolution, 1))
			axis.Initial = int32(deref(entry.Initial, (axis.Min+axis.Max)/2))
			ranges[name] = axis
			initial[name] = axis.Initial
		} else if entry.Initial != nil {
			initial[name] = int32(*entry.Initial)
		}
	}

	enabled := true
	if cfg.Enabled != nil {
		enabled = *cfg.Enabled
	}

	return joystickResolved{
		Config: joystick.JoystickConfig{
			Name:      cfg.Name,
			BusType:   cfg.Bus,
			Vendor:    cfg.Vendor,
			Product:   cfg.Product,
			Version:   cfg.Version,
			FFEnabled: cfg.FF.Enabled,
			Controls:  controls,
			Ranges:    ranges,
			Initial:   initial,
		},
		Persistent: cfg.Persistent,
		Enabled:    enabled,
	}, nil
}

func deref(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func resolveMapping(cfg MappingConfig, ids *resolved.IDAllocator, joysticks map[string]joystickResolved) (*resolved.ResolvedMapping, error) {
	enabled := true
	if cfg.Enabled != nil {
		enabled = *cfg.Enabled
	}

	src, err := resolveSource(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	dest, err := resolveDestination(cfg.Destination, joysticks)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	steps := make([]resolved.Step, 0, len(cfg.Steps))
	for i, stepCfg := range cfg.Steps {
		step, err := resolveStep(stepCfg, ids)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, stepCfg.Type, err)
		}
		steps = append(steps, step)
	}

	m := &resolved.ResolvedMapping{
		Name:        cfg.Name,
		Enabled:     enabled,
		Source:      src,
		Destination: dest,
		Steps:       steps,
	}
	m.IdleTickRequired = m.HasTimeDrivenStep()
	return m, nil
}

func resolveDestination(cfg DestinationConfig, joysticks map[string]joystickResolved) (resolved.Destination, error) {
	js, ok := joysticks[cfg.Joystick]
	if !ok {
		return resolved.Destination{}, fmt.Errorf("unknown joystick %q", cfg.Joystick)
	}
	ct, ok := js.Config.Controls[cfg.Control]
	if !ok {
		return resolved.Destination{}, fmt.Errorf("joystick %q has no control %q", cfg.Joystick, cfg.Control)
	}

	dest := resolved.Destination{
		JoystickKey: cfg.Joystick,
		ControlKey:  cfg.Control,
		Type:        ct,
		Range:       numeric.NewInterval(0, 255),
	}
	if axis, ok := js.Config.Ranges[cfg.Control]; ok {
		dest.Range = numeric.NewInterval(int(axis.Min), int(axis.Max))
	}
	if v, ok := js.Config.Initial[cfg.Control]; ok {
		dest.InitialValue = int(v)
	} else {
		dest.InitialValue = dest.Range.Midpoint()
	}
	return dest, nil
}

func resolveSource(cfg SourceConfig) (resolved.Source, error) {
	srcRange := numeric.NewInterval(0, 127)
	if cfg.RangeFrom != nil && cfg.RangeTo != nil {
		srcRange = numeric.NewInterval(*cfg.RangeFrom, *cfg.RangeTo)
	}

	switch {
	case cfg.Midi != nil:
		spec, err := resolveMidiSpec(*cfg.Midi)
		if err != nil {
			return resolved.Source{}, err
		}
		return resolved.Source{
			DeviceKey:  cfg.Device,
			ControlKey: midiControlKey(*cfg.Midi),
			Control:    resolved.MidiControlRef{Spec: spec},
			Range:      srcRange,
		}, nil
	case cfg.MouseControl != "":
		ct, err := controltype.Parse(cfg.MouseControl)
		if err != nil {
			return resolved.Source{}, err
		}
		return resolved.Source{
			DeviceKey:  cfg.Device,
			ControlKey: cfg.MouseControl,
			Control:    resolved.MouseControlRef{Type: ct},
			Range:      srcRange,
		}, nil
	default:
		return resolved.Source{}, fmt.Errorf("neither midi nor mouse_control configured")
	}
}

func midiControlKey(cfg MidiMessageEntry) string {
	return cfg.Type + ":" + cfg.Channel + ":" + cfg.Number
}

func resolveMidiSpec(cfg MidiMessageEntry) (resolved.MidiMessageSpec, error) {
	msgType, err := parseMidiType(cfg.Type)
	if err != nil {
		return resolved.MidiMessageSpec{}, err
	}
	channel, err := parseMidiChannel(cfg.Channel)
	if err != nil {
		return resolved.MidiMessageSpec{}, err
	}
	number, err := parseMidiNumber(cfg.Number)
	if err != nil {
		return resolved.MidiMessageSpec{}, err
	}
	return resolved.MidiMessageSpec{Type: msgType, Channel: channel, Number: number}, nil
}

func parseMidiType(s string) (resolved.MidiMessageType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "note":
		return resolved.MidiNote, nil
	case "note_on":
		return resolved.MidiNoteOn, nil
	case "note_off":
		return resolved.MidiNoteOff, nil
	case "control_change", "cc":
		return resolved.MidiControlChange, nil
	case "pitch_wheel", "pitchwheel":
		return resolved.MidiPitchWheel, nil
	case "aftertouch":
		return resolved.MidiAftertouch, nil
	case "program_change":
		return resolved.MidiProgramChange, nil
	default:
		return 0, fmt.Errorf("unknown midi message type %q", s)
	}
}

func parseMidiChannel(s string) (resolved.MidiChannel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "any" {
		return resolved.MidiChannel{Any: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 15 {
		return resolved.MidiChannel{}, fmt.Errorf("invalid midi channel %q", s)
	}
	return resolved.MidiChannel{Number: uint8(n)}, nil
}

func parseMidiNumber(s string) (*resolved.MidiNumber, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.ToLower(s) == "any" {
		return &resolved.MidiNumber{Kind: resolved.MidiNumberAny}, nil
	}
	fields := strings.Split(s, ",")
	if len(fields) == 1 {
		n, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid midi number %q", s)
		}
		return &resolved.MidiNumber{Kind: resolved.MidiNumberSingle, Single: uint8(n)}, nil
	}
	numbers := make([]uint8, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid midi number list %q", s)
		}
		numbers = append(numbers, uint8(n))
	}
	return &resolved.MidiNumber{Kind: resolved.MidiNumberMultiple, Numbers: numbers}, nil
}

// validateReferences checks every mapping's device/joystick/control
// references resolve to something declared elsewhere in the config,
// surfacing a "dangling reference" configuration error per §7.1 rather than
// letting it silently route nowhere.
func validateReferences(cfg *Config, out *Resolved) error {
	knownMidi := map[string]bool{}
	for _, d := range cfg.MidiDevices {
		knownMidi[d.Key] = true
	}
	knownMouse := map[string]bool{}
	for _, d := range cfg.MouseDevices {
		knownMouse[d.Key] = true
	}

	for i, m := range out.Mappings {
		switch m.Source.Control.(type) {
		case resolved.MidiControlRef:
			if !knownMidi[m.Source.DeviceKey] {
				return fmt.Errorf("config: mappings[%d]: unknown midi device %q", i, m.Source.DeviceKey)
			}
		case resolved.MouseControlRef:
			if !knownMouse[m.Source.DeviceKey] {
				return fmt.Errorf("config: mappings[%d]: unknown mouse device %q", i, m.Source.DeviceKey)
			}
		}
		if _, ok := out.Joysticks[m.Destination.JoystickKey]; !ok {
			return fmt.Errorf("config: mappings[%d]: unknown joystick %q", i, m.Destination.JoystickKey)
		}
	}
	return nil
}
