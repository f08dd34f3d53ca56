// Package engine runs the single loop described in component design 4.7:
// it multiplexes MIDI, mouse and idle-tick input over one goroutine,
// threads each event through the transformation pipeline and writes the
// result to the destination virtual joystick, all without a lock around
// the runtime state table.
package engine

import (
	"context"
	"log"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/wheelcraft/wheelcraft/internal/config"
	"github.com/wheelcraft/wheelcraft/internal/devicewatch"
	"github.com/wheelcraft/wheelcraft/internal/joystick"
	"github.com/wheelcraft/wheelcraft/internal/midi"
	"github.com/wheelcraft/wheelcraft/internal/mouseinput"
	"github.com/wheelcraft/wheelcraft/internal/pipeline"
	"github.com/wheelcraft/wheelcraft/internal/resolved"
	"github.com/wheelcraft/wheelcraft/internal/router"
	"github.com/wheelcraft/wheelcraft/internal/state"
	"github.com/wheelcraft/wheelcraft/internal/statusapi"
)

// SteeringSnapshot is the last published steering position/hold-factor pair,
// read by the overlay server. Values are normalized to [-1,1] and [0,1]
// respectively.
type SteeringSnapshot struct {
	Position   atomic.Int64 // position*1e6, fixed point, since atomic has no float64
	HoldFactor atomic.Int64 // holdFactor*1e6
}

func (s *SteeringSnapshot) store(position, holdFactor float64) {
	s.Position.Store(int64(position * 1e6))
	s.HoldFactor.Store(int64(holdFactor * 1e6))
}

// Load returns the last published (position, holdFactor) pair.
func (s *SteeringSnapshot) Load() (float64, float64) {
	return float64(s.Position.Load()) / 1e6, float64(s.HoldFactor.Load()) / 1e6
}

// Engine owns one running instance of the mapping pipeline: its device
// readers, its virtual joysticks and the runtime state table every
// stateful step reads and writes. Nothing outside Run's goroutine touches
// Store, Router or the readers' channels, matching the concurrency model.
type Engine struct {
	resolved *config.Resolved
	store    *state.Store
	router   *router.Router

	Joysticks *joystick.Manager
	midiMgr   *midi.Manager
	mouseMgr  *mouseinput.Manager
	hotplug   *devicewatch.Watcher

	Steering SteeringSnapshot

	debug bool
}

// New builds an Engine from a resolved configuration. It creates every
// enabled virtual joystick immediately so that force-feedback and
// persistence semantics match a cold start.
func New(r *config.Resolved, debug bool) (*Engine, error) {
	e := &Engine{
		resolved:  r,
		store:     state.NewStore(),
		Joysticks: joystick.NewManager(debug),
		midiMgr:   midi.NewManager(debug),
		mouseMgr:  mouseinput.NewManager(debug),
		debug:     debug,
	}

	for key, js := range r.Joysticks {
		if !js.Enabled {
			continue
		}
		if err := e.Joysticks.CreateIfAbsent(key, js.Config, js.Persistent); err != nil {
			log.Printf("[engine] failed to create joystick %q: %v", key, err)
		}
	}

	return e, nil
}

// Run opens every configured device source, builds the router and blocks,
// dispatching events until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	runtimeNames, err := e.openSources(ctx)
	if err != nil {
		return err
	}

	joystickStates := make(map[string]router.JoystickState, len(e.resolved.Joysticks))
	for key, js := range e.resolved.Joysticks {
		joystickStates[key] = router.JoystickState{
			Created: e.Joysticks.Surface(key) != nil,
			Enabled: js.Enabled,
		}
	}
	e.router = router.Build(e.resolved.Mappings, runtimeNames, joystickStates)

	tickRate := e.resolved.TickRateHz
	if tickRate <= 0 {
		tickRate = 100
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	midiCh := e.midiMgr.Messages()
	mouseCh := e.mouseMgr.Events()

	var hotplugCh <-chan devicewatch.Event
	if w, err := devicewatch.NewWatcher(); err != nil {
		log.Printf("[engine] hotplug watcher unavailable, devices must be present at startup: %v", err)
	} else {
		e.hotplug = w
		hotplugCh = w.Start()
	}

	for {
		select {
		case <-ctx.Done():
			e.midiMgr.Stop()
			e.mouseMgr.Stop()
			if e.hotplug != nil {
				e.hotplug.Stop()
			}
			return ctx.Err()

		case msg := <-midiCh:
			e.dispatchMidi(msg)

		case ev := <-mouseCh:
			e.dispatchMouse(ev)

		case hp, ok := <-hotplugCh:
			if !ok {
				hotplugCh = nil
				continue
			}
			if hp.Action != "add" {
				continue
			}
			e.rescanSources(ctx)

		case now := <-ticker.C:
			e.runIdleTicks(now)
		}
	}
}

// rescanSources re-opens any configured device whose matching hardware
// showed up after startup and rebuilds the router so newly plugged MIDI
// controllers and mice start routing without a restart. Opening an
// already-open device is a no-op in both midi.Manager and mouseinput.Manager.
func (e *Engine) rescanSources(ctx context.Context) {
	runtimeNames, err := e.openSources(ctx)
	if err != nil {
		log.Printf("[engine] rescanning devices after hotplug event: %v", err)
		return
	}

	joystickStates := make(map[string]router.JoystickState, len(e.resolved.Joysticks))
	for key, js := range e.resolved.Joysticks {
		joystickStates[key] = router.JoystickState{
			Created: e.Joysticks.Surface(key) != nil,
			Enabled: js.Enabled,
		}
	}
	e.router = router.Build(e.resolved.Mappings, runtimeNames, joystickStates)
}

// openSources enumerates and opens every configured MIDI and mouse device,
// returning the configured-device-key -> runtime-source-name table the
// router needs. A mouse device's runtime name is its configured key itself
// (mouseinput.Manager is opened by key); a MIDI device's runtime name is
// the ALSA port name a regex matched, since one regex can match several
// physical ports.
func (e *Engine) openSources(ctx context.Context) (map[string][]string, error) {
	runtimeNames := make(map[string][]string)

	midiDevices, err := midi.EnumerateDevices()
	if err != nil {
		log.Printf("[engine] midi enumeration failed: %v", err)
	}
	for _, d := range e.resolved.MidiDevices {
		re, err := regexp.Compile(d.NameRegex)
		if err != nil {
			log.Printf("[engine] midi device %q: bad name_regex %q: %v", d.Key, d.NameRegex, err)
			continue
		}
		matches := midi.MatchDevices(re, midiDevices)
		for _, name := range matches {
			if err := e.midiMgr.Open(ctx, name); err != nil {
				log.Printf("[engine] opening midi device %q: %v", name, err)
				continue
			}
			runtimeNames[d.Key] = append(runtimeNames[d.Key], name)
		}
	}

	mouseDevices, err := mouseinput.EnumerateDevices()
	if err != nil {
		log.Printf("[engine] mouse enumeration failed: %v", err)
	}
	for _, d := range e.resolved.MouseDevices {
		re, err := regexp.Compile(d.NameRegex)
		if err != nil {
			log.Printf("[engine] mouse device %q: bad name_regex %q: %v", d.Key, d.NameRegex, err)
			continue
		}
		for _, info := range mouseDevices {
			if !re.MatchString(info.Name) {
				continue
			}
			if err := e.mouseMgr.Open(ctx, d.Key, info); err != nil {
				log.Printf("[engine] opening mouse device %q: %v", d.Key, err)
				continue
			}
			runtimeNames[d.Key] = append(runtimeNames[d.Key], d.Key)
			break
		}
	}

	return runtimeNames, nil
}

func (e *Engine) dispatchMidi(msg midi.Message) {
	for _, m := range e.router.MappingsFor(msg.DeviceName) {
		ref, ok := m.Source.Control.(resolved.MidiControlRef)
		if !ok || !midi.Matches(msg, ref.Spec) {
			continue
		}
		e.runMapping(m, float64(midi.Value(msg)), false)
	}
}

func (e *Engine) dispatchMouse(ev mouseinput.Event) {
	for _, m := range e.router.MappingsFor(ev.DeviceKey) {
		ref, ok := m.Source.Control.(resolved.MouseControlRef)
		if !ok || ref.Type != ev.ControlType {
			continue
		}
		e.runMapping(m, float64(ev.Value), false)
	}
}

func (e *Engine) runIdleTicks(now time.Time) {
	for _, m := range e.router.IdleTickMappings {
		if !e.Joysticks.IdleTickEnabled(m.Destination.JoystickKey, m.Destination.ControlKey) {
			continue
		}
		e.runMappingAt(m, 0, true, now)
	}
}

func (e *Engine) runMapping(m *resolved.ResolvedMapping, raw float64, idle bool) {
	e.runMappingAt(m, raw, idle, time.Now())
}

func (e *Engine) runMappingAt(m *resolved.ResolvedMapping, raw float64, idle bool, now time.Time) {
	in := pipeline.Input{RawValue: raw, IsIdleTick: idle, Now: now}
	value := pipeline.Execute(m, in, e.store, e.Joysticks)
	if err := e.Joysticks.Set(m.Destination.JoystickKey, m.Destination.ControlKey, value, false); err != nil {
		log.Printf("[engine] writing %s/%s: %v", m.Destination.JoystickKey, m.Destination.ControlKey, err)
	}

	if !idle && m.HasTimeDrivenStep() {
		e.Joysticks.EnableIdleTick(m.Destination.JoystickKey, m.Destination.ControlKey)
	}

	for _, step := range m.Steps {
		if s, ok := step.(resolved.SteeringStep); ok {
			st := e.store.Steering(s.ID)
			e.Steering.store(st.LastP, st.LastHoldFactor)
		}
	}
}

// Stop tears down every owned resource. fullShutdown controls whether
// persistent joysticks survive, matching joystick.Manager.Stop.
func (e *Engine) Stop(fullShutdown bool) {
	e.midiMgr.Stop()
	e.mouseMgr.Stop()
	e.Joysticks.Stop(fullShutdown)
}

// MappingCount satisfies statusapi.StatusProvider.
func (e *Engine) MappingCount() int {
	return len(e.resolved.Mappings)
}

// JoystickStatuses satisfies statusapi.StatusProvider, reporting every
// configured joystick's creation state and, for every one carrying a
// steering mapping, the last published steering snapshot.
func (e *Engine) JoystickStatuses() []statusapi.JoystickStatus {
	position, holdFactor := e.Steering.Load()
	out := make([]statusapi.JoystickStatus, 0, len(e.resolved.Joysticks))
	for key, js := range e.resolved.Joysticks {
		st := statusapi.JoystickStatus{
			Key:     key,
			Created: e.Joysticks.Surface(key) != nil,
			Enabled: js.Enabled,
		}
		if e.hasSteeringMapping(key) {
			st.Position = position
			st.HoldFactor = holdFactor
		}
		out = append(out, st)
	}
	return out
}

func (e *Engine) hasSteeringMapping(joystickKey string) bool {
	for _, m := range e.resolved.Mappings {
		if m.Destination.JoystickKey != joystickKey {
			continue
		}
		for _, step := range m.Steps {
			if _, ok := step.(resolved.SteeringStep); ok {
				return true
			}
		}
	}
	return false
}
