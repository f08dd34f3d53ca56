package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wheelcraft/wheelcraft/internal/resolved"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadResolvesIncludeAndPredefineShorthand(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "predefines.yaml", `
midi:
  mod_wheel:
    type: control_change
    channel: any
    number: "1"
joystick:
  throttle_axis:
    type: ABS_RZ
    min: 0
    max: 255
`)

	writeFile(t, dir, "wheel.yaml", `
key: wheel
name: synthetic wheel
bus: 3
vendor: 4660
product: 1
version: 1
controls:
  wheel: throttle_axis
`)

	mainPath := writeFile(t, dir, "main.yaml", `
global:
  tick_rate_hz: 100
midi_devices:
  - key: pedals
    name_regex: "Pedals"
mouse_devices: []
virtual_joysticks:
  - _include: wheel.yaml
mappings:
  - name: throttle
    source:
      device: pedals
      midi: mod_wheel
    destination:
      joystick: wheel
      control: wheel
    steps:
      - type: clamp
        from: 0
        to: 255
`)

	cfg, err := Load(mainPath, filepath.Join(dir, "predefines.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.VirtualJoysticks) != 1 {
		t.Fatalf("expected 1 virtual joystick after _include, got %d", len(cfg.VirtualJoysticks))
	}
	js := cfg.VirtualJoysticks[0]
	if js.Key != "wheel" {
		t.Fatalf("expected included joystick key 'wheel', got %q", js.Key)
	}
	entry, ok := js.Controls["wheel"]
	if !ok {
		t.Fatalf("expected wheel control to be present")
	}
	if entry.Type != "ABS_RZ" {
		t.Fatalf("expected predefine-expanded type ABS_RZ, got %q", entry.Type)
	}

	m := cfg.Mappings[0]
	if m.Source.Midi == nil || m.Source.Midi.Type != "control_change" {
		t.Fatalf("expected predefine-expanded midi source, got %+v", m.Source.Midi)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeFile(t, dir, "main.yaml", `
global:
  tick_rate_hz: 100
mappings:
  - name: bogus
    bogus_field: true
`)

	if _, err := Load(mainPath, ""); err == nil {
		t.Fatalf("expected an error decoding an unknown field")
	}
}

func TestMergeFromOverridesBaseFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "predefines.yaml", `
joystick:
  base_axis:
    type: ABS_X
    min: 0
    max: 255
    flat: 2
`)
	mainPath := writeFile(t, dir, "main.yaml", `
global:
  tick_rate_hz: 100
virtual_joysticks:
  - key: wheel
    name: wheel
    controls:
      wheel:
        merge_from: base_axis
        max: 1023
`)

	cfg, err := Load(mainPath, filepath.Join(dir, "predefines.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	entry := cfg.VirtualJoysticks[0].Controls["wheel"]
	if entry.Max == nil || *entry.Max != 1023 {
		t.Fatalf("expected merge_from override max=1023, got %+v", entry.Max)
	}
	if entry.Flat == nil || *entry.Flat != 2 {
		t.Fatalf("expected merge_from base flat=2 to survive, got %+v", entry.Flat)
	}
}

func TestResolveBuildsJoysticksAndMappings(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeFile(t, dir, "main.yaml", `
global:
  tick_rate_hz: 50
midi_devices:
  - key: pedals
    name_regex: "Pedals"
virtual_joysticks:
  - key: wheel
    name: wheel
    controls:
      wheel:
        type: ABS_X
        min: 0
        max: 1000
      button1:
        type: BTN_SOUTH
mappings:
  - name: wheel mapping
    source:
      device: pedals
      midi:
        type: control_change
        channel: any
        number: "1"
      range_from: 0
      range_to: 127
    destination:
      joystick: wheel
      control: wheel
    steps:
      - type: integrate
        range: [0, 1000]
      - type: clamp
        from: 0
        to: 1000
`)

	cfg, err := Load(mainPath, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ids := resolved.NewIDAllocator()
	out, err := Resolve(cfg, ids)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	js, ok := out.Joysticks["wheel"]
	if !ok {
		t.Fatalf("expected wheel joystick to resolve")
	}
	if _, ok := js.Config.Ranges["wheel"]; !ok {
		t.Fatalf("expected wheel control to have an abs axis range")
	}
	if ct, ok := js.Config.Controls["button1"]; !ok || ct.IsAbsolute() {
		t.Fatalf("expected button1 to resolve as a non-absolute control, got %+v", ct)
	}

	if len(out.Mappings) != 1 {
		t.Fatalf("expected 1 resolved mapping, got %d", len(out.Mappings))
	}
	mapping := out.Mappings[0]
	if mapping.Destination.JoystickKey != "wheel" || mapping.Destination.ControlKey != "wheel" {
		t.Fatalf("unexpected destination: %+v", mapping.Destination)
	}
	if len(mapping.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(mapping.Steps))
	}
	integrate, ok := mapping.Steps[0].(resolved.IntegrateStep)
	if !ok {
		t.Fatalf("expected first step to be IntegrateStep, got %T", mapping.Steps[0])
	}
	if integrate.ID == 0 {
		t.Fatalf("expected integrate step to have a non-zero state id")
	}
}

func TestResolveRejectsUnknownJoystickReference(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeFile(t, dir, "main.yaml", `
global:
  tick_rate_hz: 100
midi_devices:
  - key: pedals
    name_regex: "Pedals"
mappings:
  - name: dangling
    source:
      device: pedals
      midi:
        type: control_change
        channel: any
        number: "1"
    destination:
      joystick: does_not_exist
      control: wheel
`)

	cfg, err := Load(mainPath, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := Resolve(cfg, resolved.NewIDAllocator()); err == nil {
		t.Fatalf("expected an error for a dangling joystick reference")
	}
}
