package router

import (
	"testing"

	"github.com/wheelcraft/wheelcraft/internal/resolved"
)

func mapping(deviceKey, joystickKey string, steps []resolved.Step, enabled bool) *resolved.ResolvedMapping {
	return &resolved.ResolvedMapping{
		Enabled: enabled,
		Source:  resolved.Source{DeviceKey: deviceKey},
		Destination: resolved.Destination{
			JoystickKey: joystickKey,
		},
		Steps: steps,
	}
}

func TestBuildExcludesDisabledMapping(t *testing.T) {
	m := mapping("midi1", "wheel", nil, false)
	r := Build([]*resolved.ResolvedMapping{m},
		map[string][]string{"midi1": {"midi1:0"}},
		map[string]JoystickState{"wheel": {Created: true, Enabled: true}})

	if len(r.BySourceDevice) != 0 {
		t.Fatalf("expected no routed mappings, got %v", r.BySourceDevice)
	}
}

func TestBuildExcludesUncreatedJoystick(t *testing.T) {
	m := mapping("midi1", "wheel", nil, true)
	r := Build([]*resolved.ResolvedMapping{m},
		map[string][]string{"midi1": {"midi1:0"}},
		map[string]JoystickState{"wheel": {Created: false, Enabled: true}})

	if len(r.BySourceDevice) != 0 {
		t.Fatalf("expected no routed mappings for uncreated joystick, got %v", r.BySourceDevice)
	}
}

func TestBuildExcludesUnmatchedSource(t *testing.T) {
	m := mapping("midi1", "wheel", nil, true)
	r := Build([]*resolved.ResolvedMapping{m},
		map[string][]string{},
		map[string]JoystickState{"wheel": {Created: true, Enabled: true}})

	if len(r.BySourceDevice) != 0 {
		t.Fatalf("expected no routed mappings for unmatched source, got %v", r.BySourceDevice)
	}
}

func TestBuildRoutesByRuntimeName(t *testing.T) {
	m := mapping("midi1", "wheel", nil, true)
	r := Build([]*resolved.ResolvedMapping{m},
		map[string][]string{"midi1": {"Arturia KeyLab 0"}},
		map[string]JoystickState{"wheel": {Created: true, Enabled: true}})

	got := r.MappingsFor("Arturia KeyLab 0")
	if len(got) != 1 || got[0] != m {
		t.Fatalf("expected mapping to be routed, got %v", got)
	}
}

func TestBuildClassifiesIdleTickMappings(t *testing.T) {
	steering := mapping("midi1", "wheel", []resolved.Step{resolved.SteeringStep{}}, true)
	linear := mapping("midi1", "wheel", []resolved.Step{resolved.LinearStep{}}, true)

	r := Build([]*resolved.ResolvedMapping{steering, linear},
		map[string][]string{"midi1": {"dev"}},
		map[string]JoystickState{"wheel": {Created: true, Enabled: true}})

	if len(r.IdleTickMappings) != 1 || r.IdleTickMappings[0] != steering {
		t.Fatalf("expected only the steering mapping to require idle ticks, got %v", r.IdleTickMappings)
	}
	if linear.IdleTickRequired {
		t.Fatal("linear-only mapping should not be classified as idle-tick-required")
	}
}
