// Package router builds the per-source-device dispatch table described in
// component design 4.2: which resolved mappings a runtime source-device
// name feeds, and which mappings need idle ticks.
package router

import "github.com/wheelcraft/wheelcraft/internal/resolved"

// JoystickState reports whether a configured joystick key was successfully
// created and whether it is enabled, the two facts Build needs to decide
// mapping inclusion without depending on the joystick package directly.
type JoystickState struct {
	Created bool
	Enabled bool
}

// Router maps a runtime source-device name to the ordered list of resolved
// mappings whose source matches it, plus a separately-tracked ordered list
// of mappings that require idle ticks. Both are computed once at build time
// and never mutated afterward.
type Router struct {
	BySourceDevice   map[string][]*resolved.ResolvedMapping
	IdleTickMappings []*resolved.ResolvedMapping
}

// Build constructs a Router from the full set of configured mappings, the
// set of runtime source-device names that were actually opened, and the
// per-joystick-key creation/enabled status.
//
// A mapping is included only if: it is enabled; its destination joystick
// was created and is enabled; its source device key matched at least one
// opened runtime device name (runtimeNamesByDeviceKey maps a configured
// device key to every runtime name that resolved to it).
//
// Ordering is insertion order throughout - config order, not map iteration
// order - matching component design 4.2's determinism requirement.
func Build(
	mappings []*resolved.ResolvedMapping,
	runtimeNamesByDeviceKey map[string][]string,
	joysticks map[string]JoystickState,
) *Router {
	r := &Router{
		BySourceDevice: make(map[string][]*resolved.ResolvedMapping),
	}

	for _, m := range mappings {
		if !m.Enabled {
			continue
		}
		js, ok := joysticks[m.Destination.JoystickKey]
		if !ok || !js.Created || !js.Enabled {
			continue
		}
		runtimeNames, ok := runtimeNamesByDeviceKey[m.Source.DeviceKey]
		if !ok || len(runtimeNames) == 0 {
			continue
		}

		// The static classification this repository layers on top of the
		// empirical idle-tick-enabled flag (see SPEC_FULL.md supplemental
		// features): compute once, here, rather than lazily.
		m.IdleTickRequired = m.HasTimeDrivenStep()

		for _, runtimeName := range runtimeNames {
			r.BySourceDevice[runtimeName] = append(r.BySourceDevice[runtimeName], m)
		}
		if m.IdleTickRequired {
			r.IdleTickMappings = append(r.IdleTickMappings, m)
		}
	}

	return r
}

// MappingsFor returns the ordered mappings routed from runtimeSourceName, or
// nil if none match.
func (r *Router) MappingsFor(runtimeSourceName string) []*resolved.ResolvedMapping {
	return r.BySourceDevice[runtimeSourceName]
}
