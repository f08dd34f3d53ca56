package joystick

import (
	"fmt"
	"log"
	"sync"

	"github.com/wheelcraft/wheelcraft/internal/controltype"
)

// JoystickConfig is everything needed to create one virtual joystick's
// kernel device and control surface.
type JoystickConfig struct {
	Name       string
	BusType    uint16
	Vendor     uint16
	Product    uint16
	Version    uint16
	FFEnabled  bool
	Controls   map[string]controltype.ControlType
	Ranges     map[string]AbsAxisSetup // only for absolute controls
	Initial    map[string]int32
}

type joystickEntry struct {
	surface      *ControlSurface
	isPersistent bool
}

// Manager owns every created virtual joystick by its configuration key,
// handling persistence across hot reloads exactly as the original engine's
// VirtualJoystickManager does.
type Manager struct {
	debug bool

	mu        sync.Mutex
	joysticks map[string]*joystickEntry

	// open is swappable in tests to avoid touching /dev/uinput.
	open func(JoystickConfig) (Device, error)
}

// NewManager returns an empty Manager.
func NewManager(debug bool) *Manager {
	return &Manager{
		debug:     debug,
		joysticks: make(map[string]*joystickEntry),
		open:      OpenUinputDevice,
	}
}

// CreateIfAbsent creates the joystick named key if it doesn't already exist,
// otherwise updates its persistence flag in place.
func (m *Manager) CreateIfAbsent(key string, cfg JoystickConfig, isPersistent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.joysticks[key]; ok {
		if existing.isPersistent != isPersistent {
			if m.debug {
				log.Printf("[Joystick] updating persistence for %q: %v -> %v", key, existing.isPersistent, isPersistent)
			}
			existing.isPersistent = isPersistent
		}
		return nil
	}

	keys, absAxes := splitControls(cfg)
	dev, err := m.open(DeviceConfig{
		Name:      cfg.Name,
		BusType:   cfg.BusType,
		Vendor:    cfg.Vendor,
		Product:   cfg.Product,
		Version:   cfg.Version,
		Keys:      keys,
		AbsAxes:   absAxes,
		FFEnabled: cfg.FFEnabled,
	})
	if err != nil {
		return fmt.Errorf("joystick: creating %q: %w", key, err)
	}

	surface := NewControlSurface(cfg.Name, dev, cfg.Controls, cfg.Initial, cfg.FFEnabled)
	m.joysticks[key] = &joystickEntry{surface: surface, isPersistent: isPersistent}

	log.Printf("[Joystick] created %q (%s)%s", key, cfg.Name, ffSuffix(cfg.FFEnabled))
	return nil
}

func ffSuffix(enabled bool) string {
	if enabled {
		return ", force feedback enabled"
	}
	return ""
}

func splitControls(cfg JoystickConfig) ([]uint16, []AbsAxisSetup) {
	var keys []uint16
	var axes []AbsAxisSetup
	for name, ct := range cfg.Controls {
		if ct.IsButton() {
			keys = append(keys, ct.Code)
		} else if ct.IsAbsolute() {
			axis := cfg.Ranges[name]
			axis.Code = ct.Code
			axes = append(axes, axis)
		}
	}
	return keys, axes
}

// DestroyIfExists tears down the joystick named key, if present.
func (m *Manager) DestroyIfExists(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.joysticks[key]
	if !ok {
		return
	}
	_ = entry.surface.Close()
	delete(m.joysticks, key)
}

// Surface returns the control surface for key, or nil if not found.
func (m *Manager) Surface(key string) *ControlSurface {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.joysticks[key]
	if !ok {
		return nil
	}
	return entry.surface
}

// Set writes value to (joystickKey, control). A write to an unknown joystick
// is dropped without an error (logged only in debug mode) - mirroring the original manager's
// tolerance of mappings targeting a joystick that failed to create.
func (m *Manager) Set(joystickKey, control string, value float64, silent bool) error {
	surface := m.Surface(joystickKey)
	if surface == nil {
		if m.debug {
			log.Printf("[Joystick] %q not found, dropping write to %q", joystickKey, control)
		}
		return nil
	}
	return surface.Set(control, value, silent)
}

// Get reads the last committed value of (joystickKey, control), or 0 if
// either is unknown.
func (m *Manager) Get(joystickKey, control string) int32 {
	surface := m.Surface(joystickKey)
	if surface == nil {
		return 0
	}
	return surface.Get(control)
}

// FFSummaryNorm reads the FF summary of joystickKey, or 0 if unknown/FF
// disabled.
func (m *Manager) FFSummaryNorm(joystickKey string) float64 {
	surface := m.Surface(joystickKey)
	if surface == nil {
		return 0
	}
	return surface.FFSummaryNorm()
}

// IdleTickEnabled reports whether (joystickKey, control) has had its
// idle-tick-enabled flag set by a completed non-idle run, or false if the
// joystick is unknown.
func (m *Manager) IdleTickEnabled(joystickKey, control string) bool {
	surface := m.Surface(joystickKey)
	if surface == nil {
		return false
	}
	return surface.IdleTickEnabled(control).Load()
}

// EnableIdleTick marks (joystickKey, control) as having received a real,
// non-idle run, letting idle ticks begin advancing its time-driven steps.
// It is a no-op if the joystick is unknown.
func (m *Manager) EnableIdleTick(joystickKey, control string) {
	surface := m.Surface(joystickKey)
	if surface == nil {
		return
	}
	surface.IdleTickEnabled(control).Store(true)
}

// Stop tears down joysticks. On a non-full shutdown (hot reload) persistent
// joysticks are kept; on a full shutdown everything is destroyed.
func (m *Manager) Stop(fullShutdown bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.joysticks {
		if !fullShutdown && entry.isPersistent {
			if m.debug {
				log.Printf("[Joystick] keeping persistent joystick %q", key)
			}
			continue
		}
		_ = entry.surface.Close()
		delete(m.joysticks, key)
	}
}
