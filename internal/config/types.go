// Package config loads the YAML configuration this bridge is driven by and
// resolves it into the internal/resolved runtime model.
package config

// Config is the top-level decoded (but not yet resolved) document.
type Config struct {
	Global           GlobalConfig            `yaml:"global"`
	MidiDevices      []MidiDeviceConfig      `yaml:"midi_devices"`
	MouseDevices     []MouseDeviceConfig     `yaml:"mouse_devices"`
	VirtualJoysticks []VirtualJoystickConfig `yaml:"virtual_joysticks"`
	Mappings         []MappingConfig         `yaml:"mappings"`
}

// GlobalConfig carries engine-wide tuning, independent of any one mapping
// or device.
type GlobalConfig struct {
	TickRateHz int              `yaml:"tick_rate_hz"`
	Debug      bool             `yaml:"debug"`
	HotReload  *bool            `yaml:"hot_reload"`
	Overlay    OverlayConfig    `yaml:"overlay"`
	StatusAPI  StatusAPIConfig  `yaml:"status_api"`
}

// OverlayConfig configures the websocket server that streams the steering
// position/hold-factor atomics for an on-screen indicator.
type OverlayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StatusAPIConfig configures the optional local status/control HTTP API.
type StatusAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	JWTSecret string `yaml:"jwt_secret"`
}

// MidiDeviceConfig names a runtime MIDI source device by a regex matched
// against the port names ALSA reports.
type MidiDeviceConfig struct {
	Key       string `yaml:"key"`
	NameRegex string `yaml:"name_regex"`
}

// MouseDeviceConfig is MidiDeviceConfig's mouse counterpart.
type MouseDeviceConfig struct {
	Key       string `yaml:"key"`
	NameRegex string `yaml:"name_regex"`
}

// VirtualJoystickConfig declares one synthetic uinput device.
type VirtualJoystickConfig struct {
	Key        string                    `yaml:"key"`
	Name       string                    `yaml:"name"`
	Vendor     uint16                    `yaml:"vendor"`
	Product    uint16                    `yaml:"product"`
	Version    uint16                    `yaml:"version"`
	Bus        uint16                    `yaml:"bus"`
	Persistent bool                      `yaml:"persistent"`
	Enabled    *bool                     `yaml:"enabled"`
	FF         FFConfig                  `yaml:"ff"`
	Controls   map[string]ControlEntry   `yaml:"controls"`
}

// FFConfig declares a joystick's force-feedback capability.
type FFConfig struct {
	Enabled  bool    `yaml:"enabled"`
	MaxLevel float64 `yaml:"max_level"`
}

// ControlEntry is one declared axis or button on a virtual joystick. It
// expands either from a bare predefine name or from an object optionally
// referencing one via MergeFrom; see predefine.go.
type ControlEntry struct {
	MergeFrom string `yaml:"merge_from"`
	Type      string `yaml:"type"` // canonical control name, e.g. "ABS_X", "BTN_SOUTH"
	Min       *int   `yaml:"min"`
	Max       *int   `yaml:"max"`
	Fuzz      *int   `yaml:"fuzz"`
	Flat      *int   `yaml:"flat"`
	Resolution *int  `yaml:"resolution"`
	Initial   *int   `yaml:"initial"`
}

// MappingConfig is one unresolved mapping entry.
type MappingConfig struct {
	Name        string            `yaml:"name"`
	Enabled     *bool             `yaml:"enabled"`
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Steps       []StepConfig      `yaml:"steps"`
}

// SourceConfig identifies a mapping's input, either a MidiMessage spec or a
// mouse ControlType. Exactly one of Midi / MouseControl should be set.
type SourceConfig struct {
	Device       string            `yaml:"device"`
	Midi         *MidiMessageEntry `yaml:"midi"`
	MouseControl string            `yaml:"mouse_control"` // canonical ControlType name, e.g. "REL_X"
	RangeFrom    *int              `yaml:"range_from"`
	RangeTo      *int              `yaml:"range_to"`
}

// MidiMessageEntry expands either from a predefine shorthand or a full
// object, mirroring ControlEntry's shape.
type MidiMessageEntry struct {
	MergeFrom string   `yaml:"merge_from"`
	Type      string   `yaml:"type"` // note, note_on, note_off, control_change, pitch_wheel, aftertouch, program_change
	Channel   string   `yaml:"channel"` // "any" or a number as a string
	Number    string   `yaml:"number"`  // "any", a single number, or comma-separated numbers
}

// DestinationConfig identifies a mapping's output control.
type DestinationConfig struct {
	Joystick string `yaml:"joystick"`
	Control  string `yaml:"control"`
}

// StepConfig is one tagged pipeline step entry; Params holds the
// step-kind-specific fields as a generic map, decoded into the concrete
// resolved.Step variant by resolve.go.
type StepConfig struct {
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:",inline"`
}
