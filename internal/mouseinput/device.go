// Package mouseinput enumerates and reads raw evdev character devices that
// expose relative axes, the kernel's definition of "mouse-like."
package mouseinput

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wheelcraft/wheelcraft/internal/controltype"
)

// DeviceInfo identifies one candidate mouse/trackball evdev node.
type DeviceInfo struct {
	Name string
	Path string
}

// Event is one decoded, classified evdev event.
type Event struct {
	DeviceKey   string
	ControlType controltype.ControlType
	Value       int32
}

// inputEventSize is sizeof(struct input_event) on a 64-bit kernel: two
// 8-byte timeval fields, a u16 type, a u16 code and an s32 value.
const inputEventSize = 24

// EnumerateDevices scans /dev/input/event* for nodes whose sysfs
// capabilities/rel bitmask is non-zero - the kernel's own test for "this
// evdev node reports relative axes," the same signal the upstream bridge
// uses to separate mice and trackballs from keyboards and joysticks.
func EnumerateDevices() ([]DeviceInfo, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("mouseinput: glob /dev/input: %w", err)
	}
	sort.Strings(paths)

	var devices []DeviceInfo
	for _, p := range paths {
		if !hasRelativeAxes(p) {
			continue
		}
		devices = append(devices, DeviceInfo{
			Name: deviceName(p),
			Path: p,
		})
	}
	return devices, nil
}

func hasRelativeAxes(eventPath string) bool {
	base := filepath.Base(eventPath)
	capPath := fmt.Sprintf("/sys/class/input/%s/device/capabilities/rel", base)
	data, err := os.ReadFile(capPath)
	if err != nil {
		return false
	}
	for _, field := range strings.Fields(string(data)) {
		v, err := strconv.ParseUint(field, 16, 64)
		if err == nil && v != 0 {
			return true
		}
	}
	return false
}

func deviceName(eventPath string) string {
	base := filepath.Base(eventPath)
	namePath := fmt.Sprintf("/sys/class/input/%s/device/name", base)
	data, err := os.ReadFile(namePath)
	if err != nil {
		return base
	}
	return strings.TrimSpace(string(data))
}

// MatchDevices returns the devices whose name matches nameRegex.
func MatchDevices(nameRegex *regexp.Regexp, devices []DeviceInfo) []DeviceInfo {
	var matched []DeviceInfo
	for _, d := range devices {
		if nameRegex.MatchString(d.Name) {
			matched = append(matched, d)
		}
	}
	return matched
}

// decodeInputEvent parses one raw input_event record, returning false for
// synchronization events (EV_SYN, type 0) which the caller should skip.
func decodeInputEvent(buf []byte) (evType, code uint16, value int32, ok bool) {
	if len(buf) < inputEventSize {
		return 0, 0, 0, false
	}
	// offsets: [0:16) timeval, [16:18) type, [18:20) code, [20:24) value
	evType = binary.LittleEndian.Uint16(buf[16:18])
	code = binary.LittleEndian.Uint16(buf[18:20])
	value = int32(binary.LittleEndian.Uint32(buf[20:24]))
	if evType == 0 {
		return evType, code, value, false
	}
	return evType, code, value, true
}

// classify turns a raw (type, code, value) triple into an Event, or false
// if it doesn't correspond to a control this system understands.
func classify(deviceKey string, evType, code uint16, value int32) (Event, bool) {
	ct := controltype.FromEvdev(evType, code)
	if ct.IsUnhandled() {
		return Event{}, false
	}
	return Event{DeviceKey: deviceKey, ControlType: ct, Value: value}, true
}
