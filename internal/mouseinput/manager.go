package mouseinput

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
)

// Manager owns a set of open mouse-input readers and fans their classified
// events into a single channel, mirroring the shape of internal/midi's
// Manager and the teacher's per-device watcher goroutines.
type Manager struct {
	Debug   bool
	events  chan Event
	cancels map[string]context.CancelFunc
}

// NewManager returns a Manager with its event channel ready to read from.
func NewManager(debug bool) *Manager {
	return &Manager{
		Debug:   debug,
		events:  make(chan Event, 256),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Events returns the channel classified mouse events are published on.
func (m *Manager) Events() <-chan Event { return m.events }

// Open starts reading path under deviceKey (the name used in configuration,
// not necessarily the device's own reported name) in a background
// goroutine. It is a no-op if deviceKey is already open.
func (m *Manager) Open(ctx context.Context, deviceKey string, info DeviceInfo) error {
	if _, already := m.cancels[deviceKey]; already {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancels[deviceKey] = cancel
	go m.readLoop(runCtx, deviceKey, info)
	return nil
}

// readLoop mirrors the upstream MouseDevice::run backoff loop: a read that
// would otherwise block is retried with a 0->5ms increasing sleep, reset to
// 0 the instant any data arrives.
func (m *Manager) readLoop(ctx context.Context, deviceKey string, info DeviceInfo) {
	defer delete(m.cancels, deviceKey)

	file, err := os.Open(info.Path)
	if err != nil {
		log.Printf("[mouseinput] failed to open %s (%s): %v", deviceKey, info.Path, err)
		return
	}
	defer file.Close()

	buf := make([]byte, inputEventSize)
	sleep := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := file.Read(buf)
		if err != nil {
			if m.Debug {
				log.Printf("[mouseinput] %s disconnected: %v", deviceKey, err)
			}
			return
		}
		if n < inputEventSize {
			if sleep < 5*time.Millisecond {
				sleep += time.Millisecond
			}
			time.Sleep(sleep)
			continue
		}
		sleep = 0

		evType, code, value, ok := decodeInputEvent(buf)
		if !ok {
			continue // synchronization event
		}
		event, ok := classify(deviceKey, evType, code, value)
		if !ok {
			if m.Debug {
				log.Printf("[mouseinput] unhandled event on %s: type=%d code=%d", deviceKey, evType, code)
			}
			continue
		}

		select {
		case m.events <- event:
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
			log.Printf("[mouseinput] dropping event from %s, consumer stalled", deviceKey)
		}
	}
}

// Stop cancels every open device reader.
func (m *Manager) Stop() {
	for key, cancel := range m.cancels {
		cancel()
		delete(m.cancels, key)
	}
}

// describeDevice formats a DeviceInfo as "name @ path".
func describeDevice(d DeviceInfo) string {
	return fmt.Sprintf("%s @ %s", d.Name, d.Path)
}
