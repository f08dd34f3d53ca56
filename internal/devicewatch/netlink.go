// Package devicewatch detects MIDI and mouse device hotplug over the
// kernel's udev netlink multicast group, the same transport the teacher's
// own udev monitor uses for its own device-presence tracking.
package devicewatch

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// kernelEvent is one raw udev uevent: an "ACTION@DEVPATH" header followed
// by null-terminated KEY=VALUE environment strings.
type kernelEvent struct {
	Action     string
	Subsystem  string
	DevPath    string
	Properties map[string]string
}

// netlinkMonitor is a raw AF_NETLINK/NETLINK_KOBJECT_UEVENT socket reader.
type netlinkMonitor struct {
	fd     int
	stop   chan struct{}
	events chan kernelEvent
}

func newNetlinkMonitor() (*netlinkMonitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("devicewatch: create netlink socket: %w", err)
	}

	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: 1, // kobject_uevent's single multicast group
		Pid:    0,
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("devicewatch: bind netlink socket: %w", err)
	}

	return &netlinkMonitor{
		fd:     fd,
		stop:   make(chan struct{}),
		events: make(chan kernelEvent),
	}, nil
}

func (m *netlinkMonitor) start() <-chan kernelEvent {
	go m.listen()
	return m.events
}

func (m *netlinkMonitor) close() {
	close(m.stop)
	unix.Close(m.fd)
}

func (m *netlinkMonitor) listen() {
	defer close(m.events)
	buf := make([]byte, 4096)
	for {
		select {
		case <-m.stop:
			return
		default:
		}
		n, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			select {
			case <-m.stop:
				return
			default:
				continue
			}
		}
		if n == 0 {
			continue
		}
		event, err := parseKernelEvent(buf[:n])
		if err != nil {
			continue
		}
		select {
		case m.events <- event:
		case <-m.stop:
			return
		}
	}
}

func parseKernelEvent(data []byte) (kernelEvent, error) {
	parts := bytes.Split(data, []byte{0x00})
	if len(parts) == 0 {
		return kernelEvent{}, fmt.Errorf("devicewatch: empty uevent")
	}

	header := string(parts[0])
	headerParts := strings.SplitN(header, "@", 2)
	if len(headerParts) != 2 {
		return kernelEvent{}, fmt.Errorf("devicewatch: malformed uevent header %q", header)
	}

	event := kernelEvent{
		Action:     headerParts[0],
		DevPath:    headerParts[1],
		Properties: make(map[string]string),
	}
	for _, part := range parts[1:] {
		if len(part) == 0 {
			continue
		}
		kv := strings.SplitN(string(part), "=", 2)
		if len(kv) == 2 {
			event.Properties[kv[0]] = kv[1]
		}
	}
	if v, ok := event.Properties["SUBSYSTEM"]; ok {
		event.Subsystem = v
	}
	return event, nil
}
