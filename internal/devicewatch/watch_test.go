package devicewatch

import "testing"

func TestClassifyEventMidiAdd(t *testing.T) {
	ev := kernelEvent{
		Action:    "add",
		Subsystem: "sound",
		DevPath:   "/devices/pci0000:00/snd/card1/midiC1D0",
		Properties: map[string]string{
			"DEVNAME": "snd/midiC1D0",
		},
	}
	got, ok := classifyEvent(ev)
	if !ok {
		t.Fatal("expected sound/midi event to classify")
	}
	if got.Kind != KindMidi || got.DevNode != "/dev/snd/midiC1D0" {
		t.Errorf("got %+v", got)
	}
}

func TestClassifyEventMouseAdd(t *testing.T) {
	ev := kernelEvent{
		Action:    "add",
		Subsystem: "input",
		DevPath:   "/devices/platform/i8042/input7/event7",
		Properties: map[string]string{
			"DEVNAME": "input/event7",
		},
	}
	got, ok := classifyEvent(ev)
	if !ok {
		t.Fatal("expected input event device to classify")
	}
	if got.Kind != KindMouse || got.DevNode != "/dev/input/event7" {
		t.Errorf("got %+v", got)
	}
}

func TestClassifyEventIgnoresOtherSubsystems(t *testing.T) {
	ev := kernelEvent{Action: "add", Subsystem: "usb", DevPath: "/devices/usb1"}
	if _, ok := classifyEvent(ev); ok {
		t.Error("expected usb subsystem to be ignored")
	}
}

func TestClassifyEventIgnoresChangeAction(t *testing.T) {
	ev := kernelEvent{Action: "change", Subsystem: "sound", DevPath: "/devices/card1/midiC1D0"}
	if _, ok := classifyEvent(ev); ok {
		t.Error("expected non add/remove action to be ignored")
	}
}

func TestClassifyEventSoundSubsystemNonMidiIgnored(t *testing.T) {
	ev := kernelEvent{
		Action:    "add",
		Subsystem: "sound",
		DevPath:   "/devices/pci0000:00/snd/card1/pcmC1D0p",
		Properties: map[string]string{
			"DEVNAME": "snd/pcmC1D0p",
		},
	}
	if _, ok := classifyEvent(ev); ok {
		t.Error("expected non-midi sound device to be ignored")
	}
}
