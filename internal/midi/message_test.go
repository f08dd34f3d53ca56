package midi

import (
	"testing"

	"github.com/wheelcraft/wheelcraft/internal/resolved"
)

func TestParseMessageControlChange(t *testing.T) {
	msg, ok := parseMessage([]byte{0xB0, 1, 64}, "dev")
	if !ok {
		t.Fatal("expected CC message to parse")
	}
	if msg.Type != ControlChange || msg.Control != 1 || msg.Value != 64 || msg.Channel != 0 {
		t.Errorf("got %+v", msg)
	}
}

func TestParseMessageNoteOnZeroVelocityIsNoteOff(t *testing.T) {
	msg, ok := parseMessage([]byte{0x91, 60, 0}, "dev")
	if !ok {
		t.Fatal("expected note message to parse")
	}
	if msg.Type != NoteOff || msg.Channel != 1 {
		t.Errorf("got %+v, want NoteOff on channel 1", msg)
	}
}

func TestParseMessagePitchWheelCentered(t *testing.T) {
	// lsb=0, msb=64 -> raw = 64<<7 = 8192 -> centered = 0
	msg, ok := parseMessage([]byte{0xE0, 0, 64}, "dev")
	if !ok || msg.Type != PitchWheel {
		t.Fatalf("expected pitch wheel to parse, got %+v ok=%v", msg, ok)
	}
	if msg.Pitch != 0 {
		t.Errorf("pitch = %d, want 0 for center position", msg.Pitch)
	}
}

func TestParseMessageRejectsOversizedPayload(t *testing.T) {
	if _, ok := parseMessage([]byte{0x90, 1, 2, 3}, "dev"); ok {
		t.Error("expected 4-byte payload to be rejected")
	}
}

func TestParseMessageRejectsUnknownStatus(t *testing.T) {
	if _, ok := parseMessage([]byte{0xF8}, "dev"); ok {
		t.Error("expected system realtime byte to be rejected")
	}
}

func TestExtractValue(t *testing.T) {
	cc, _ := parseMessage([]byte{0xB0, 1, 100}, "dev")
	if Value(cc) != 100 {
		t.Errorf("CC value = %d, want 100", Value(cc))
	}
	off, _ := parseMessage([]byte{0x80, 60, 0}, "dev")
	if Value(off) != 0 {
		t.Errorf("NoteOff value = %d, want 0", Value(off))
	}
}

func TestMatchesChecksTypeChannelAndNumber(t *testing.T) {
	msg, _ := parseMessage([]byte{0xB1, 7, 90}, "dev") // channel 1, CC7

	matchAny := resolved.MidiMessageSpec{
		Type:    resolved.MidiControlChange,
		Channel: resolved.MidiChannel{Any: true},
		Number:  &resolved.MidiNumber{Kind: resolved.MidiNumberSingle, Single: 7},
	}
	if !Matches(msg, matchAny) {
		t.Error("expected match on any channel, CC7")
	}

	wrongChannel := matchAny
	wrongChannel.Channel = resolved.MidiChannel{Any: false, Number: 0}
	if Matches(msg, wrongChannel) {
		t.Error("expected mismatch on channel 0 when message is on channel 1")
	}

	wrongNumber := matchAny
	wrongNumber.Number = &resolved.MidiNumber{Kind: resolved.MidiNumberSingle, Single: 8}
	if Matches(msg, wrongNumber) {
		t.Error("expected mismatch on CC8 when message is CC7")
	}
}

func TestMatchesNoteSpecAcceptsBothOnAndOff(t *testing.T) {
	spec := resolved.MidiMessageSpec{
		Type:    resolved.MidiNote,
		Channel: resolved.MidiChannel{Any: true},
	}
	on, _ := parseMessage([]byte{0x90, 60, 100}, "dev")
	off, _ := parseMessage([]byte{0x80, 60, 0}, "dev")
	if !Matches(on, spec) || !Matches(off, spec) {
		t.Error("expected Note spec to match both NoteOn and NoteOff")
	}
}
