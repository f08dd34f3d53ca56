// Package midi decodes raw ALSA rawmidi byte streams and matches them
// against a mapping's configured MIDI message spec.
package midi

import (
	"github.com/wheelcraft/wheelcraft/internal/resolved"
)

// MessageType mirrors the handful of channel-voice message kinds this
// bridge understands. System messages and anything else fall through
// parseMessage as unhandled.
type MessageType uint8

const (
	NoteOn MessageType = iota
	NoteOff
	ControlChange
	PitchWheel
	Aftertouch
	PolyAftertouch
	ProgramChange
)

func (t MessageType) String() string {
	switch t {
	case NoteOn:
		return "note_on"
	case NoteOff:
		return "note_off"
	case ControlChange:
		return "control_change"
	case PitchWheel:
		return "pitch_wheel"
	case Aftertouch:
		return "aftertouch"
	case PolyAftertouch:
		return "polyaftertouch"
	case ProgramChange:
		return "program_change"
	default:
		return "unknown"
	}
}

// Message is one decoded channel-voice MIDI event.
type Message struct {
	DeviceName string
	Type       MessageType
	Channel    uint8
	Note       uint8
	Velocity   uint8
	Control    uint8
	Value      uint8
	Pitch      int16
	hasNote    bool
	hasValue   bool
	hasPitch   bool
}

// parseMessage decodes one ALSA rawmidi message (1-3 bytes) addressed to
// deviceName. It returns false for messages it doesn't recognize or for
// anything longer than 3 bytes, mirroring the upstream parser's refusal to
// guess at running-status or sysex framing.
func parseMessage(data []byte, deviceName string) (Message, bool) {
	if len(data) == 0 || len(data) > 3 {
		return Message{}, false
	}
	status := data[0]
	var data1, data2 *byte
	if len(data) >= 2 {
		data1 = &data[1]
	}
	if len(data) >= 3 {
		data2 = &data[2]
	}

	msg := Message{
		DeviceName: deviceName,
		Channel:    status & 0x0F,
	}
	code := status & 0xF0

	switch {
	case code == 0x80 && data1 != nil && data2 != nil:
		msg.Type = NoteOff
		msg.Note, msg.hasNote = *data1, true
		msg.Velocity = *data2
	case code == 0x90 && data1 != nil && data2 != nil:
		if *data2 == 0 {
			msg.Type = NoteOff
		} else {
			msg.Type = NoteOn
		}
		msg.Note, msg.hasNote = *data1, true
		msg.Velocity = *data2
	case code == 0xB0 && data1 != nil && data2 != nil:
		msg.Type = ControlChange
		msg.Control = *data1
		msg.Value, msg.hasValue = *data2, true
	case code == 0xE0 && data1 != nil && data2 != nil:
		msg.Type = PitchWheel
		raw := int16(*data2)<<7 | int16(*data1)
		msg.Pitch, msg.hasPitch = raw-8192, true
	case code == 0xA0 && data1 != nil && data2 != nil:
		msg.Type = PolyAftertouch
		msg.Note, msg.hasNote = *data1, true
		msg.Value, msg.hasValue = *data2, true
	case code == 0xD0 && data1 != nil:
		msg.Type = Aftertouch
		msg.Value, msg.hasValue = *data1, true
	case code == 0xC0 && data1 != nil:
		msg.Type = ProgramChange
		msg.Value, msg.hasValue = *data1, true
	default:
		return Message{}, false
	}
	return msg, true
}

// extractValue returns the scalar a matched message carries for a mapping's
// entry value, mirroring the upstream extraction table exactly (pitch wheel
// is the only signed, already-centered case).
func extractValue(msg Message) int32 {
	switch msg.Type {
	case PitchWheel:
		return int32(msg.Pitch)
	case ControlChange, Aftertouch, PolyAftertouch, ProgramChange:
		return int32(msg.Value)
	case NoteOn:
		return int32(msg.Velocity)
	case NoteOff:
		return 0
	default:
		return 0
	}
}

// typeMatches reports whether a decoded message's type satisfies a
// configured spec type, including the upstream's "Note" spec type accepting
// both NoteOn and NoteOff.
func typeMatches(msgType MessageType, specType resolved.MidiMessageType) bool {
	switch specType {
	case resolved.MidiNote:
		return msgType == NoteOn || msgType == NoteOff
	case resolved.MidiNoteOn:
		return msgType == NoteOn
	case resolved.MidiNoteOff:
		return msgType == NoteOff
	case resolved.MidiControlChange:
		return msgType == ControlChange
	case resolved.MidiPitchWheel:
		return msgType == PitchWheel
	case resolved.MidiAftertouch:
		return msgType == Aftertouch
	case resolved.MidiProgramChange:
		return msgType == ProgramChange
	default:
		return false
	}
}

func channelMatches(msg Message, ch resolved.MidiChannel) bool {
	return ch.Any || msg.Channel == ch.Number
}

// numberMatches extracts the message's "number" - note, CC, or program,
// depending on type - and checks it against the spec's number filter.
func numberMatches(msg Message, number *resolved.MidiNumber) bool {
	if number == nil {
		return true
	}
	var n uint8
	switch msg.Type {
	case NoteOn, NoteOff:
		n = msg.Note
	case ControlChange:
		n = msg.Control
	case ProgramChange:
		n = msg.Value
	default:
		return false
	}
	return number.Matches(n)
}

// Matches reports whether msg satisfies spec's filters in full.
func Matches(msg Message, spec resolved.MidiMessageSpec) bool {
	if !typeMatches(msg.Type, spec.Type) {
		return false
	}
	if !channelMatches(msg, spec.Channel) {
		return false
	}
	return numberMatches(msg, spec.Number)
}

// Value extracts msg's scalar entry value for the pipeline, exported as a
// small wrapper so callers outside this package don't need extractValue's
// unexported name.
func Value(msg Message) int32 { return extractValue(msg) }
