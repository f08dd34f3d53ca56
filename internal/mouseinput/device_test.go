package mouseinput

import (
	"encoding/binary"
	"testing"
)

func buildRawEvent(evType, code uint16, value int32) []byte {
	buf := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(buf[16:18], evType)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))
	return buf
}

func TestDecodeInputEventSkipsSync(t *testing.T) {
	buf := buildRawEvent(0, 0, 0)
	_, _, _, ok := decodeInputEvent(buf)
	if ok {
		t.Error("expected EV_SYN (type 0) to be rejected")
	}
}

func TestDecodeInputEventRelativeMotion(t *testing.T) {
	buf := buildRawEvent(0x02, 0x00, -5) // EV_REL, REL_X, -5
	evType, code, value, ok := decodeInputEvent(buf)
	if !ok {
		t.Fatal("expected relative motion event to decode")
	}
	if evType != 0x02 || code != 0x00 || value != -5 {
		t.Errorf("got type=%d code=%d value=%d", evType, code, value)
	}
}

func TestDecodeInputEventTooShort(t *testing.T) {
	if _, _, _, ok := decodeInputEvent(make([]byte, 10)); ok {
		t.Error("expected short buffer to be rejected")
	}
}

func TestClassifyUnknownCodeIsUnhandled(t *testing.T) {
	if _, ok := classify("mouse0", 0x02, 0xFF, 1); ok {
		t.Error("expected unknown relative code to be unhandled")
	}
}

func TestClassifyKnownRelativeAxis(t *testing.T) {
	event, ok := classify("mouse0", 0x02, 0x00, 10)
	if !ok {
		t.Fatal("expected REL_X to classify")
	}
	if event.ControlType.Name != "REL_X" || event.Value != 10 {
		t.Errorf("got %+v", event)
	}
}
