package controltype

import "testing"

func TestEvdevRoundTrip(t *testing.T) {
	cases := []struct {
		evtype, code uint16
	}{
		{evAbs, 0x00},
		{evRel, 0x08},
		{evKey, 0x130},
	}
	for _, c := range cases {
		ct := FromEvdev(c.evtype, c.code)
		if ct.IsUnhandled() {
			t.Fatalf("FromEvdev(%x,%x) unexpectedly unhandled", c.evtype, c.code)
		}
		gotType, err := ct.EvdevType()
		if err != nil {
			t.Fatalf("EvdevType() errored: %v", err)
		}
		if gotType != c.evtype || ct.Code != c.code {
			t.Errorf("round trip mismatch: got type=%x code=%x, want type=%x code=%x", gotType, ct.Code, c.evtype, c.code)
		}
	}
}

func TestCanonicalStringRoundTrip(t *testing.T) {
	for _, name := range []string{"ABS_X", "REL_WHEEL", "BTN_SOUTH", "MIDI", "UNHANDLED"} {
		ct, err := Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q) errored: %v", name, err)
		}
		if ct.String() != name {
			t.Errorf("Parse(%q).String() = %q", name, ct.String())
		}
	}
}

func TestParseUnknownNameErrors(t *testing.T) {
	if _, err := Parse("NOT_A_REAL_CONTROL"); err == nil {
		t.Fatal("expected error for unknown control name")
	}
}

func TestFromEvdevUnknownCombinationIsUnhandled(t *testing.T) {
	ct := FromEvdev(0x03, 0xFFFF)
	if !ct.IsUnhandled() {
		t.Fatalf("expected Unhandled, got %+v", ct)
	}
	ct = FromEvdev(0x99, 0x00)
	if !ct.IsUnhandled() {
		t.Fatalf("expected Unhandled for unknown evtype, got %+v", ct)
	}
}
