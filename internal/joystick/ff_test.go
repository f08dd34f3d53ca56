package joystick

import (
	"math"
	"testing"
	"time"
)

func TestFFConsumerTracksConstantForceLevel(t *testing.T) {
	dev := newFakeDevice()
	c := newFFConsumer(dev)
	go c.run()
	defer c.Stop()

	dev.ffEvents <- FFKernelEvent{Kind: FFEventUpload, RequestID: 1, EffectID: 0, IsConstant: true, Level: math.MaxInt16 / 2}
	dev.ffEvents <- FFKernelEvent{Kind: FFEventStatusPlaying, EffectID: 0}

	deadline := time.After(time.Second)
	for {
		if c.summaryNorm() > 0.9 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("summary never reached expected level, got %v", c.summaryNorm())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestFFConsumerIgnoresNonConstantUploads(t *testing.T) {
	dev := newFakeDevice()
	c := newFFConsumer(dev)
	go c.run()
	defer c.Stop()

	dev.ffEvents <- FFKernelEvent{Kind: FFEventUpload, RequestID: 1, EffectID: 0, IsConstant: false}

	time.Sleep(20 * time.Millisecond)
	if len(dev.retvals) != 1 || dev.retvals[0] >= 0 {
		t.Fatalf("expected non-constant upload to be answered once with a failure retval, retvals=%v", dev.retvals)
	}
}

func TestFFConsumerStopsOnErase(t *testing.T) {
	dev := newFakeDevice()
	c := newFFConsumer(dev)
	go c.run()
	defer c.Stop()

	dev.ffEvents <- FFKernelEvent{Kind: FFEventUpload, RequestID: 1, EffectID: 0, IsConstant: true, Level: 10000}
	dev.ffEvents <- FFKernelEvent{Kind: FFEventStatusPlaying, EffectID: 0}
	time.Sleep(10 * time.Millisecond)
	dev.ffEvents <- FFKernelEvent{Kind: FFEventErase, RequestID: 2, EffectID: 0}
	time.Sleep(10 * time.Millisecond)

	if got := c.summaryNorm(); got != 0 {
		t.Errorf("summaryNorm() after erase = %v, want 0", got)
	}
}
