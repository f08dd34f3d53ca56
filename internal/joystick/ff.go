package joystick

import (
	"math"
	"sync/atomic"
)

// ffValueHalfSpan normalizes a signed 16-bit force level, matching the
// original engine's use of the full int16 range's half-span as the FF
// summary's unit scale.
const ffValueHalfSpan = float64(math.MaxInt16) / 2.0

// FFKernelEventKind tags the shape of a decoded force-feedback control
// event arriving from the kernel side of the uinput device.
type FFKernelEventKind uint8

const (
	FFEventUpload FFKernelEventKind = iota
	FFEventErase
	FFEventStatusPlaying
	FFEventStatusStopped
)

// FFKernelEvent is one decoded event from the uinput FF control path; the
// raw reader in uinput_linux.go produces these, the ffConsumer here
// interprets them.
type FFKernelEvent struct {
	Kind       FFKernelEventKind
	RequestID  int16 // for Upload/Erase
	EffectID   int16 // for StatusPlaying/StatusStopped, or the assigned id for Upload
	IsConstant bool  // for Upload: whether the uploaded effect is FF_CONSTANT
	Level      int16 // for Upload: the constant force level
}

// ffWorkingState is the small table of uploaded effects and the currently
// playing one; capacity is 1, matching the single FF_CONSTANT effect this
// design supports.
type ffWorkingState struct {
	uploadedLevel map[int16]int16
	playing       *int16
}

type ffConsumer struct {
	device  Device
	state   ffWorkingState
	summary atomic.Uint64 // bits of a float64, per Go's atomic-float idiom
	stop    chan struct{}
	done    chan struct{}
}

func newFFConsumer(device Device) *ffConsumer {
	return &ffConsumer{
		device: device,
		state:  ffWorkingState{uploadedLevel: make(map[int16]int16, 1)},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (c *ffConsumer) summaryNorm() float64 {
	return math.Float64frombits(c.summary.Load())
}

func (c *ffConsumer) setSummary(v float64) {
	c.summary.Store(math.Float64bits(v))
}

// run drains decoded FF events until stopped. The underlying raw reader
// (uinput_linux.go) owns the 0->10ms backoff sleep for when the kernel fd
// has nothing pending; this loop simply blocks on the channel, which is the
// Go-idiomatic equivalent of that backoff once events are already decoded.
func (c *ffConsumer) run() {
	defer close(c.done)
	events := c.device.FFEvents()
	for {
		select {
		case <-c.stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.apply(ev)
			c.play()
		}
	}
}

func (c *ffConsumer) apply(ev FFKernelEvent) {
	switch ev.Kind {
	case FFEventUpload:
		if !ev.IsConstant {
			_ = c.device.RespondFFUpload(ev.RequestID, ev.EffectID, -1, 0, false)
			return
		}
		// Capacity 1: a new upload replaces any existing effect.
		c.state.uploadedLevel = map[int16]int16{ev.EffectID: ev.Level}
		_ = c.device.RespondFFUpload(ev.RequestID, ev.EffectID, 0, ev.Level, true)
	case FFEventErase:
		delete(c.state.uploadedLevel, ev.EffectID)
		if c.state.playing != nil && *c.state.playing == ev.EffectID {
			c.state.playing = nil
		}
		_ = c.device.RespondFFErase(ev.RequestID, 0)
	case FFEventStatusPlaying:
		id := ev.EffectID
		c.state.playing = &id
	case FFEventStatusStopped:
		c.state.playing = nil
	}
}

func (c *ffConsumer) play() {
	var summ float64
	if c.state.playing != nil {
		if level, ok := c.state.uploadedLevel[*c.state.playing]; ok {
			summ = float64(level) / ffValueHalfSpan
		}
	}
	c.setSummary(summ)
}

func (c *ffConsumer) Stop() {
	close(c.stop)
	<-c.done
}
