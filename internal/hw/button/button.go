package button

import (
	"github.com/cjeanneret/BlindGo/internal/debug"
	"github.com/cjeanneret/BlindGo/internal/hw/gpio"
)

// Input is a momentary push button wired between a GPIO and ground.
// The pin uses the internal pull-up, so a pressed button reads LOW.
type Input struct {
	gpio gpio.Driver
	pin  int
}

// New configures pin as a pulled-up input.
func New(g gpio.Driver, pin int) *Input {
	_ = g.SetupPin(pin, gpio.InputPullUp)
	return &Input{gpio: g, pin: pin}
}

// Pressed samples the input. A read error counts as released.
func (b *Input) Pressed() bool {
	lvl, err := b.gpio.ReadPin(b.pin)
	if err != nil {
		debug.Error(err)
		return false
	}
	return lvl == gpio.Low
}

// Trigger reports a press once per actuation (press edge), however long
// the button is held.
type Trigger struct {
	in   *Input
	last bool
}

// NewTrigger wraps in with press-edge detection.
func NewTrigger(in *Input) *Trigger {
	return &Trigger{in: in}
}

// Fired returns true on the first sample where the button is seen pressed.
func (t *Trigger) Fired() bool {
	pressed := t.in.Pressed()
	fired := pressed && !t.last
	t.last = pressed
	return fired
}
