package led

import (
	"time"

	"github.com/cjeanneret/BlindGo/internal/hw/gpio"
)

// BlinkPeriod is the half-period of the provisioning blink.
const BlinkPeriod = 250 * time.Millisecond

// Mode is what the status LED shows.
type Mode int

const (
	Solid    Mode = iota // normal operation
	Blinking             // provisioning mode
)

// LED drives the status LED. Blinking is advanced by Tick from the
// control loop rather than by a timer of its own.
type LED struct {
	gpio       gpio.Driver
	pin        int
	mode       Mode
	lit        bool
	lastToggle time.Time
}

// New configures pin as output and switches the LED on.
func New(g gpio.Driver, pin int) *LED {
	_ = g.SetupPin(pin, gpio.Output)
	l := &LED{gpio: g, pin: pin}
	l.write(true)
	return l
}

func (l *LED) write(on bool) {
	l.lit = on
	_ = l.gpio.WritePin(l.pin, gpio.Level(on))
}

// SetMode switches between solid and blinking output.
func (l *LED) SetMode(m Mode, now time.Time) {
	l.mode = m
	l.lastToggle = now
	l.write(true)
}

// Mode returns the current display mode.
func (l *LED) Mode() Mode {
	return l.mode
}

// Lit reports whether the LED is currently on.
func (l *LED) Lit() bool {
	return l.lit
}

// Tick toggles the LED when blinking and a half-period has elapsed.
func (l *LED) Tick(now time.Time) {
	if l.mode != Blinking {
		return
	}
	if now.Sub(l.lastToggle) >= BlinkPeriod {
		l.lastToggle = now
		l.write(!l.lit)
	}
}
