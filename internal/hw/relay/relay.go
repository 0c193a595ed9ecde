package relay

import (
	"github.com/cjeanneret/BlindGo/internal/debug"
	"github.com/cjeanneret/BlindGo/internal/hw/gpio"
)

// Direction selects one of the two motor relays.
type Direction int

const (
	None Direction = iota
	Open
	Close
)

func (d Direction) String() string {
	switch d {
	case Open:
		return "open"
	case Close:
		return "close"
	default:
		return "none"
	}
}

// Opposite returns the other direction. None has no opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case Open:
		return Close
	case Close:
		return Open
	default:
		return None
	}
}

// Config holds the hardware configuration for the relay pair.
type Config struct {
	OpenPin  int // relay driving the motor toward "open" (active HIGH)
	ClosePin int // relay driving the motor toward "close" (active HIGH)
}

// Pair owns the two direction relays of a curtain motor and guarantees
// that they are never energized together: the opposite output is always
// written LOW before the requested one is written HIGH.
type Pair struct {
	gpio gpio.Driver
	cfg  Config
	on   Direction
}

// NewPair configures both relay pins as outputs and releases them.
func NewPair(g gpio.Driver, cfg Config) *Pair {
	_ = g.SetupPin(cfg.OpenPin, gpio.Output)
	_ = g.SetupPin(cfg.ClosePin, gpio.Output)

	p := &Pair{gpio: g, cfg: cfg}
	_ = p.Off()
	return p
}

func (p *Pair) pin(dir Direction) int {
	if dir == Open {
		return p.cfg.OpenPin
	}
	return p.cfg.ClosePin
}

// Energize switches the motor on in dir. The opposite relay is released
// first, unconditionally.
func (p *Pair) Energize(dir Direction) error {
	if dir == None {
		return p.Off()
	}
	if err := p.gpio.WritePin(p.pin(dir.Opposite()), gpio.Low); err != nil {
		return err
	}
	if p.on == dir.Opposite() {
		debug.Relay(dir.Opposite().String(), false)
		p.on = None
	}
	if err := p.gpio.WritePin(p.pin(dir), gpio.High); err != nil {
		return err
	}
	if p.on != dir {
		debug.Relay(dir.String(), true)
	}
	p.on = dir
	return nil
}

// Release switches off the relay for dir. Releasing an idle relay is
// harmless.
func (p *Pair) Release(dir Direction) error {
	if dir == None {
		return nil
	}
	if err := p.gpio.WritePin(p.pin(dir), gpio.Low); err != nil {
		return err
	}
	if p.on == dir {
		debug.Relay(dir.String(), false)
		p.on = None
	}
	return nil
}

// Off releases both relays.
func (p *Pair) Off() error {
	errOpen := p.gpio.WritePin(p.cfg.OpenPin, gpio.Low)
	errClose := p.gpio.WritePin(p.cfg.ClosePin, gpio.Low)
	p.on = None
	if errOpen != nil {
		return errOpen
	}
	return errClose
}

// Energized returns the direction currently driven, or None.
func (p *Pair) Energized() Direction {
	return p.on
}
