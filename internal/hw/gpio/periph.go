package gpio

import (
	"fmt"

	"github.com/cjeanneret/BlindGo/internal/debug"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphDriver drives GPIOs through periph.io. Pins are addressed by
// their BCM numbers and looked up as "GPIO<n>".
type PeriphDriver struct {
	pins map[int]pgpio.PinIO
}

// NewPeriphDriver initialises the periph host drivers.
func NewPeriphDriver() (*PeriphDriver, error) {
	debug.Info("Initializing real GPIO driver (periph.io)")

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	return &PeriphDriver{
		pins: make(map[int]pgpio.PinIO),
	}, nil
}

func (d *PeriphDriver) lookup(pin int) (pgpio.PinIO, error) {
	if p, ok := d.pins[pin]; ok {
		return p, nil
	}
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, fmt.Errorf("gpio pin %d not found", pin)
	}
	d.pins[pin] = p
	return p, nil
}

func (d *PeriphDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	p, err := d.lookup(pin)
	if err != nil {
		return err
	}

	switch mode {
	case Input:
		return p.In(pgpio.Float, pgpio.NoEdge)
	case InputPullUp:
		return p.In(pgpio.PullUp, pgpio.NoEdge)
	case Output:
		return p.Out(pgpio.Low)
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
}

func (d *PeriphDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	p, err := d.lookup(pin)
	if err != nil {
		return err
	}
	if level == High {
		return p.Out(pgpio.High)
	}
	return p.Out(pgpio.Low)
}

func (d *PeriphDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)

	p, err := d.lookup(pin)
	if err != nil {
		return Low, err
	}
	return Level(p.Read() == pgpio.High), nil
}

func (d *PeriphDriver) Close() error {
	debug.Trace("GPIO Close (periph driver)")

	var firstErr error
	for pin, p := range d.pins {
		debug.Verbose("Resetting pin %d to input", pin)
		if err := p.In(pgpio.Float, pgpio.NoEdge); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
