package blinds

import (
	"time"

	"github.com/cjeanneret/BlindGo/internal/debug"
	"github.com/cjeanneret/BlindGo/internal/hw/relay"
)

// Switch identifies one of the two wall switches.
type Switch int

const (
	NoSwitch Switch = iota
	SwitchA
	SwitchB
)

func (s Switch) String() string {
	switch s {
	case SwitchA:
		return "A"
	case SwitchB:
		return "B"
	default:
		return "-"
	}
}

// override is the manual control state. While active, remote move
// commands are dropped.
type override struct {
	active      bool
	locked      bool
	held        Switch
	pressedAt   time.Time
	lastRelease time.Time
	taps        int // consecutive releases less than MaxDelay apart
}

// ManualOverride reports whether an operator currently has control.
func (c *Controller) ManualOverride() bool {
	return c.override.active
}

// Locked reports whether the lock gesture froze the curtain.
func (c *Controller) Locked() bool {
	return c.override.locked
}

// Taps returns the current quick-tap count.
func (c *Controller) Taps() int {
	return c.override.taps
}

// direction maps a switch to the motor direction it drives.
func (c *Controller) direction(sw Switch) relay.Direction {
	dir := relay.Open
	if sw == SwitchB {
		dir = relay.Close
	}
	if c.cfg.InvertSwitch {
		dir = dir.Opposite()
	}
	return dir
}

// HandleSwitches feeds one sample of the two wall switches (true =
// pressed). Switch A is checked first and wins when both are pressed.
func (c *Controller) HandleSwitches(a, b bool) {
	now := c.now()
	o := &c.override
	if !o.lastRelease.IsZero() && now.Sub(o.lastRelease) < MinDelay {
		return
	}

	switch {
	case a:
		c.press(SwitchA, now)
	case b:
		c.press(SwitchB, now)
	default:
		c.release(now)
	}
}

func (c *Controller) press(sw Switch, now time.Time) {
	o := &c.override
	if o.held == sw {
		// Still held. If the motor timed out meanwhile the override
		// stays set until the switch is let go.
		return
	}

	quick := !o.lastRelease.IsZero() && now.Sub(o.lastRelease) < MaxDelay
	o.held = sw
	o.pressedAt = now
	debug.Switch(sw.String(), true)

	if o.locked {
		if !quick {
			debug.Live("Manual lock released")
			o.locked = false
		}
		return
	}

	if quick && o.taps == 1 && !c.cfg.DisableManualLock {
		debug.Live("Manual lock engaged at %v", c.position)
		o.locked = true
		o.active = true
		c.Halt()
		c.PublishStatus()
		return
	}

	o.active = true
	if dir := c.direction(sw); c.moving != dir {
		c.Activate(dir, 0)
	}
	c.PublishStatus()
}

func (c *Controller) release(now time.Time) {
	o := &c.override
	if o.held == NoSwitch {
		return
	}
	debug.Switch(o.held.String(), false)
	o.held = NoSwitch

	c.Halt()

	if !o.lastRelease.IsZero() && now.Sub(o.lastRelease) < MaxDelay {
		o.taps++
	} else {
		o.taps = 0
	}
	o.lastRelease = now
	debug.Verbose("Switch released, taps=%d", o.taps)

	if o.taps >= SetupTaps {
		o.taps = 0
		o.locked = false
		c.requestSetup()
	}
	if !o.locked {
		o.active = false
	}
	c.PublishStatus()
}
