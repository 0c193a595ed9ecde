package blinds

import (
	"time"

	"github.com/cjeanneret/BlindGo/internal/debug"
	"github.com/cjeanneret/BlindGo/internal/hw/relay"
)

// Moving returns the direction being driven, or relay.None when idle.
func (c *Controller) Moving() relay.Direction {
	return c.moving
}

// Deadline returns when the current movement times out.
func (c *Controller) Deadline() (time.Time, bool) {
	if c.moving == relay.None {
		return time.Time{}, false
	}
	return c.start.Add(c.duration), true
}

// Activate drives the motor in dir for d, or for MaxPos when d is 0.
// Any movement in progress is stopped (and accounted for) first, and the
// opposite relay is always released before dir is energized.
func (c *Controller) Activate(dir relay.Direction, d time.Duration) {
	if dir == relay.None {
		return
	}
	if c.moving != relay.None {
		c.Deactivate(c.moving)
	}
	if d <= 0 {
		d = c.cfg.MaxPos
	}
	if err := c.relays.Energize(dir); err != nil {
		debug.Error(err)
	}
	c.moving = dir
	c.start = c.now()
	c.duration = d
	debug.Live("Moving %s for %v", dir, d)
}

// Deactivate releases the relay for dir. If dir was being driven, the
// controller goes idle and the position is updated with the elapsed
// time. Deactivating an idle direction changes nothing.
func (c *Controller) Deactivate(dir relay.Direction) {
	if dir == relay.None {
		return
	}
	if err := c.relays.Release(dir); err != nil {
		debug.Error(err)
	}
	if c.moving != dir {
		return
	}
	elapsed := c.now().Sub(c.start)
	c.moving = relay.None
	c.duration = 0
	c.applyElapsedMovement(dir, elapsed)
}

// Supervise stops the motor once the requested duration has elapsed.
func (c *Controller) Supervise() {
	if c.moving == relay.None {
		return
	}
	if c.now().Sub(c.start) >= c.duration {
		debug.Verbose("Movement %s timed out after %v", c.moving, c.duration)
		c.Deactivate(c.moving)
	}
}
