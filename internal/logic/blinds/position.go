package blinds

import (
	"strconv"
	"time"

	"github.com/cjeanneret/BlindGo/internal/debug"
	"github.com/cjeanneret/BlindGo/internal/hw/relay"
)

// Position returns the estimated position, always in [0, MaxPos].
func (c *Controller) Position() time.Duration {
	return c.position
}

// towardMax is the direction that increases the position.
func (c *Controller) towardMax() relay.Direction {
	if c.cfg.InvertZero {
		return relay.Open
	}
	return relay.Close
}

func (c *Controller) towardZero() relay.Direction {
	return c.towardMax().Opposite()
}

// applyElapsedMovement moves the estimate by the time the motor ran in
// dir, clamps it and publishes.
func (c *Controller) applyElapsedMovement(dir relay.Direction, elapsed time.Duration) {
	if elapsed < 0 {
		elapsed = 0
	}
	if dir == c.towardMax() {
		c.position += elapsed
	} else {
		c.position -= elapsed
	}
	c.position = clamp(c.position, c.cfg.MaxPos)
	debug.Verbose("Position: ran %v %s, now %v", elapsed, dir, c.position)
	c.PublishStatus()
}

func clamp(pos, maxPos time.Duration) time.Duration {
	if pos < 0 {
		return 0
	}
	if pos > maxPos {
		return maxPos
	}
	return pos
}

// FormatStatus renders a position in whole seconds, with a trailing "."
// while a manual override is active.
func FormatStatus(pos time.Duration, override bool) string {
	s := strconv.FormatInt(int64(pos/time.Second), 10)
	if override {
		s += "."
	}
	return s
}
