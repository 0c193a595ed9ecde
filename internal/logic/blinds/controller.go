package blinds

import (
	"time"

	"github.com/cjeanneret/BlindGo/internal/debug"
	"github.com/cjeanneret/BlindGo/internal/hw/relay"
)

// Gesture timing.
const (
	MinDelay  = 200 * time.Millisecond // inputs ignored this long after a release
	MaxDelay  = 500 * time.Millisecond // window for consecutive taps
	SetupTaps = 5                      // quick taps that request setup mode
)

// Config is the immutable part of the persisted settings the core needs.
type Config struct {
	MaxPos            time.Duration // full travel time
	InvertZero        bool          // position 0 is the closed end
	InvertSwitch      bool          // swap the directions of the two wall switches
	DisableManualLock bool          // ignore the lock gesture
}

// Relays is the hardware half of the relay driver.
type Relays interface {
	Energize(dir relay.Direction) error
	Release(dir relay.Direction) error
}

// Publisher receives every status change.
type Publisher interface {
	Publish(status string)
}

// Provisioner enters setup mode.
type Provisioner interface {
	RequestSetup()
}

// Controller aggregates position, movement and manual override state.
type Controller struct {
	cfg    Config
	relays Relays
	pub    Publisher
	setup  Provisioner
	now    func() time.Time

	position time.Duration

	moving   relay.Direction
	start    time.Time
	duration time.Duration

	override override
}

// New creates a controller at position 0 with both relays idle.
// pub and setup may be nil.
func New(cfg Config, relays Relays, pub Publisher, setup Provisioner) *Controller {
	if cfg.MaxPos <= 0 {
		cfg.MaxPos = 60 * time.Second
	}
	return &Controller{
		cfg:    cfg,
		relays: relays,
		pub:    pub,
		setup:  setup,
		now:    time.Now,
	}
}

// SetClock replaces the time source.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Config returns the configuration the controller was built with.
func (c *Controller) Config() Config {
	return c.cfg
}

// Status returns the formatted status for the current state.
func (c *Controller) Status() string {
	return FormatStatus(c.position, c.override.active)
}

// PublishStatus emits the current status unconditionally.
func (c *Controller) PublishStatus() {
	s := c.Status()
	debug.Position(s)
	if c.pub != nil {
		c.pub.Publish(s)
	}
}

func (c *Controller) requestSetup() {
	debug.Info("Setup mode requested")
	if c.setup != nil {
		c.setup.RequestSetup()
	}
}

// Halt stops any movement in progress.
func (c *Controller) Halt() {
	if c.moving != relay.None {
		c.Deactivate(c.moving)
	}
}

// OnProvisioningStarted is the hook run when setup mode begins.
func (c *Controller) OnProvisioningStarted() {
	debug.Info("Provisioning started, halting motor")
	c.Halt()
}

// OnProvisioningStopped is the hook run when setup mode ends.
func (c *Controller) OnProvisioningStopped() {
	debug.Info("Provisioning stopped")
}
