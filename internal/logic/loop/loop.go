package loop

import (
	"context"
	"time"

	"github.com/cjeanneret/BlindGo/internal/debug"
	"github.com/cjeanneret/BlindGo/internal/hw/led"
	"github.com/cjeanneret/BlindGo/internal/logic/blinds"
	"github.com/cjeanneret/BlindGo/internal/logic/provision"
)

// DefaultPeriod is the idle polling period.
const DefaultPeriod = 10 * time.Millisecond

// DefaultQueueSize is the number of remote commands that may wait for
// the next tick.
const DefaultQueueSize = 16

// Sampler is a momentary input sampled every tick.
type Sampler interface {
	Pressed() bool
}

// Trigger reports one event per actuation.
type Trigger interface {
	Fired() bool
}

// Config wires the loop. Only Controller, SwitchA and SwitchB are required.
type Config struct {
	Controller   *blinds.Controller
	SwitchA      Sampler
	SwitchB      Sampler
	Setup        Trigger
	Provisioning *provision.Manager
	LED          *led.LED
	Period       time.Duration
	QueueSize    int
}

// Loop is the single cooperative actor that owns the controller. Other
// goroutines only talk to it through Submit.
type Loop struct {
	cfg      Config
	commands chan string
	wake     chan struct{}
	now      func() time.Time
}

// New creates a loop; call Run to start it.
func New(cfg Config) *Loop {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Loop{
		cfg:      cfg,
		commands: make(chan string, cfg.QueueSize),
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for LED and provisioning ticks.
func (l *Loop) SetClock(now func() time.Time) {
	l.now = now
}

// Now returns the loop's current time.
func (l *Loop) Now() time.Time {
	return l.now()
}

// Submit queues a remote command for the next tick. It never blocks and
// returns false when the queue is full and the command was dropped.
func (l *Loop) Submit(cmd string) bool {
	select {
	case l.commands <- cmd:
	default:
		debug.Live("Command queue full, dropping %q", cmd)
		return false
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Tick runs one iteration: physical inputs, then the movement timeout,
// then queued remote commands, then provisioning and LED housekeeping.
func (l *Loop) Tick() {
	now := l.now()
	ctrl := l.cfg.Controller

	ctrl.HandleSwitches(l.cfg.SwitchA.Pressed(), l.cfg.SwitchB.Pressed())
	if l.cfg.Setup != nil && l.cfg.Setup.Fired() {
		debug.Live("Setup button pressed")
		if l.cfg.Provisioning != nil {
			l.cfg.Provisioning.Start(now)
		}
	}

	ctrl.Supervise()

	for drained := false; !drained; {
		select {
		case cmd := <-l.commands:
			debug.Live("Command %q", cmd)
			ctrl.HandleCommand(cmd)
		default:
			drained = true
		}
	}

	if l.cfg.Provisioning != nil {
		l.cfg.Provisioning.Tick(now)
	}
	if l.cfg.LED != nil {
		l.cfg.LED.Tick(now)
	}
}

// NextWait is the delay before the next tick: the polling period, cut
// short so that a running motor is checked exactly at its deadline.
func (l *Loop) NextWait() time.Duration {
	wait := l.cfg.Period
	if deadline, ok := l.cfg.Controller.Deadline(); ok {
		if rem := deadline.Sub(l.now()); rem < wait {
			wait = rem
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// Run ticks until ctx is cancelled, then stops the motor.
func (l *Loop) Run(ctx context.Context) error {
	debug.Info("Control loop running (period %v)", l.cfg.Period)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.cfg.Controller.Halt()
			debug.Info("Control loop stopped")
			return nil
		case <-timer.C:
		case <-l.wake:
		}
		l.Tick()
		timer.Reset(l.NextWait())
	}
}
