package blinds

import (
	"time"

	"github.com/cjeanneret/BlindGo/internal/hw/relay"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

// fakeRelays mimics relay.Pair and records whether both outputs were
// ever energized together.
type fakeRelays struct {
	on      map[relay.Direction]bool
	overlap bool
	log     []string
}

func newFakeRelays() *fakeRelays {
	return &fakeRelays{on: make(map[relay.Direction]bool)}
}

func (r *fakeRelays) Energize(dir relay.Direction) error {
	r.on[dir.Opposite()] = false
	r.on[dir] = true
	r.log = append(r.log, "+"+dir.String())
	if r.on[relay.Open] && r.on[relay.Close] {
		r.overlap = true
	}
	return nil
}

func (r *fakeRelays) Release(dir relay.Direction) error {
	r.on[dir] = false
	r.log = append(r.log, "-"+dir.String())
	return nil
}

func (r *fakeRelays) energized() relay.Direction {
	switch {
	case r.on[relay.Open]:
		return relay.Open
	case r.on[relay.Close]:
		return relay.Close
	default:
		return relay.None
	}
}

type recordingPublisher struct {
	published []string
}

func (p *recordingPublisher) Publish(status string) {
	p.published = append(p.published, status)
}

func (p *recordingPublisher) last() string {
	if len(p.published) == 0 {
		return ""
	}
	return p.published[len(p.published)-1]
}

type countingProvisioner struct {
	requests int
}

func (p *countingProvisioner) RequestSetup() {
	p.requests++
}

type harness struct {
	ctrl   *Controller
	clock  *fakeClock
	relays *fakeRelays
	pub    *recordingPublisher
	setup  *countingProvisioner
}

func newHarness(cfg Config) *harness {
	h := &harness{
		clock:  newFakeClock(),
		relays: newFakeRelays(),
		pub:    &recordingPublisher{},
		setup:  &countingProvisioner{},
	}
	h.ctrl = New(cfg, h.relays, h.pub, h.setup)
	h.ctrl.SetClock(h.clock.Now)
	return h
}

func defaultConfig() Config {
	return Config{MaxPos: 60 * time.Second}
}

// tick runs one loop iteration in the fixed order.
func (h *harness) tick(a, b bool, commands ...string) {
	h.ctrl.HandleSwitches(a, b)
	h.ctrl.Supervise()
	for _, cmd := range commands {
		h.ctrl.HandleCommand(cmd)
	}
}

// tap presses switch A after wait, holds it for hold, then releases.
func (h *harness) tap(wait, hold time.Duration) {
	h.clock.Advance(wait)
	h.tick(true, false)
	h.clock.Advance(hold)
	h.tick(false, false)
}

// runUntilIdle advances time in steps until the motor stops.
func (h *harness) runUntilIdle(step time.Duration) {
	for i := 0; i < 1_000_000 && h.ctrl.Moving() != relay.None; i++ {
		h.clock.Advance(step)
		h.tick(false, false)
	}
}
