package blinds

import (
	"strconv"
	"strings"
	"time"

	"github.com/cjeanneret/BlindGo/internal/debug"
)

// CommandKind is the shape of a remote command.
type CommandKind int

const (
	MoveAbsolute CommandKind = iota // mva<n>
	MoveRelative                    // mvr<n>
	EnterSetup                      // set
)

func (k CommandKind) String() string {
	switch k {
	case MoveAbsolute:
		return "mva"
	case MoveRelative:
		return "mvr"
	case EnterSetup:
		return "set"
	default:
		return "unknown"
	}
}

// maxCommandSeconds bounds numeric payloads so they fit a time.Duration.
const maxCommandSeconds = 1_000_000_000

// Command is a parsed remote command.
type Command struct {
	Kind  CommandKind
	Value time.Duration // target (mva) or delta (mvr)
}

// ParseCommand parses "mva<int>", "mvr<int>" or "set". The integer is in
// seconds; a malformed number reads as 0. ok is false for anything else.
func ParseCommand(s string) (cmd Command, ok bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "mva"):
		return Command{Kind: MoveAbsolute, Value: parseSeconds(s[3:])}, true
	case strings.HasPrefix(s, "mvr"):
		return Command{Kind: MoveRelative, Value: parseSeconds(s[3:])}, true
	case s == "set":
		return Command{Kind: EnterSetup}, true
	default:
		return Command{}, false
	}
}

func parseSeconds(s string) time.Duration {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	if n > maxCommandSeconds {
		n = maxCommandSeconds
	} else if n < -maxCommandSeconds {
		n = -maxCommandSeconds
	}
	return time.Duration(n) * time.Second
}

// HandleCommand parses and executes one inbound command string.
// Unknown commands are ignored.
func (c *Controller) HandleCommand(s string) {
	cmd, ok := ParseCommand(s)
	if !ok {
		debug.Live("Ignoring unknown command %q", s)
		return
	}
	c.Execute(cmd)
}

// Execute runs a parsed command. Move commands are dropped while a
// manual override is active; setup requests never are.
func (c *Controller) Execute(cmd Command) {
	if cmd.Kind == EnterSetup {
		c.requestSetup()
		return
	}
	if c.override.active {
		debug.Live("Manual override active, dropping %s %v", cmd.Kind, cmd.Value)
		return
	}

	c.Halt()

	target := cmd.Value
	if cmd.Kind == MoveRelative {
		target = c.position + cmd.Value
	}
	c.MoveTo(target)
}

// MoveTo drives toward target. Targets beyond either end are valid: the
// motor runs for the full requested time and the clamp settles the
// position at the end.
func (c *Controller) MoveTo(target time.Duration) {
	delta := target - c.position
	switch {
	case delta > 0:
		c.Activate(c.towardMax(), delta)
	case delta < 0:
		c.Activate(c.towardZero(), -delta)
	}
}
