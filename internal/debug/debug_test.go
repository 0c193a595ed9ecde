package debug

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func capture(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(lvl)
	t.Cleanup(func() {
		Init(LevelOff)
	})
	return &buf
}

func TestInit_OffPrintsNothing(t *testing.T) {
	buf := capture(t, LevelOff)

	Info("hello %d", 1)
	Error(errors.New("boom"))

	if buf.Len() != 0 {
		t.Errorf("expected no output at level 0, got %q", buf.String())
	}
}

func TestLevelGating(t *testing.T) {
	buf := capture(t, LevelLive)

	Info("info line")
	Relay("close", true)
	Verbose("verbose line")
	GPIO("WritePin", 17, true)

	out := buf.String()
	if !strings.Contains(out, "[INFO] info line") {
		t.Errorf("missing info line in %q", out)
	}
	if !strings.Contains(out, "Relay close: on") {
		t.Errorf("missing relay line in %q", out)
	}
	if strings.Contains(out, "verbose line") {
		t.Error("verbose line should be gated at level 2")
	}
	if strings.Contains(out, "[GPIO]") {
		t.Error("GPIO trace should be gated at level 2")
	}
}

func TestSwitchAndPosition(t *testing.T) {
	buf := capture(t, LevelLive)

	Switch("A", true)
	Switch("A", false)
	Position("30.")

	out := buf.String()
	for _, want := range []string{"Switch A pressed", "Switch A released", "Position: 30."} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestIsEnabled(t *testing.T) {
	capture(t, LevelVerbose)

	if !IsEnabled(LevelInfo) {
		t.Error("info should be enabled at verbose level")
	}
	if IsEnabled(LevelTrace) {
		t.Error("trace should not be enabled at verbose level")
	}
	if Level() != LevelVerbose {
		t.Errorf("Level() = %d, want %d", Level(), LevelVerbose)
	}
}

func TestFmt(t *testing.T) {
	capture(t, LevelOff)
	if got := Fmt("x=%d", 1); got != "" {
		t.Errorf("Fmt at level 0 = %q, want empty", got)
	}
	Init(LevelInfo)
	if got := Fmt("x=%d", 1); got != "x=1" {
		t.Errorf("Fmt = %q, want x=1", got)
	}
}
