package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/BlindGo/internal/config"
	"github.com/cjeanneret/BlindGo/internal/hw/gpio"
	"github.com/cjeanneret/BlindGo/internal/hw/led"
	"github.com/cjeanneret/BlindGo/internal/hw/relay"
	"github.com/cjeanneret/BlindGo/internal/logic/blinds"
	"github.com/cjeanneret/BlindGo/internal/web"
)

// ---------- webPortFlag ----------

func TestWebPortFlag_EmptyString(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if err := w.Set(""); err != nil {
		t.Fatalf("Set(\"\") error: %v", err)
	}
	if w.port() != 8080 {
		t.Errorf("expected default port 8080, got %d", w.port())
	}
}

func TestWebPortFlag_ValidPorts(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"8080", 8080},
		{"1", 1},
		{"65535", 65535},
		{"3000", 3000},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(tc.input); err != nil {
				t.Fatalf("Set(%q) error: %v", tc.input, err)
			}
			if w.port() != tc.want {
				t.Errorf("port() = %d, want %d", w.port(), tc.want)
			}
		})
	}
}

func TestWebPortFlag_InvalidPorts(t *testing.T) {
	cases := []string{"0", "65536", "-1", "abc", "8080.5"}
	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(input); err == nil {
				t.Errorf("Set(%q) should fail, got nil", input)
			}
		})
	}
}

func TestWebPortFlag_String(t *testing.T) {
	w := &webPortFlag{val: 0}
	if s := w.String(); s != "0" {
		t.Errorf("String() = %q, want \"0\"", s)
	}
	w.val = 9090
	if s := w.String(); s != "9090" {
		t.Errorf("String() = %q, want \"9090\"", s)
	}
}

// ---------- applyFlags ----------

func newTestConfig() *config.Config {
	return &config.Config{
		Blinds: config.BlindsConfig{MaxPosS: 60},
		Pins: config.PinsConfig{
			RelayOpen:  22,
			RelayClose: 23,
			SwitchA:    17,
			SwitchB:    27,
		},
		Remote: config.RemoteConfig{BaudRate: 115200, WebPort: 8080},
		Defaults: config.DefaultsConfig{
			DebugLevel:    1,
			GPIOBackend:   "mock",
			TickMs:        10,
			SetupTimeoutS: 300,
		},
	}
}

func TestApplyFlags_ZeroKeepsConfig(t *testing.T) {
	cfg := newTestConfig()
	require.NoError(t, applyFlags(cfg, 0, "", -1))
	assert.Equal(t, newTestConfig(), cfg)
}

func TestApplyFlags_Overrides(t *testing.T) {
	cfg := newTestConfig()
	require.NoError(t, applyFlags(cfg, 9090, "/dev/ttyUSB0", 0))
	assert.Equal(t, 9090, cfg.Remote.WebPort)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Remote.SerialPort)
	assert.Equal(t, 0, cfg.Defaults.DebugLevel)
}

func TestApplyFlags_DebugLevelOutOfRange(t *testing.T) {
	cfg := newTestConfig()
	assert.Error(t, applyFlags(cfg, 0, "", 5))
	assert.Equal(t, 1, cfg.Defaults.DebugLevel)
}

// ---------- settings ----------

func TestBlindsConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.Blinds.InvertZero = true
	bc := blindsConfig(cfg)
	assert.Equal(t, 60*time.Second, bc.MaxPos)
	assert.True(t, bc.InvertZero)
	assert.False(t, bc.InvertSwitch)
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.Blinds.DisableManualLock = true
	assert.Equal(t, web.Settings{MaxPosSeconds: 60, DisableManualLock: true}, settingsFromConfig(cfg))
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, config.Save(path, newTestConfig()))
	return path
}

func TestSettingsSaver_ReplacesOnlyBlinds(t *testing.T) {
	path := writeTestConfig(t)
	running, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, applyFlags(running, 9999, "/dev/ttyUSB9", 4))
	save := newSettingsSaver(path)

	require.NoError(t, save(web.Settings{MaxPosSeconds: 42, InvertSwitch: true}))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Blinds.MaxPosS)
	assert.True(t, loaded.Blinds.InvertSwitch)
	want := newTestConfig()
	assert.Equal(t, want.Pins, loaded.Pins)
	assert.Equal(t, want.Remote, loaded.Remote, "command-line overrides must not be saved")
	assert.Equal(t, want.Defaults, loaded.Defaults, "command-line overrides must not be saved")
	assert.Equal(t, 60, running.Blinds.MaxPosS, "running config must not change")
}

func TestSettingsSaver_RejectsInvalid(t *testing.T) {
	path := writeTestConfig(t)
	save := newSettingsSaver(path)

	assert.Error(t, save(web.Settings{MaxPosSeconds: 100000}))
	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60, loaded.Blinds.MaxPosS)
}

func TestSettingsSaver_MissingFile(t *testing.T) {
	save := newSettingsSaver(filepath.Join(t.TempDir(), "default.yaml"))
	assert.Error(t, save(web.Settings{MaxPosSeconds: 30}))
}

// ---------- setupIndicator ----------

func TestSetupIndicator_UsesGivenClock(t *testing.T) {
	g := gpio.NewMockDriver()
	statusLED := led.New(g, 18)
	relays := relay.NewPair(g, relay.Config{OpenPin: 22, ClosePin: 23})
	ctrl := blinds.New(blinds.Config{MaxPos: time.Minute}, relays, nil, nil)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	ind := &setupIndicator{ctrl: ctrl, led: statusLED, now: func() time.Time { return now }}

	ctrl.Activate(relay.Close, 0)
	require.Equal(t, relay.Close, ctrl.Moving())

	ind.started()
	assert.Equal(t, led.Blinking, statusLED.Mode())
	assert.Equal(t, relay.None, ctrl.Moving(), "entering setup halts the motor")
	assert.True(t, statusLED.Lit())

	// Blink timing follows the injected clock, not wall time.
	statusLED.Tick(base.Add(led.BlinkPeriod - time.Millisecond))
	assert.True(t, statusLED.Lit())
	statusLED.Tick(base.Add(led.BlinkPeriod))
	assert.False(t, statusLED.Lit())

	now = base.Add(time.Minute)
	ind.stopped()
	assert.Equal(t, led.Solid, statusLED.Mode())
	assert.True(t, statusLED.Lit())
}

func TestSetupIndicator_NoLED(t *testing.T) {
	g := gpio.NewMockDriver()
	relays := relay.NewPair(g, relay.Config{OpenPin: 22, ClosePin: 23})
	ctrl := blinds.New(blinds.Config{MaxPos: time.Minute}, relays, nil, nil)
	ind := &setupIndicator{ctrl: ctrl, now: time.Now}

	assert.NotPanics(t, ind.started)
	assert.NotPanics(t, ind.stopped)
}

// ---------- run ----------

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := newTestConfig()
	cfg.Remote.WebPort = 0
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, cfg, "configs/default.yaml") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRun_BadSerialPort(t *testing.T) {
	cfg := newTestConfig()
	cfg.Remote.WebPort = 0
	cfg.Remote.SerialPort = filepath.Join(t.TempDir(), "no-such-tty")

	err := run(context.Background(), cfg, "configs/default.yaml")
	assert.ErrorContains(t, err, "open serial link")
}
