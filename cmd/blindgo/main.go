package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cjeanneret/BlindGo/internal/config"
	"github.com/cjeanneret/BlindGo/internal/debug"
	"github.com/cjeanneret/BlindGo/internal/hw/button"
	"github.com/cjeanneret/BlindGo/internal/hw/gpio"
	"github.com/cjeanneret/BlindGo/internal/hw/led"
	"github.com/cjeanneret/BlindGo/internal/hw/relay"
	"github.com/cjeanneret/BlindGo/internal/logic/blinds"
	"github.com/cjeanneret/BlindGo/internal/logic/loop"
	"github.com/cjeanneret/BlindGo/internal/logic/provision"
	"github.com/cjeanneret/BlindGo/internal/remote/serial"
	"github.com/cjeanneret/BlindGo/internal/status"
	"github.com/cjeanneret/BlindGo/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port (overrides remote.web_port)")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	serialPort := flag.String("serial", "", "serial device for remote commands (overrides remote.serial_port)")
	debugLevel := flag.Int("debug", -1, "debug level 0-4 (overrides defaults.debug_level)")
	flag.Parse()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("config path: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if err := applyFlags(cfg, webPort.port(), *serialPort, *debugLevel); err != nil {
		log.Fatalf("invalid flag: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.PrintStruct("Blinds config", cfg.Blinds)
	debug.PrintStruct("Pins", cfg.Pins)

	if err := run(ctx, cfg, *cfgPath); err != nil {
		log.Fatalf("blindgo: %v", err)
	}
}

// run wires the hardware, the control loop and the remote channels, and
// blocks until ctx is cancelled. Relays are released before it returns.
func run(ctx context.Context, cfg *config.Config, cfgPath string) error {
	debug.Value("GPIO backend", cfg.Defaults.GPIOBackend)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.GPIOBackend)
	if err != nil {
		return fmt.Errorf("init GPIO: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	debug.Step(2, "Initializing relays and inputs")
	relays := relay.NewPair(gpioDriver, relay.Config{
		OpenPin:  cfg.Pins.RelayOpen,
		ClosePin: cfg.Pins.RelayClose,
	})
	defer func() {
		if err := relays.Off(); err != nil {
			log.Printf("releasing relays failed: %v", err)
		}
	}()
	switchA := button.New(gpioDriver, cfg.Pins.SwitchA)
	switchB := button.New(gpioDriver, cfg.Pins.SwitchB)

	var setupTrigger loop.Trigger
	if cfg.Pins.SetupButton != 0 {
		setupTrigger = button.NewTrigger(button.New(gpioDriver, cfg.Pins.SetupButton))
	}
	var statusLED *led.LED
	if cfg.Pins.LED != 0 {
		statusLED = led.New(gpioDriver, cfg.Pins.LED)
	}

	debug.Step(3, "Creating controller")
	hub := status.NewHub()

	indicator := &setupIndicator{led: statusLED, now: time.Now}
	prov := provision.New(cfg.SetupTimeout(), provision.Hooks{
		OnStarted: indicator.started,
		OnStopped: indicator.stopped,
	})
	ctrl := blinds.New(blindsConfig(cfg), relays, hub, prov)
	indicator.ctrl = ctrl

	lp := loop.New(loop.Config{
		Controller:   ctrl,
		SwitchA:      switchA,
		SwitchB:      switchB,
		Setup:        setupTrigger,
		Provisioning: prov,
		LED:          statusLED,
		Period:       cfg.Tick(),
	})
	indicator.now = lp.Now

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	if cfg.Remote.SerialPort != "" {
		debug.Step(4, "Opening serial link")
		link, err := serial.Open(cfg.Remote.SerialPort, cfg.Remote.BaudRate, lp.Submit)
		if err != nil {
			return fmt.Errorf("open serial link: %w", err)
		}
		defer link.Close()
		unsub := hub.Subscribe(link)
		defer unsub()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := link.Run(ctx); err != nil {
				log.Printf("serial link: %v", err)
				cancel()
			}
		}()
	}

	if cfg.Remote.WebPort > 0 {
		debug.Step(5, "Starting web server")
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
		defer debug.SetOutput(os.Stdout)
		unsub := hub.Subscribe(broadcaster)
		defer unsub()

		srv := web.NewServer(fmt.Sprintf(":%d", cfg.Remote.WebPort), web.Deps{
			Broadcaster:  broadcaster,
			Submit:       lp.Submit,
			Status:       hub,
			Provisioning: prov,
			Settings:     settingsFromConfig(cfg),
			SaveSettings: newSettingsSaver(cfgPath),
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				log.Printf("web server: %v", err)
				cancel()
			}
		}()
	}

	ctrl.PublishStatus()
	debug.Summary("BlindGo ready")

	err = lp.Run(ctx)
	cancel()
	wg.Wait()
	debug.Info("Shutdown complete")
	return err
}

// applyFlags overrides configuration values given on the command line.
// Zero or empty values (and a negative debug level) keep the config value.
func applyFlags(cfg *config.Config, webPort int, serialPort string, debugLevel int) error {
	if webPort > 0 {
		cfg.Remote.WebPort = webPort
	}
	if serialPort != "" {
		cfg.Remote.SerialPort = serialPort
	}
	if debugLevel >= 0 {
		if debugLevel > debug.LevelTrace {
			return fmt.Errorf("debug level must be 0-%d, got %d", debug.LevelTrace, debugLevel)
		}
		cfg.Defaults.DebugLevel = debugLevel
	}
	return nil
}

func blindsConfig(cfg *config.Config) blinds.Config {
	return blinds.Config{
		MaxPos:            cfg.MaxPos(),
		InvertZero:        cfg.Blinds.InvertZero,
		InvertSwitch:      cfg.Blinds.InvertSwitch,
		DisableManualLock: cfg.Blinds.DisableManualLock,
	}
}

func settingsFromConfig(cfg *config.Config) web.Settings {
	return web.Settings{
		MaxPosSeconds:     cfg.Blinds.MaxPosS,
		InvertZero:        cfg.Blinds.InvertZero,
		InvertSwitch:      cfg.Blinds.InvertSwitch,
		DisableManualLock: cfg.Blinds.DisableManualLock,
	}
}

// newSettingsSaver replaces the blinds section of the config file at path.
// Other sections are re-read from disk so command-line overrides are never
// persisted. The running controller keeps its settings until restart.
func newSettingsSaver(path string) web.SaveSettingsFunc {
	return func(s web.Settings) error {
		next, err := config.Load(path)
		if err != nil {
			return err
		}
		next.Blinds = config.BlindsConfig{
			MaxPosS:           s.MaxPosSeconds,
			InvertZero:        s.InvertZero,
			InvertSwitch:      s.InvertSwitch,
			DisableManualLock: s.DisableManualLock,
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := config.Save(path, next); err != nil {
			return err
		}
		debug.Info("Settings saved to %s", path)
		return nil
	}
}

// setupIndicator runs on the control loop when setup mode starts or stops:
// the motor is halted on entry and the LED blinks while setup is active.
type setupIndicator struct {
	ctrl *blinds.Controller
	led  *led.LED
	now  func() time.Time
}

func (s *setupIndicator) started() {
	s.ctrl.OnProvisioningStarted()
	if s.led != nil {
		s.led.SetMode(led.Blinking, s.now())
	}
}

func (s *setupIndicator) stopped() {
	s.ctrl.OnProvisioningStopped()
	if s.led != nil {
		s.led.SetMode(led.Solid, s.now())
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
