package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chaz8081/ledctl/internal/ble"
	"github.com/chaz8081/ledctl/internal/config"
	"github.com/chaz8081/ledctl/internal/logger"
	"github.com/chaz8081/ledctl/internal/telemetry"
)

var (
	flagConfig   string
	flagAddress  string
	flagProtocol string
	flagBackend  string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledctl",
		Short: "Control Bluetooth LE RGB LED strips",
		Long: `ledctl connects to a BLE RGB LED controller, sends one command and
disconnects.

Two firmware families are supported: protocol "a" (ELK-BLEDOM style
controllers, write characteristic FFE9 or FFF3) and protocol "b" (controllers
whose FFF3 characteristic accepts writes). The protocol is never guessed; set
it in the config file or with --protocol.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "path to config file (default: ~/.config/ledctl/config.yaml)")
	pf.StringVar(&flagAddress, "address", "", "device address, e.g. BE:32:03:82:3C:B1")
	pf.StringVar(&flagProtocol, "protocol", "", "protocol profile: a or b")
	pf.StringVar(&flagBackend, "backend", "", "bluetooth backend: bluez or tinygo")

	rootCmd.AddCommand(
		newPowerCmd(),
		newColorCmd(),
		newBrightnessCmd(),
		newWarmWhiteCmd(),
		newEffectCmd(),
		newModeCmd(),
		newScanCmd(),
		newInitCmd(),
	)
	return rootCmd
}

// env is the per-invocation environment built from config and flags.
type env struct {
	cfg      *config.Config
	log      *slog.Logger
	shutdown func(context.Context) error
	closeLog func() error
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if flagAddress != "" {
		cfg.Device.Address = flagAddress
	}
	if flagProtocol != "" {
		cfg.Device.Protocol = flagProtocol
	}
	if flagBackend != "" {
		cfg.Device.Backend = flagBackend
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	shutdown, err := telemetry.Setup(ctx, cfg.Tracing)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("tracing: %w", err)
	}
	return &env{cfg: cfg, log: log, shutdown: shutdown, closeLog: closeLog}, nil
}

func (r *env) close() {
	if err := r.shutdown(context.Background()); err != nil {
		r.log.Warn("tracing shutdown failed", "error", err)
	}
	r.closeLog()
}

// withSession opens a session to the configured device, runs fn and closes
// the session again.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *ble.Session) error) error {
	ctx := cmd.Context()
	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	addr, err := rt.cfg.Address()
	if err != nil {
		return err
	}
	profile, err := rt.cfg.Profile()
	if err != nil {
		return err
	}
	mgr, err := ble.NewManager(rt.cfg.Device.Backend)
	if err != nil {
		return err
	}

	obs := ble.MultiObserver{
		ble.SlogObserver(rt.log),
		telemetry.NewObserver(ctx, nil),
	}
	rt.log.Info("[BLE] connecting", "device", addr.String(), "protocol", profile.String(), "backend", rt.cfg.Device.Backend)

	s, err := ble.Open(ctx, mgr, addr, profile, rt.cfg.Options(profile, obs))
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			rt.log.Warn("[BLE] disconnect failed", "error", err)
		}
	}()

	return fn(ctx, s)
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}
