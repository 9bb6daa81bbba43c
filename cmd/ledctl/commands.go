package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chaz8081/ledctl/internal/ble"
	"github.com/chaz8081/ledctl/internal/config"
	"github.com/chaz8081/ledctl/internal/palette"
)

func newPowerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "power on|off",
		Short: "Switch the LEDs on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parsePower(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *ble.Session) error {
				return s.SetPower(ctx, on)
			})
		},
	}
}

func newColorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "color <name> | <r> <g> <b>",
		Short: "Set a static color",
		Long:  "Set a static color by name (" + strings.Join(palette.ColorNames(), ", ") + ") or by red, green and blue values 0-255.",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, g, b, err := parseColor(args)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *ble.Session) error {
				return s.SetColor(ctx, r, g, b)
			})
		},
	}
}

func newBrightnessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brightness <level>",
		Short: "Set brightness in percent",
		Long:  "Set brightness by preset (" + strings.Join(palette.Names(palette.BrightnessLevels), ", ") + ") or percent 0-100.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseBrightness(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *ble.Session) error {
				return s.SetBrightness(ctx, v)
			})
		},
	}
}

func newWarmWhiteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm-white <level>",
		Short: "Switch to warm white",
		Long:  "Switch to warm white at a preset (" + strings.Join(palette.Names(palette.WarmWhiteLevels), ", ") + ") or a level 0-255.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseWarmWhite(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *ble.Session) error {
				return s.SetWarmWhite(ctx, v)
			})
		},
	}
}

func newEffectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "effect <name|code> [speed]",
		Short: "Start a built-in animation (protocol a)",
		Long: "Start an animation by name (" + strings.Join(palette.Names(palette.Animations), ", ") + ") or code, " +
			"at a speed preset (" + strings.Join(palette.Names(palette.Speeds), ", ") + ") or percent.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, speed, err := parseEffect(args)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *ble.Session) error {
				return s.SetEffect(ctx, code, speed)
			})
		},
	}
}

func newModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mode <code>",
		Short: "Select a built-in mode (protocol b)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseByte(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *ble.Session) error {
				return s.SetMode(ctx, code)
			})
		},
	}
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List nearby peripherals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := setup(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			mgr, err := ble.NewManager(rt.cfg.Device.Backend)
			if err != nil {
				return err
			}
			adapter, err := ble.SelectAdapter(ctx, mgr)
			if err != nil {
				return err
			}
			profile, err := rt.cfg.Profile()
			if err != nil {
				return err
			}
			window := rt.cfg.Options(profile, nil).ScanWindow

			rt.log.Info("[BLE] scanning", "window", window)
			devices, err := ble.Discover(ctx, adapter, window)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI")
			for _, d := range devices {
				rssi := "-"
				if d.HasRSSI {
					rssi = fmt.Sprintf("%d dBm", d.RSSI)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Address, d.Name, rssi)
			}
			return w.Flush()
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault()
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintf(os.Stderr, "Config already exists at %s\n", config.DefaultConfigPath())
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}
