package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chaz8081/ledctl/internal/palette"
)

// parseByte parses a decimal or 0x-prefixed value in 0..255.
func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number between 0 and 255", s)
	}
	return uint8(v), nil
}

func parsePower(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("power must be on or off, got %q", s)
	}
}

// parseColor accepts a color name or three channel values.
func parseColor(args []string) (r, g, b uint8, err error) {
	switch len(args) {
	case 1:
		c, ok := palette.LookupColor(args[0])
		if !ok {
			return 0, 0, 0, fmt.Errorf("unknown color %q (known: %s)", args[0], strings.Join(palette.ColorNames(), ", "))
		}
		return c.R, c.G, c.B, nil
	case 3:
		var ch [3]uint8
		for i, a := range args {
			if ch[i], err = parseByte(a); err != nil {
				return 0, 0, 0, err
			}
		}
		return ch[0], ch[1], ch[2], nil
	default:
		return 0, 0, 0, fmt.Errorf("want a color name or three values, got %d arguments", len(args))
	}
}

// parseBrightness accepts a preset name or a percent.
func parseBrightness(s string) (uint8, error) {
	if p, ok := palette.LookupBrightness(s); ok {
		return p.Value, nil
	}
	v, err := parseByte(s)
	if err != nil {
		return 0, fmt.Errorf("brightness must be %s or 0-100, got %q", strings.Join(palette.Names(palette.BrightnessLevels), ", "), s)
	}
	return v, nil
}

// parseWarmWhite accepts a preset name or a level.
func parseWarmWhite(s string) (uint8, error) {
	if p, ok := palette.LookupWarmWhite(s); ok {
		return p.Value, nil
	}
	v, err := parseByte(s)
	if err != nil {
		return 0, fmt.Errorf("warm white must be %s or 0-255, got %q", strings.Join(palette.Names(palette.WarmWhiteLevels), ", "), s)
	}
	return v, nil
}

// parseEffect accepts an animation name or code and an optional speed preset
// or percent.
func parseEffect(args []string) (code, speed uint8, err error) {
	if p, ok := palette.LookupAnimation(args[0]); ok {
		code = p.Value
	} else if code, err = parseByte(args[0]); err != nil {
		return 0, 0, fmt.Errorf("unknown effect %q (known: %s)", args[0], strings.Join(palette.Names(palette.Animations), ", "))
	}

	speed = palette.DefaultSpeed
	if len(args) > 1 {
		if p, ok := palette.LookupSpeed(args[1]); ok {
			speed = p.Value
		} else if speed, err = parseByte(args[1]); err != nil {
			return 0, 0, fmt.Errorf("speed must be %s or 0-100, got %q", strings.Join(palette.Names(palette.Speeds), ", "), args[1])
		}
	}
	return code, speed, nil
}
