// Package palette holds the named colors, animations and presets the LED
// controllers understand. Lookups ignore case, and treat spaces and
// underscores as hyphens.
package palette

import "strings"

// Color is a named RGB value.
type Color struct {
	Name    string
	R, G, B uint8
}

// Preset is a named one-byte value: an animation code, a speed or a level.
type Preset struct {
	Name  string
	Value uint8
}

// Colors lists the named colors in menu order.
var Colors = []Color{
	{"white", 255, 255, 255},
	{"blue", 0, 0, 255},
	{"purple", 128, 0, 128},
	{"pink", 255, 192, 203},
	{"turquoise", 64, 224, 208},
	{"green", 0, 255, 0},
	{"yellow", 255, 255, 0},
	{"orange", 255, 165, 0},
	{"red", 255, 0, 0},
}

// Animations lists the built-in effect codes of protocol A firmware.
// "all" cycles red, green, blue, yellow, cyan, magenta and white.
var Animations = []Preset{
	{"jump-rgb", 0x87},
	{"jump-all", 0x88},
	{"crossfade-rgb", 0x89},
	{"crossfade-all", 0x8a},
	{"blink-all", 0x95},
}

// Speeds lists the animation speed presets in percent.
var Speeds = []Preset{
	{"fast", 100},
	{"medium", 50},
	{"slow", 25},
}

// BrightnessLevels lists the brightness presets in percent.
var BrightnessLevels = []Preset{
	{"full", 100},
	{"high", 75},
	{"medium", 50},
	{"low", 25},
}

// WarmWhiteLevels lists the warm-white intensity presets.
var WarmWhiteLevels = []Preset{
	{"high", 255},
	{"medium", 191},
	{"low", 128},
	{"very-low", 64},
}

// DefaultSpeed is used when an animation is started without a speed.
const DefaultSpeed = 50

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(name)
}

// LookupColor returns the color named name.
func LookupColor(name string) (Color, bool) {
	n := normalize(name)
	for _, c := range Colors {
		if c.Name == n {
			return c, true
		}
	}
	return Color{}, false
}

// LookupAnimation returns the animation named name.
func LookupAnimation(name string) (Preset, bool) {
	return lookup(Animations, name)
}

// LookupSpeed returns the speed preset named name.
func LookupSpeed(name string) (Preset, bool) {
	return lookup(Speeds, name)
}

// LookupBrightness returns the brightness preset named name.
func LookupBrightness(name string) (Preset, bool) {
	return lookup(BrightnessLevels, name)
}

// LookupWarmWhite returns the warm-white preset named name.
func LookupWarmWhite(name string) (Preset, bool) {
	return lookup(WarmWhiteLevels, name)
}

func lookup(presets []Preset, name string) (Preset, bool) {
	n := normalize(name)
	for _, p := range presets {
		if p.Name == n {
			return p, true
		}
	}
	return Preset{}, false
}

// Names returns the preset names in order, for help text.
func Names(presets []Preset) []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// ColorNames returns the color names in order.
func ColorNames() []string {
	names := make([]string, len(Colors))
	for i, c := range Colors {
		names[i] = c.Name
	}
	return names
}
