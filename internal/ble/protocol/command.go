package protocol

import "fmt"

// Command is one logical instruction for the LED controller. The concrete
// types below are the only implementations.
type Command interface {
	fmt.Stringer
	command()
}

// SetPower switches the strip on or off.
type SetPower struct {
	On bool
}

// SetColor sets a static RGB color.
type SetColor struct {
	R, G, B uint8
}

// SetBrightness sets the brightness in percent. Values above 100 are clamped
// by profiles that define a percentage range.
type SetBrightness struct {
	Percent uint8
}

// SetWarmWhite switches to the warm white channel at the given level.
type SetWarmWhite struct {
	Level uint8
}

// SetEffect starts a built-in animation with a speed in percent.
// ProtocolA only.
type SetEffect struct {
	Code  uint8
	Speed uint8
}

// SetMode selects a built-in mode by code. ProtocolB only.
type SetMode struct {
	Code uint8
}

func (SetPower) command()      {}
func (SetColor) command()      {}
func (SetBrightness) command() {}
func (SetWarmWhite) command()  {}
func (SetEffect) command()     {}
func (SetMode) command()       {}

func (c SetPower) String() string {
	if c.On {
		return "power(on)"
	}
	return "power(off)"
}

func (c SetColor) String() string { return fmt.Sprintf("color(%d,%d,%d)", c.R, c.G, c.B) }

func (c SetBrightness) String() string { return fmt.Sprintf("brightness(%d)", c.Percent) }

func (c SetWarmWhite) String() string { return fmt.Sprintf("warm-white(%d)", c.Level) }

func (c SetEffect) String() string {
	return fmt.Sprintf("effect(0x%02x, speed=%d)", c.Code, c.Speed)
}

func (c SetMode) String() string { return fmt.Sprintf("mode(0x%02x)", c.Code) }
