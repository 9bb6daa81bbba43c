package protocol

import (
	"errors"
	"fmt"
)

// MaxPercent is the ceiling for percentage parameters on ProtocolA.
const MaxPercent = 100

// ErrUnsupported is returned when a command has no encoding in a profile.
var ErrUnsupported = errors.New("protocol: command not supported by profile")

// Encode maps a command to the frames that must be written, in order, for the
// device to apply it. Most commands are a single frame; a ProtocolA effect is
// two. Encode performs no I/O and never fails for supported commands.
func Encode(p Profile, cmd Command) ([][]byte, error) {
	switch p {
	case ProtocolA:
		return encodeA(cmd)
	case ProtocolB:
		return encodeB(cmd)
	default:
		return nil, fmt.Errorf("protocol: invalid profile %v", p)
	}
}

// frameA builds a ProtocolA frame:
//
//	7e 00 TAG P0 P1 P2 P3 00 ef
func frameA(tag, p0, p1, p2, p3 byte) []byte {
	return []byte{0x7e, 0x00, tag, p0, p1, p2, p3, 0x00, 0xef}
}

func encodeA(cmd Command) ([][]byte, error) {
	switch c := cmd.(type) {
	case SetPower:
		if c.On {
			return [][]byte{frameA(0x04, 0xf0, 0x00, 0x01, 0xff)}, nil
		}
		return [][]byte{frameA(0x04, 0x00, 0x00, 0x00, 0xff)}, nil
	case SetColor:
		return [][]byte{frameA(0x05, 0x03, c.R, c.G, c.B)}, nil
	case SetBrightness:
		return [][]byte{frameA(0x01, clampPercent(c.Percent), 0x00, 0x00, 0x00)}, nil
	case SetWarmWhite:
		return [][]byte{frameA(0x05, 0x02, c.Level, c.Level, c.Level)}, nil
	case SetEffect:
		return [][]byte{
			frameA(0x03, c.Code, 0x03, 0x00, 0x00),
			frameA(0x02, clampPercent(c.Speed), 0x00, 0x00, 0x00),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %v on protocol A", ErrUnsupported, cmd)
	}
}

// ProtocolB values are passed through unclamped; the firmware accepts the
// full byte range for brightness and warm white.
func encodeB(cmd Command) ([][]byte, error) {
	switch c := cmd.(type) {
	case SetPower:
		if c.On {
			return [][]byte{{0xcc, 0x23, 0x33}}, nil
		}
		return [][]byte{{0xcc, 0x24, 0x33}}, nil
	case SetColor:
		return [][]byte{{0x56, c.R, c.G, c.B, 0x00, 0xf0, 0xaa}}, nil
	case SetBrightness:
		v := c.Percent
		return [][]byte{{0x56, v, v, v, 0x00, 0xf0, 0xaa}}, nil
	case SetWarmWhite:
		return [][]byte{{0x56, c.Level, c.Level, 0x00, 0x0f, 0xaa}}, nil
	case SetMode:
		return [][]byte{{0xbb, c.Code, 0x44}}, nil
	default:
		return nil, fmt.Errorf("%w: %v on protocol B", ErrUnsupported, cmd)
	}
}

func clampPercent(v uint8) uint8 {
	if v > MaxPercent {
		return MaxPercent
	}
	return v
}
