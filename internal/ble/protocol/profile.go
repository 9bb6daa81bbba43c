// Package protocol implements the command sets of the two LED controller
// firmware families. Profile A speaks fixed 9-byte 0x7e..0xef frames, profile B
// speaks short variable-length frames on an FFF3 characteristic.
package protocol

import (
	"fmt"
	"strings"
	"time"
)

// Profile selects the firmware family a session talks to.
type Profile int

const (
	ProtocolA Profile = iota + 1
	ProtocolB
)

// MinRSSI is the weakest advertisement ProtocolA will attempt to connect to.
const MinRSSI = -90

// ParseProfile accepts "a", "b", "protocol-a" or "protocol-b" in any case.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "protocol-a", "protocola":
		return ProtocolA, nil
	case "b", "protocol-b", "protocolb":
		return ProtocolB, nil
	default:
		return 0, fmt.Errorf("protocol: unknown profile %q (want a or b)", s)
	}
}

func (p Profile) String() string {
	switch p {
	case ProtocolA:
		return "A"
	case ProtocolB:
		return "B"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// Valid reports whether p is one of the known profiles.
func (p Profile) Valid() bool {
	return p == ProtocolA || p == ProtocolB
}

// ScanWindow is how long the locator scans when the device is not already
// known to the adapter.
func (p Profile) ScanWindow() time.Duration {
	if p == ProtocolA {
		return 5 * time.Second
	}
	return 3 * time.Second
}

// GatesRSSI reports whether a device found by scanning must advertise at
// least MinRSSI before a connection is attempted.
func (p Profile) GatesRSSI() bool {
	return p == ProtocolA
}

// ReconnectsOnWrite reports whether a dead link is silently reconnected
// before a write. ProtocolA surfaces the write error instead.
func (p Profile) ReconnectsOnWrite() bool {
	return p == ProtocolB
}

// IsWriteTarget reports whether a characteristic with the given UUID and
// writability is the command endpoint for this profile. ProtocolA ignores
// the property flags entirely.
func (p Profile) IsWriteTarget(uuid string, writable bool) bool {
	u := strings.ToUpper(uuid)
	switch p {
	case ProtocolA:
		return strings.Contains(u, "FFE9") || strings.Contains(u, "FFF3")
	case ProtocolB:
		return strings.Contains(u, "FFF3") && writable
	default:
		return false
	}
}
