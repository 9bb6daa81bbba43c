package ble

import (
	"fmt"
	"net"
)

// Address is a 6-byte BLE MAC address in display order.
type Address [6]byte

// ParseAddress parses "BE:32:03:82:3C:B1" style addresses. Hyphen separators
// and lower case are accepted.
func ParseAddress(s string) (Address, error) {
	var a Address
	hw, err := net.ParseMAC(s)
	if err != nil {
		return a, fmt.Errorf("ble: parse address %q: %w", s, err)
	}
	if len(hw) != len(a) {
		return a, fmt.Errorf("ble: parse address %q: want 6 bytes, got %d", s, len(hw))
	}
	copy(a[:], hw)
	return a, nil
}

// MustParseAddress is ParseAddress for constants; it panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}
