package ble

import (
	"errors"

	"github.com/chaz8081/ledctl/internal/ble/protocol"
)

var (
	// ErrAdapterUnavailable means no radio adapter could be enumerated.
	ErrAdapterUnavailable = errors.New("ble: no bluetooth adapter available")
	// ErrDeviceNotFound means the address was absent after lookup and scan.
	ErrDeviceNotFound = errors.New("ble: device not found")
	// ErrSignalTooWeak means the device advertised below the RSSI gate.
	// Move closer or reset the device and try again.
	ErrSignalTooWeak = errors.New("ble: device signal too weak")
	// ErrConnectionFailed means every connection attempt was exhausted.
	ErrConnectionFailed = errors.New("ble: connection failed")
	// ErrCharacteristicNotFound means no characteristic matched the profile.
	ErrCharacteristicNotFound = errors.New("ble: write characteristic not found")
	// ErrWriteFailed wraps an adapter-level write error.
	ErrWriteFailed = errors.New("ble: write failed")
	// ErrUnsupportedCommand means the command has no encoding in the profile.
	ErrUnsupportedCommand = protocol.ErrUnsupported
	// ErrClosed is returned by a session after Close.
	ErrClosed = errors.New("ble: session closed")
)
