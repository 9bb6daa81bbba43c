// Package ble drives BLE RGB LED controllers: it locates the peripheral,
// establishes a GATT link with bounded retries, selects the write
// characteristic for the active protocol profile and writes encoded command
// frames. The radio stack itself is consumed through the Manager, Adapter and
// Peripheral interfaces so the state machine can run against fakes.
package ble

import "context"

// WriteType is the GATT write mode.
type WriteType int

const (
	WriteWithoutResponse WriteType = iota
	WriteWithResponse
)

func (w WriteType) String() string {
	if w == WriteWithResponse {
		return "with-response"
	}
	return "without-response"
}

// Property is the GATT characteristic property bit set.
type Property uint8

const (
	PropRead Property = 1 << iota
	PropWrite
	PropWriteWithoutResponse
	PropNotify
	PropIndicate
)

// CanWrite reports whether either write mode is permitted.
func (p Property) CanWrite() bool {
	return p&(PropWrite|PropWriteWithoutResponse) != 0
}

// Characteristic identifies a GATT characteristic on a connected peripheral.
type Characteristic struct {
	UUID       string
	Service    string
	Properties Property

	handle any // backend-specific reference
}

// PeripheralProperties is the advertisement data known for a peripheral.
type PeripheralProperties struct {
	Name    string
	RSSI    int16
	HasRSSI bool
}

// Device is a peripheral summary returned by Discover.
type Device struct {
	Address Address
	Name    string
	RSSI    int16
	HasRSSI bool
}

// Manager enumerates the host's radio adapters.
type Manager interface {
	// Adapters returns the adapters in enumeration order.
	Adapters(ctx context.Context) ([]Adapter, error)
}

// Adapter is a single radio. Scanning and connecting must not overlap.
type Adapter interface {
	// Peripherals lists the peripherals currently known to the adapter.
	Peripherals(ctx context.Context) ([]Peripheral, error)
	// StartScan begins discovery with the default filter.
	StartScan(ctx context.Context) error
	// StopScan ends discovery.
	StopScan(ctx context.Context) error
}

// Peripheral is a remote device as seen through one adapter.
type Peripheral interface {
	Address() Address
	// Properties returns advertisement data, or nil if none is known.
	Properties(ctx context.Context) (*PeripheralProperties, error)
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected(ctx context.Context) (bool, error)
	// DiscoverServices populates the characteristic table.
	DiscoverServices(ctx context.Context) error
	// Characteristics returns the table from the last DiscoverServices.
	Characteristics() []Characteristic
	Write(ctx context.Context, c Characteristic, data []byte, mode WriteType) error
}
