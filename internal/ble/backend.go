package ble

import "fmt"

// Backend names accepted by NewManager.
const (
	BackendBlueZ  = "bluez"
	BackendTinyGo = "tinygo"
)

// NewManager returns the radio backend with the given name. An empty name
// selects BlueZ.
func NewManager(backend string) (Manager, error) {
	switch backend {
	case BackendBlueZ, "":
		return newBlueZManager()
	case BackendTinyGo:
		return newTinyGoManager()
	default:
		return nil, fmt.Errorf("ble: unknown backend %q (want %s or %s)", backend, BackendBlueZ, BackendTinyGo)
	}
}
