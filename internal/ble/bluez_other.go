//go:build !linux

package ble

import "errors"

func newBlueZManager() (Manager, error) {
	return nil, errors.New("ble: the bluez backend is only available on linux")
}
