package ble

import (
	"context"
	"fmt"
	"time"

	"github.com/chaz8081/ledctl/internal/ble/protocol"
)

// Locator finds a peripheral by address, scanning when the adapter does not
// already know it. Scan errors are returned, never retried.
type Locator struct {
	adapter    Adapter
	profile    protocol.Profile
	scanWindow time.Duration
	observer   Observer
}

// NewLocator returns a locator for adapter. A nil observer discards events.
func NewLocator(adapter Adapter, profile protocol.Profile, scanWindow time.Duration, observer Observer) *Locator {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Locator{
		adapter:    adapter,
		profile:    profile,
		scanWindow: scanWindow,
		observer:   observer,
	}
}

// Locate returns the peripheral with address addr. Devices already known to
// the adapter are returned without scanning or signal checks. Devices found by
// scanning are subject to the profile's RSSI gate.
func (l *Locator) Locate(ctx context.Context, addr Address) (Peripheral, error) {
	known, err := l.adapter.Peripherals(ctx)
	if err != nil {
		return nil, fmt.Errorf("ble: list peripherals: %w", err)
	}
	if p := findPeripheral(known, addr); p != nil {
		return p, nil
	}

	if err := l.scan(ctx, addr); err != nil {
		return nil, err
	}

	found, err := l.adapter.Peripherals(ctx)
	if err != nil {
		return nil, fmt.Errorf("ble: list peripherals: %w", err)
	}
	p := findPeripheral(found, addr)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
	}

	if l.profile.GatesRSSI() {
		if err := checkSignal(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// scan runs one scan window. The scan is always stopped before returning so
// a connect can follow.
func (l *Locator) scan(ctx context.Context, addr Address) error {
	if err := l.adapter.StartScan(ctx); err != nil {
		return fmt.Errorf("ble: start scan: %w", err)
	}
	l.observer.Observe(Event{Kind: EventScanStarted, Address: addr})

	waitErr := sleep(ctx, l.scanWindow)

	// Use a fresh context so a cancelled caller still leaves the radio idle.
	stopErr := l.adapter.StopScan(context.WithoutCancel(ctx))
	l.observer.Observe(Event{Kind: EventScanStopped, Address: addr, Err: stopErr})

	if waitErr != nil {
		return waitErr
	}
	if stopErr != nil {
		// Backends that scan in the background report scan failures here.
		return fmt.Errorf("ble: stop scan: %w", stopErr)
	}
	return nil
}

// checkSignal rejects devices advertising below protocol.MinRSSI. A device
// with properties but no RSSI counts as -100 dBm. Missing properties skip the
// check.
func checkSignal(ctx context.Context, p Peripheral) error {
	props, err := p.Properties(ctx)
	if err != nil || props == nil {
		return nil
	}
	rssi := int16(-100)
	if props.HasRSSI {
		rssi = props.RSSI
	}
	if rssi < protocol.MinRSSI {
		return fmt.Errorf("%w: %s at %d dBm (need >= %d)", ErrSignalTooWeak, p.Address(), rssi, protocol.MinRSSI)
	}
	return nil
}

func findPeripheral(ps []Peripheral, addr Address) Peripheral {
	for _, p := range ps {
		if p.Address() == addr {
			return p
		}
	}
	return nil
}

// Discover scans for window and returns every peripheral the adapter knows
// afterwards, with its advertisement data when available.
func Discover(ctx context.Context, adapter Adapter, window time.Duration) ([]Device, error) {
	if err := adapter.StartScan(ctx); err != nil {
		return nil, fmt.Errorf("ble: start scan: %w", err)
	}
	waitErr := sleep(ctx, window)
	if err := adapter.StopScan(context.WithoutCancel(ctx)); err != nil && waitErr == nil {
		return nil, fmt.Errorf("ble: stop scan: %w", err)
	}
	if waitErr != nil {
		return nil, waitErr
	}

	ps, err := adapter.Peripherals(ctx)
	if err != nil {
		return nil, fmt.Errorf("ble: list peripherals: %w", err)
	}
	devices := make([]Device, 0, len(ps))
	for _, p := range ps {
		d := Device{Address: p.Address()}
		if props, err := p.Properties(ctx); err == nil && props != nil {
			d.Name = props.Name
			d.RSSI = props.RSSI
			d.HasRSSI = props.HasRSSI
		}
		devices = append(devices, d)
	}
	return devices, nil
}
