package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// TinyGoManager wraps tinygo-org/bluetooth. The library exposes a single
// default adapter, no list of previously known devices and no characteristic
// flags, so:
//   - Peripherals returns the devices seen by scans in this process,
//   - connection state is tracked through the adapter's connect handler,
//   - every characteristic is reported as writable.
type TinyGoManager struct {
	adapter *bluetooth.Adapter

	once      sync.Once
	enableErr error
	tg        *tinygoAdapter
}

// NewTinyGoManager returns a manager over bluetooth.DefaultAdapter.
func NewTinyGoManager() *TinyGoManager {
	return &TinyGoManager{adapter: bluetooth.DefaultAdapter}
}

func newTinyGoManager() (Manager, error) {
	return NewTinyGoManager(), nil
}

// Adapters enables the default adapter on first use and returns it.
func (m *TinyGoManager) Adapters(ctx context.Context) ([]Adapter, error) {
	m.once.Do(func() {
		if err := m.adapter.Enable(); err != nil {
			m.enableErr = fmt.Errorf("ble: enable adapter: %w", err)
			return
		}
		m.tg = newTinyGoAdapter(m.adapter)
	})
	if m.enableErr != nil {
		return nil, m.enableErr
	}
	return []Adapter{m.tg}, nil
}

var _ Manager = (*TinyGoManager)(nil)

// scanStartGrace is how long StartScan waits for an immediate Scan failure.
const scanStartGrace = 50 * time.Millisecond

type tinygoAdapter struct {
	adapter *bluetooth.Adapter

	// mu protects seen and order.
	mu    sync.Mutex
	seen  map[Address]*tinygoPeripheral
	order []Address

	scanDone chan error
}

func newTinyGoAdapter(adapter *bluetooth.Adapter) *tinygoAdapter {
	a := &tinygoAdapter{
		adapter: adapter,
		seen:    make(map[Address]*tinygoPeripheral),
	}

	// The library reports disconnects only through this adapter-wide handler.
	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		addr, err := ParseAddress(device.Address.String())
		if err != nil {
			return
		}
		a.mu.Lock()
		p, ok := a.seen[addr]
		a.mu.Unlock()
		if ok {
			p.setConnected(connected)
		}
	})
	return a
}

func (a *tinygoAdapter) Peripherals(ctx context.Context) ([]Peripheral, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ps := make([]Peripheral, 0, len(a.order))
	for _, addr := range a.order {
		ps = append(ps, a.seen[addr])
	}
	return ps, nil
}

// StartScan runs the blocking library scan in the background until StopScan.
func (a *tinygoAdapter) StartScan(ctx context.Context) error {
	a.mu.Lock()
	if a.scanDone != nil {
		a.mu.Unlock()
		return errors.New("ble: scan already running")
	}
	done := make(chan error, 1)
	a.scanDone = done
	a.mu.Unlock()

	go func() {
		done <- a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			a.record(result)
		})
	}()

	ended, err := awaitScanStart(ctx, done, scanStartGrace)
	if ended {
		a.mu.Lock()
		a.scanDone = nil
		a.mu.Unlock()
	}
	return err
}

// awaitScanStart waits up to grace for a background scan to end early, which
// only happens when the stack refuses to start. ended reports whether done
// was consumed.
func awaitScanStart(ctx context.Context, done <-chan error, grace time.Duration) (ended bool, err error) {
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case err := <-done:
		if err != nil {
			return true, fmt.Errorf("ble: scan: %w", err)
		}
		return true, nil
	case <-t.C:
		return false, nil
	case <-ctx.Done():
		return false, nil
	}
}

func (a *tinygoAdapter) StopScan(ctx context.Context) error {
	a.mu.Lock()
	done := a.scanDone
	a.scanDone = nil
	a.mu.Unlock()
	if done == nil {
		return nil
	}

	if err := a.adapter.StopScan(); err != nil {
		return fmt.Errorf("ble: stop scan: %w", err)
	}
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ble: scan: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *tinygoAdapter) record(result bluetooth.ScanResult) {
	addr, err := ParseAddress(result.Address.String())
	if err != nil {
		// macOS reports CoreBluetooth UUIDs instead of MAC addresses.
		return
	}
	props := PeripheralProperties{
		Name:    result.LocalName(),
		RSSI:    result.RSSI,
		HasRSSI: true,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.seen[addr]
	if !ok {
		p = &tinygoPeripheral{adapter: a.adapter, addr: addr}
		a.seen[addr] = p
		a.order = append(a.order, addr)
	}
	p.update(result.Address, props)
}

var _ Adapter = (*tinygoAdapter)(nil)

type tinygoPeripheral struct {
	adapter *bluetooth.Adapter
	addr    Address

	// mu protects the fields written from library callbacks.
	mu        sync.Mutex
	btAddr    bluetooth.Address
	props     PeripheralProperties
	device    *bluetooth.Device
	connected bool

	chars []Characteristic
}

func (p *tinygoPeripheral) update(btAddr bluetooth.Address, props PeripheralProperties) {
	p.mu.Lock()
	p.btAddr = btAddr
	p.props = props
	p.mu.Unlock()
}

func (p *tinygoPeripheral) setConnected(connected bool) {
	p.mu.Lock()
	p.connected = connected
	p.mu.Unlock()
}

func (p *tinygoPeripheral) Address() Address { return p.addr }

func (p *tinygoPeripheral) Properties(ctx context.Context) (*PeripheralProperties, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	props := p.props
	return &props, nil
}

// Connect wraps the library call, which blocks with its own timeout, so that
// ctx cancellation returns early. A connect that completes after cancellation
// is left to the library.
func (p *tinygoPeripheral) Connect(ctx context.Context) error {
	p.mu.Lock()
	btAddr := p.btAddr
	p.mu.Unlock()

	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := p.adapter.Connect(btAddr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("ble: connect to %s: %w", p.addr, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return fmt.Errorf("ble: connect to %s: %w", p.addr, result.err)
		}
		p.mu.Lock()
		p.device = &result.device
		p.connected = true
		p.mu.Unlock()
		return nil
	}
}

func (p *tinygoPeripheral) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	device := p.device
	p.device = nil
	p.connected = false
	p.mu.Unlock()
	if device == nil {
		return nil
	}
	return device.Disconnect()
}

func (p *tinygoPeripheral) IsConnected(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected && p.device != nil, nil
}

func (p *tinygoPeripheral) DiscoverServices(ctx context.Context) error {
	p.mu.Lock()
	device := p.device
	p.mu.Unlock()
	if device == nil {
		return fmt.Errorf("ble: discover services on %s: not connected", p.addr)
	}

	svcs, err := device.DiscoverServices(nil)
	if err != nil {
		return fmt.Errorf("ble: discover services: %w", err)
	}
	var chars []Characteristic
	for _, svc := range svcs {
		dcs, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return fmt.Errorf("ble: discover characteristics of %s: %w", svc.UUID(), err)
		}
		for i := range dcs {
			dc := dcs[i]
			chars = append(chars, Characteristic{
				UUID:       strings.ToUpper(dc.UUID().String()),
				Service:    strings.ToUpper(svc.UUID().String()),
				Properties: PropWrite | PropWriteWithoutResponse,
				handle:     &dc,
			})
		}
	}
	p.chars = chars
	return nil
}

func (p *tinygoPeripheral) Characteristics() []Characteristic {
	out := make([]Characteristic, len(p.chars))
	copy(out, p.chars)
	return out
}

func (p *tinygoPeripheral) Write(ctx context.Context, c Characteristic, data []byte, mode WriteType) error {
	dc, ok := c.handle.(*bluetooth.DeviceCharacteristic)
	if !ok {
		return fmt.Errorf("ble: characteristic %s does not belong to this backend", c.UUID)
	}
	if mode != WriteWithoutResponse {
		return fmt.Errorf("ble: %s writes are not supported by the tinygo backend", mode)
	}
	_, err := dc.WriteWithoutResponse(data)
	return err
}

var _ Peripheral = (*tinygoPeripheral)(nil)
