package ble

import (
	"context"
	"errors"
	"fmt"

	"github.com/chaz8081/ledctl/internal/ble/protocol"
)

// Link is an established session: a connected peripheral and its selected
// write characteristic.
type Link struct {
	Peripheral     Peripheral
	Characteristic Characteristic
}

// ConnectionManager drives a located peripheral to a ready link:
//
//	Idle -> Locating -> Connecting -> DiscoveringServices -> SelectingCharacteristic -> Ready
//
// Locating failures are final. Failures after locating retry the whole
// connect..select span up to Options.MaxAttempts times before ending in Failed.
type ConnectionManager struct {
	adapter Adapter
	addr    Address
	profile protocol.Profile
	opts    Options
	locator *Locator
	state   State
}

// NewConnectionManager returns a manager in the Idle state.
func NewConnectionManager(adapter Adapter, addr Address, profile protocol.Profile, opts Options) *ConnectionManager {
	opts = opts.normalized()
	return &ConnectionManager{
		adapter: adapter,
		addr:    addr,
		profile: profile,
		opts:    opts,
		locator: NewLocator(adapter, profile, opts.ScanWindow, opts.Observer),
		state:   StateIdle,
	}
}

// State returns the current state.
func (m *ConnectionManager) State() State {
	return m.state
}

// Establish locates, connects and selects the write characteristic. On
// failure the peripheral has been disconnected and the state is Failed.
func (m *ConnectionManager) Establish(ctx context.Context) (*Link, error) {
	m.setState(StateLocating)
	p, err := m.locator.Locate(ctx, m.addr)
	if err != nil {
		m.setState(StateFailed)
		return nil, err
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= m.opts.MaxAttempts; attempt++ {
		attempts = attempt
		m.emit(Event{Kind: EventAttemptStarted, Attempt: attempt})

		char, err := m.attempt(ctx, p)
		if err == nil {
			m.emit(Event{Kind: EventCharacteristicSelected, Attempt: attempt, Characteristic: char.UUID})
			m.setState(StateReady)
			return &Link{Peripheral: p, Characteristic: char}, nil
		}

		lastErr = err
		m.emit(Event{Kind: EventAttemptFailed, Attempt: attempt, Err: err})
		_ = p.Disconnect(context.WithoutCancel(ctx))

		if ctx.Err() != nil {
			break
		}
		if attempt < m.opts.MaxAttempts {
			if err := sleep(ctx, m.opts.Backoff(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	m.setState(StateFailed)
	if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrConnectionFailed, m.addr, attempts, lastErr)
}

// attempt runs one connect..select pass.
func (m *ConnectionManager) attempt(ctx context.Context, p Peripheral) (Characteristic, error) {
	m.setState(StateConnecting)

	// Some firmware rejects a connect while it still holds the old link.
	if connected, err := p.IsConnected(ctx); err == nil && connected {
		_ = p.Disconnect(ctx)
		if err := sleep(ctx, m.opts.DisconnectSettle); err != nil {
			return Characteristic{}, err
		}
	}

	if err := p.Connect(ctx); err != nil {
		return Characteristic{}, fmt.Errorf("ble: connect: %w", err)
	}
	if err := sleep(ctx, m.opts.ConnectSettle); err != nil {
		return Characteristic{}, err
	}

	m.setState(StateDiscoveringServices)
	if err := p.DiscoverServices(ctx); err != nil {
		return Characteristic{}, fmt.Errorf("ble: discover services: %w", err)
	}
	if err := sleep(ctx, m.opts.DiscoverySettle); err != nil {
		return Characteristic{}, err
	}

	m.setState(StateSelectingCharacteristic)
	chars := p.Characteristics()
	char, ok := SelectCharacteristic(m.profile, chars)
	if !ok {
		return Characteristic{}, fmt.Errorf("%w: none of %d characteristics match profile %v", ErrCharacteristicNotFound, len(chars), m.profile)
	}
	return char, nil
}

// SelectCharacteristic returns the first characteristic, in discovery order,
// accepted by the profile's write-target rule.
func SelectCharacteristic(profile protocol.Profile, chars []Characteristic) (Characteristic, bool) {
	for _, c := range chars {
		if profile.IsWriteTarget(c.UUID, c.Properties.CanWrite()) {
			return c, true
		}
	}
	return Characteristic{}, false
}

func (m *ConnectionManager) setState(to State) {
	from := m.state
	m.state = to
	m.emit(Event{Kind: EventStateChanged, From: from, To: to})
}

func (m *ConnectionManager) emit(e Event) {
	e.Address = m.addr
	m.opts.Observer.Observe(e)
}
