package ble

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/chaz8081/ledctl/internal/ble/protocol"
)

// Session controls one LED device over an established link. A session is
// owned by a single caller: it holds no locks and concurrent calls have
// undefined ordering.
type Session struct {
	addr    Address
	profile protocol.Profile
	manager *ConnectionManager
	link    *Link
	limiter *rate.Limiter
	opts    Options
	closed  bool
}

// SelectAdapter returns the first adapter enumerated by mgr.
func SelectAdapter(ctx context.Context, mgr Manager) (Adapter, error) {
	adapters, err := mgr.Adapters(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
	}
	if len(adapters) == 0 {
		return nil, ErrAdapterUnavailable
	}
	return adapters[0], nil
}

// Open selects the first adapter of mgr and establishes a session.
func Open(ctx context.Context, mgr Manager, addr Address, profile protocol.Profile, opts Options) (*Session, error) {
	adapter, err := SelectAdapter(ctx, mgr)
	if err != nil {
		return nil, err
	}
	return NewSession(ctx, adapter, addr, profile, opts)
}

// NewSession establishes a link to addr through adapter. It fails with
// ErrDeviceNotFound, ErrSignalTooWeak or ErrConnectionFailed and leaves no
// connection behind on failure.
func NewSession(ctx context.Context, adapter Adapter, addr Address, profile protocol.Profile, opts Options) (*Session, error) {
	if !profile.Valid() {
		return nil, fmt.Errorf("ble: invalid profile %v", profile)
	}
	opts = opts.normalized()

	s := &Session{
		addr:    addr,
		profile: profile,
		manager: NewConnectionManager(adapter, addr, profile, opts),
		limiter: newCommandLimiter(opts),
		opts:    opts,
	}
	link, err := s.manager.Establish(ctx)
	if err != nil {
		return nil, err
	}
	s.link = link
	return s, nil
}

func newCommandLimiter(opts Options) *rate.Limiter {
	if opts.CommandInterval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(opts.CommandInterval), 1)
}

// Address returns the device address.
func (s *Session) Address() Address { return s.addr }

// Profile returns the protocol profile fixed at construction.
func (s *Session) Profile() protocol.Profile { return s.profile }

// State returns the connection manager state.
func (s *Session) State() State { return s.manager.State() }

// Characteristic returns the selected write characteristic.
func (s *Session) Characteristic() Characteristic { return s.link.Characteristic }

// SetPower switches the device on or off.
func (s *Session) SetPower(ctx context.Context, on bool) error {
	return s.Send(ctx, protocol.SetPower{On: on})
}

// SetColor sets a static color.
func (s *Session) SetColor(ctx context.Context, r, g, b uint8) error {
	return s.Send(ctx, protocol.SetColor{R: r, G: g, B: b})
}

// SetBrightness sets brightness in percent.
func (s *Session) SetBrightness(ctx context.Context, percent uint8) error {
	return s.Send(ctx, protocol.SetBrightness{Percent: percent})
}

// SetWarmWhite switches to warm white at level.
func (s *Session) SetWarmWhite(ctx context.Context, level uint8) error {
	return s.Send(ctx, protocol.SetWarmWhite{Level: level})
}

// SetEffect starts an animation. ProtocolA only.
func (s *Session) SetEffect(ctx context.Context, code, speed uint8) error {
	return s.Send(ctx, protocol.SetEffect{Code: code, Speed: speed})
}

// SetMode selects a built-in mode. ProtocolB only.
func (s *Session) SetMode(ctx context.Context, code uint8) error {
	return s.Send(ctx, protocol.SetMode{Code: code})
}

// Send encodes cmd and writes its frames in order. A failed frame aborts the
// remaining ones.
func (s *Session) Send(ctx context.Context, cmd protocol.Command) error {
	if s.closed {
		return ErrClosed
	}
	frames, err := protocol.Encode(s.profile, cmd)
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	for _, frame := range frames {
		if err := s.writeFrame(ctx, frame); err != nil {
			return fmt.Errorf("%v: %w", cmd, err)
		}
	}
	return nil
}

// writeFrame writes one frame. Profiles that reconnect on write bring a dead
// link back with a single connect before writing, and retry a failed write
// once. The retry reconnects first unless this frame already did.
func (s *Session) writeFrame(ctx context.Context, frame []byte) error {
	if !s.profile.ReconnectsOnWrite() {
		return s.write(ctx, frame)
	}

	reconnected := false
	if connected, err := s.link.Peripheral.IsConnected(ctx); err != nil || !connected {
		if err := s.reconnect(ctx); err != nil {
			return err
		}
		reconnected = true
	}
	if err := s.write(ctx, frame); err == nil {
		return nil
	}
	// At most one connect per frame.
	if !reconnected {
		if err := s.reconnect(ctx); err != nil {
			return err
		}
	}
	return s.write(ctx, frame)
}

func (s *Session) write(ctx context.Context, frame []byte) error {
	err := s.link.Peripheral.Write(ctx, s.link.Characteristic, frame, WriteWithoutResponse)
	s.emit(Event{Kind: EventWrite, Characteristic: s.link.Characteristic.UUID, Data: frame, Err: err})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// reconnect issues one connect on the existing peripheral. The cached
// characteristic is reused without rediscovery.
func (s *Session) reconnect(ctx context.Context) error {
	err := s.link.Peripheral.Connect(ctx)
	s.emit(Event{Kind: EventReconnect, Characteristic: s.link.Characteristic.UUID, Err: err})
	if err != nil {
		return fmt.Errorf("%w: reconnect: %w", ErrWriteFailed, err)
	}
	return nil
}

// Close disconnects the peripheral. Further commands return ErrClosed.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.link.Peripheral.Disconnect(ctx); err != nil {
		return fmt.Errorf("ble: disconnect %s: %w", s.addr, err)
	}
	return nil
}

func (s *Session) emit(e Event) {
	e.Address = s.addr
	s.opts.Observer.Observe(e)
}

