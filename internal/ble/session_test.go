package ble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/chaz8081/ledctl/internal/ble/protocol"
)

func openSession(t *testing.T, p *mockPeripheral, profile protocol.Profile, rec *recorder) *Session {
	t.Helper()
	var obs Observer
	if rec != nil {
		obs = rec
	}
	mgr := &mockManager{adapters: []Adapter{newMockAdapter(p)}}
	s, err := Open(context.Background(), mgr, p.addr, profile, testOptions(obs))
	require.NoError(t, err)
	return s
}

// callsSince returns the calls recorded after the first n.
func callsSince(p *mockPeripheral, n int) []string {
	return p.callLog()[n:]
}

func TestSessionSetColorProtocolA(t *testing.T) {
	p := newMockPeripheral(testAddr, charA())
	s := openSession(t, p, protocol.ProtocolA, nil)

	require.NoError(t, s.SetColor(context.Background(), 255, 0, 0))

	assert.Equal(t, [][]byte{{0x7e, 0x00, 0x05, 0x03, 0xff, 0x00, 0x00, 0x00, 0xef}}, p.writes)
	assert.Equal(t, []WriteType{WriteWithoutResponse}, p.modes)
	assert.Equal(t, 1, p.count("write"))
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, protocol.ProtocolA, s.Profile())
	assert.Equal(t, testAddr, s.Address().String())
	assert.Equal(t, charA().UUID, s.Characteristic().UUID)
}

func TestSessionProtocolBReconnectsBeforeWrite(t *testing.T) {
	p := newMockPeripheral(testAddr, charB())
	rec := &recorder{}
	s := openSession(t, p, protocol.ProtocolB, rec)

	// The device dropped the link after setup.
	p.connected = false
	mark := len(p.callLog())

	require.NoError(t, s.SetPower(context.Background(), true))

	assert.Equal(t, []string{"is-connected", "connect", "write"}, callsSince(p, mark))
	assert.Equal(t, [][]byte{{0xcc, 0x23, 0x33}}, p.writes)
	assert.Equal(t, 1, p.count("discover"), "reconnect must not rediscover services")
	assert.Len(t, rec.kinds(EventReconnect), 1)
}

func TestSessionProtocolBConnectedWritesDirectly(t *testing.T) {
	p := newMockPeripheral(testAddr, charB())
	s := openSession(t, p, protocol.ProtocolB, nil)
	mark := len(p.callLog())

	require.NoError(t, s.SetBrightness(context.Background(), 150))

	assert.Equal(t, []string{"is-connected", "write"}, callsSince(p, mark))
	// Protocol B passes brightness through unclamped.
	assert.Equal(t, [][]byte{{0x56, 0x96, 0x96, 0x96, 0x00, 0xf0, 0xaa}}, p.writes)
}

func TestSessionProtocolBRetriesFailedWrite(t *testing.T) {
	p := newMockPeripheral(testAddr, charB())
	s := openSession(t, p, protocol.ProtocolB, nil)
	p.writeErrs = []error{errMock}
	mark := len(p.callLog())

	require.NoError(t, s.SetColor(context.Background(), 1, 2, 3))

	assert.Equal(t, []string{"is-connected", "write", "connect", "write"}, callsSince(p, mark))
	assert.Equal(t, [][]byte{{0x56, 0x01, 0x02, 0x03, 0x00, 0xf0, 0xaa}}, p.writes)
}

func TestSessionProtocolBSingleConnectPerFrame(t *testing.T) {
	p := newMockPeripheral(testAddr, charB())
	s := openSession(t, p, protocol.ProtocolB, nil)
	p.connected = false
	p.writeErrs = []error{errMock}
	mark := len(p.callLog())

	require.NoError(t, s.SetPower(context.Background(), true))

	assert.Equal(t, []string{"is-connected", "connect", "write", "write"}, callsSince(p, mark))
	assert.Equal(t, [][]byte{{0xcc, 0x23, 0x33}}, p.writes)
}

func TestSessionProtocolBRetryFailsOnce(t *testing.T) {
	p := newMockPeripheral(testAddr, charB())
	s := openSession(t, p, protocol.ProtocolB, nil)
	p.writeErrs = []error{errMock, errMock, errMock}

	err := s.SetPower(context.Background(), false)
	require.ErrorIs(t, err, ErrWriteFailed)
	assert.Equal(t, 2, p.count("write"), "one retry only")
}

func TestSessionProtocolBReconnectFailure(t *testing.T) {
	p := newMockPeripheral(testAddr, charB())
	s := openSession(t, p, protocol.ProtocolB, nil)
	p.connected = false
	p.connectErrs = []error{errMock}

	err := s.SetPower(context.Background(), true)
	require.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, errMock)
	assert.Equal(t, 0, p.count("write"))
}

func TestSessionProtocolAWriteFailureNotRetried(t *testing.T) {
	p := newMockPeripheral(testAddr, charA())
	s := openSession(t, p, protocol.ProtocolA, nil)
	p.writeErrs = []error{errMock}
	mark := len(p.callLog())

	err := s.SetPower(context.Background(), true)
	require.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, errMock)
	assert.Equal(t, []string{"write"}, callsSince(p, mark), "no link check or reconnect")
}

func TestSessionEffectWritesTwoFrames(t *testing.T) {
	p := newMockPeripheral(testAddr, charA())
	s := openSession(t, p, protocol.ProtocolA, nil)

	require.NoError(t, s.SetEffect(context.Background(), 0x87, 200))

	assert.Equal(t, [][]byte{
		{0x7e, 0x00, 0x03, 0x87, 0x03, 0x00, 0x00, 0x00, 0xef},
		{0x7e, 0x00, 0x02, 0x64, 0x00, 0x00, 0x00, 0x00, 0xef},
	}, p.writes)
}

func TestSessionEffectStopsAfterFailedFrame(t *testing.T) {
	p := newMockPeripheral(testAddr, charA())
	s := openSession(t, p, protocol.ProtocolA, nil)
	p.writeErrs = []error{errMock}

	err := s.SetEffect(context.Background(), 0x88, 50)
	require.ErrorIs(t, err, ErrWriteFailed)
	assert.Equal(t, 1, p.count("write"))
	assert.Empty(t, p.writes)
}

func TestSessionUnsupportedCommand(t *testing.T) {
	a := newMockPeripheral(testAddr, charA())
	sa := openSession(t, a, protocol.ProtocolA, nil)
	require.ErrorIs(t, sa.SetMode(context.Background(), 0x25), ErrUnsupportedCommand)
	assert.Equal(t, 0, a.count("write"))

	b := newMockPeripheral(testAddr, charB())
	sb := openSession(t, b, protocol.ProtocolB, nil)
	require.ErrorIs(t, sb.SetEffect(context.Background(), 0x87, 50), ErrUnsupportedCommand)
	assert.Equal(t, 0, b.count("write"))
}

func TestSessionClose(t *testing.T) {
	p := newMockPeripheral(testAddr, charA())
	s := openSession(t, p, protocol.ProtocolA, nil)

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, p.count("disconnect"))

	require.ErrorIs(t, s.SetPower(context.Background(), true), ErrClosed)
	require.NoError(t, s.Close(context.Background()), "second Close is a no-op")
	assert.Equal(t, 1, p.count("disconnect"))
}

func TestOpenAdapterUnavailable(t *testing.T) {
	addr := MustParseAddress(testAddr)

	_, err := Open(context.Background(), &mockManager{}, addr, protocol.ProtocolA, testOptions(nil))
	require.ErrorIs(t, err, ErrAdapterUnavailable)

	_, err = Open(context.Background(), &mockManager{err: errMock}, addr, protocol.ProtocolA, testOptions(nil))
	require.ErrorIs(t, err, ErrAdapterUnavailable)
	assert.ErrorIs(t, err, errMock)
}

func TestOpenUsesFirstAdapter(t *testing.T) {
	p := newMockPeripheral(testAddr, charA())
	first := newMockAdapter(p)
	second := newMockAdapter()
	mgr := &mockManager{adapters: []Adapter{first, second}}

	_, err := Open(context.Background(), mgr, p.addr, protocol.ProtocolA, testOptions(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, second.scans)
}

func TestOpenFailureLeavesNoConnection(t *testing.T) {
	p := newMockPeripheral(testAddr) // no characteristics at all
	mgr := &mockManager{adapters: []Adapter{newMockAdapter(p)}}

	_, err := Open(context.Background(), mgr, p.addr, protocol.ProtocolA, testOptions(nil))
	require.ErrorIs(t, err, ErrConnectionFailed)
	assert.ErrorIs(t, err, ErrCharacteristicNotFound)
	assert.False(t, p.connected)
}

func TestNewSessionInvalidProfile(t *testing.T) {
	p := newMockPeripheral(testAddr, charA())
	_, err := NewSession(context.Background(), newMockAdapter(p), p.addr, protocol.Profile(0), testOptions(nil))
	require.Error(t, err)
	assert.Equal(t, 0, p.count("connect"))
}

func TestNewCommandLimiter(t *testing.T) {
	assert.Equal(t, rate.Inf, newCommandLimiter(Options{}).Limit())
	assert.Equal(t, rate.Limit(2), newCommandLimiter(Options{CommandInterval: 500 * time.Millisecond}).Limit())
}

func TestSessionLimiterHonorsCancellation(t *testing.T) {
	p := newMockPeripheral(testAddr, charA())
	mgr := &mockManager{adapters: []Adapter{newMockAdapter(p)}}
	opts := testOptions(nil)
	opts.CommandInterval = time.Hour
	s, err := Open(context.Background(), mgr, p.addr, protocol.ProtocolA, opts)
	require.NoError(t, err)

	require.NoError(t, s.SetPower(context.Background(), true))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = s.SetPower(ctx, false)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrWriteFailed))
	assert.Equal(t, 1, p.count("write"))
}
