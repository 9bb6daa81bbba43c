package ble

import (
	"time"

	"github.com/chaz8081/ledctl/internal/ble/protocol"
)

// Options configures timing and observability of a session. Zero durations
// mean "do not wait"; use DefaultOptions for the firmware-friendly values.
type Options struct {
	ScanWindow       time.Duration // how long to scan when the device is not known
	DisconnectSettle time.Duration // wait after dropping a stale link before connecting
	ConnectSettle    time.Duration // wait after connect before service discovery
	DiscoverySettle  time.Duration // wait after discovery before reading the table
	MaxAttempts      int           // connect/discover/select attempts (default 3)
	Backoff          Backoff       // delay between failed attempts
	CommandInterval  time.Duration // minimum spacing between commands
	Observer         Observer
}

// DefaultOptions returns the timings the devices are known to tolerate.
func DefaultOptions(profile protocol.Profile) Options {
	return Options{
		ScanWindow:       profile.ScanWindow(),
		DisconnectSettle: 1 * time.Second,
		ConnectSettle:    2 * time.Second,
		DiscoverySettle:  1 * time.Second,
		MaxAttempts:      3,
		Backoff:          FixedBackoff(2 * time.Second),
		CommandInterval:  500 * time.Millisecond,
	}
}

func (o Options) normalized() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff == nil {
		o.Backoff = FixedBackoff(0)
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}
