package ble

import (
	"fmt"
	"log/slog"
)

// State is the connection state of a session.
type State int

const (
	StateIdle State = iota
	StateLocating
	StateConnecting
	StateDiscoveringServices
	StateSelectingCharacteristic
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocating:
		return "locating"
	case StateConnecting:
		return "connecting"
	case StateDiscoveringServices:
		return "discovering-services"
	case StateSelectingCharacteristic:
		return "selecting-characteristic"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventScanStarted
	EventScanStopped
	EventAttemptStarted
	EventAttemptFailed
	EventCharacteristicSelected
	EventWrite
	EventReconnect
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state-changed"
	case EventScanStarted:
		return "scan-started"
	case EventScanStopped:
		return "scan-stopped"
	case EventAttemptStarted:
		return "attempt-started"
	case EventAttemptFailed:
		return "attempt-failed"
	case EventCharacteristicSelected:
		return "characteristic-selected"
	case EventWrite:
		return "write"
	case EventReconnect:
		return "reconnect"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is emitted at every state transition, retry and write.
// Fields not relevant to Kind are zero.
type Event struct {
	Kind           EventKind
	Address        Address
	From, To       State
	Attempt        int
	Characteristic string
	Data           []byte
	Err            error
}

// Observer receives session events. Calls happen on the goroutine driving
// the session and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// MultiObserver fans an event out to every observer in order.
type MultiObserver []Observer

func (m MultiObserver) Observe(e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(e)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// SlogObserver logs events to logger. Writes and state changes log at debug
// level, failures at warn.
func SlogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return ObserverFunc(func(e Event) {
		attrs := []any{"device", e.Address.String()}
		switch e.Kind {
		case EventStateChanged:
			logger.Debug("[BLE] state", append(attrs, "from", e.From, "to", e.To)...)
		case EventScanStarted:
			logger.Info("[BLE] scanning", attrs...)
		case EventScanStopped:
			if e.Err != nil {
				attrs = append(attrs, "error", e.Err)
			}
			logger.Debug("[BLE] scan stopped", attrs...)
		case EventAttemptStarted:
			logger.Info("[BLE] connection attempt", append(attrs, "attempt", e.Attempt)...)
		case EventAttemptFailed:
			logger.Warn("[BLE] connection attempt failed", append(attrs, "attempt", e.Attempt, "error", e.Err)...)
		case EventCharacteristicSelected:
			logger.Info("[BLE] ready", append(attrs, "characteristic", e.Characteristic)...)
		case EventWrite:
			attrs = append(attrs, "characteristic", e.Characteristic, "data", fmt.Sprintf("% x", e.Data))
			if e.Err != nil {
				logger.Warn("[BLE] write failed", append(attrs, "error", e.Err)...)
				return
			}
			logger.Debug("[BLE] write", attrs...)
		case EventReconnect:
			if e.Err != nil {
				logger.Warn("[BLE] reconnect failed", append(attrs, "error", e.Err)...)
				return
			}
			logger.Info("[BLE] reconnected", attrs...)
		}
	})
}
