// Package telemetry wires OpenTelemetry tracing into BLE sessions.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/chaz8081/ledctl/internal/ble"
	"github.com/chaz8081/ledctl/internal/config"
)

const tracerName = "github.com/chaz8081/ledctl"

// Setup installs the global TracerProvider and returns its shutdown function.
// When tracing is disabled a noop provider is installed. The stdout exporter
// writes to stderr so command output stays clean.
func Setup(ctx context.Context, cfg config.TracingConfig) (func(context.Context) error, error) {
	noopShutdown := func(context.Context) error { return nil }

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return noopShutdown, nil
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		exporter = exp
	case "noop", "":
		otel.SetTracerProvider(noop.NewTracerProvider())
		return noopShutdown, nil
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}

	// A CLI run is short; export synchronously so nothing is lost on exit.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the package tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// spanObserver maps session events onto spans: one "ble.establish" span from
// Locating to Ready or Failed with an event per step, and one span per write
// and per reconnect.
type spanObserver struct {
	ctx    context.Context
	tracer trace.Tracer

	mu        sync.Mutex
	establish trace.Span
}

// NewObserver returns a ble.Observer recording spans under ctx. A nil tracer
// uses Tracer().
func NewObserver(ctx context.Context, tracer trace.Tracer) ble.Observer {
	if tracer == nil {
		tracer = Tracer()
	}
	return &spanObserver{ctx: ctx, tracer: tracer}
}

func (o *spanObserver) Observe(e ble.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	addr := attribute.String("ble.address", e.Address.String())

	switch e.Kind {
	case ble.EventStateChanged:
		o.stateChanged(e, addr)
	case ble.EventScanStarted:
		o.addEvent("scan.start")
	case ble.EventScanStopped:
		o.addEvent("scan.stop")
	case ble.EventAttemptStarted:
		o.addEvent("attempt", attribute.Int("ble.attempt", e.Attempt))
	case ble.EventAttemptFailed:
		if o.establish != nil {
			o.establish.RecordError(e.Err, trace.WithAttributes(attribute.Int("ble.attempt", e.Attempt)))
		}
	case ble.EventCharacteristicSelected:
		if o.establish != nil {
			o.establish.SetAttributes(attribute.String("ble.characteristic", e.Characteristic))
		}
	case ble.EventWrite:
		o.oneShot("ble.write", e.Err, addr,
			attribute.String("ble.characteristic", e.Characteristic),
			attribute.String("ble.data", fmt.Sprintf("% x", e.Data)),
			attribute.Int("ble.bytes", len(e.Data)))
	case ble.EventReconnect:
		o.oneShot("ble.reconnect", e.Err, addr)
	}
}

func (o *spanObserver) stateChanged(e ble.Event, addr attribute.KeyValue) {
	switch e.To {
	case ble.StateLocating:
		if o.establish != nil {
			o.establish.End()
		}
		_, o.establish = o.tracer.Start(o.ctx, "ble.establish", trace.WithAttributes(addr))
	case ble.StateReady, ble.StateFailed:
		if o.establish == nil {
			return
		}
		if e.To == ble.StateReady {
			o.establish.SetStatus(codes.Ok, "")
		} else {
			o.establish.SetStatus(codes.Error, "connection failed")
		}
		o.establish.End()
		o.establish = nil
	default:
		o.addEvent("state", attribute.String("ble.state", e.To.String()))
	}
}

func (o *spanObserver) addEvent(name string, attrs ...attribute.KeyValue) {
	if o.establish != nil {
		o.establish.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

func (o *spanObserver) oneShot(name string, err error, attrs ...attribute.KeyValue) {
	_, span := o.tracer.Start(o.ctx, name, trace.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
