package observability

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/clothhaven/storefront"

// ClientInstruments records spans and latency for outbound backend calls.
type ClientInstruments struct {
	tracer         trace.Tracer
	latency        metric.Float64Histogram
	latencyEnabled bool
}

// NewClientInstruments registers the outbound instruments against the global providers.
func NewClientInstruments(logger *zap.Logger) *ClientInstruments {
	meter := otel.GetMeterProvider().Meter(instrumentationName)
	latency, err := meter.Float64Histogram(
		"backend.request.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for backend REST calls"),
	)
	if err != nil {
		Or(logger).Warn("observability: unable to register backend latency metric", zap.Error(err))
	}
	return &ClientInstruments{
		tracer:         otel.Tracer(instrumentationName),
		latency:        latency,
		latencyEnabled: err == nil,
	}
}

// Start opens a client span for the named operation.
func (c *ClientInstruments) Start(ctx context.Context, operation, method, route string) (context.Context, func(status int, err error)) {
	if c == nil {
		return ctx, func(int, error) {}
	}
	ctx, span := c.tracer.Start(ctx, operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.template", route),
	)
	start := time.Now()
	return ctx, func(status int, err error) {
		elapsed := float64(time.Since(start).Microseconds()) / 1000
		attrs := []attribute.KeyValue{
			attribute.String("operation", operation),
			attribute.Int("http.response.status_code", status),
		}
		span.SetAttributes(attrs[1])
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case status >= http.StatusBadRequest:
			span.SetStatus(codes.Error, http.StatusText(status))
		default:
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		if c.latencyEnabled {
			c.latency.Record(ctx, elapsed, metric.WithAttributes(attrs...))
		}
	}
}
