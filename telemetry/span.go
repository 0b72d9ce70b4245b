// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// QoS sampling ratios, §4.8: "spans include per-QoS sampling ratios
// (gold=1.0, silver=0.5, bronze=0.1 default)".
const (
	SampleRatioGold   = 1.0
	SampleRatioSilver = 0.5
	SampleRatioBronze = 0.1
)

// QoSSampleRatio returns the configured default sampling ratio for a tier
// name; unknown tiers sample at the bronze ratio.
func QoSSampleRatio(qos string) float64 {
	switch qos {
	case "gold":
		return SampleRatioGold
	case "silver":
		return SampleRatioSilver
	default:
		return SampleRatioBronze
	}
}

// Tracer wraps an otel.Tracer scoped to the router.
type Tracer struct {
	tr trace.Tracer
}

// NewTracer returns a Tracer using the global otel TracerProvider under the
// given instrumentation name. Nothing in this repository installs an SDK
// TracerProvider, so spans go to whatever global provider is set.
func NewTracer(name string) *Tracer {
	return &Tracer{tr: otel.Tracer(name)}
}

// StartSpan begins a span tagged with the QoS tier and its sampling ratio.
// Sampling itself is delegated to the configured otel Sampler; this just
// decorates the span with the ratio used for deliberate visibility.
func (t *Tracer) StartSpan(ctx context.Context, name, qos string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("qos", qos), attribute.Float64("sample_ratio", QoSSampleRatio(qos)))
	return t.tr.Start(ctx, name, trace.WithAttributes(attrs...))
}

// WindowUpdateSpan records a window.update span per §4.3, with
// before/after/delta attributes.
func (t *Tracer) WindowUpdateSpan(ctx context.Context, qos string, before, after int) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "window.update", qos,
		attribute.Int("before", before),
		attribute.Int("after", after),
		attribute.Int("delta", after-before),
	)
}
