// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatcher

import (
	"context"
	"time"

	"github.com/atp-router/routerd/adapterrpc"
	"github.com/atp-router/routerd/errcode"
	"github.com/atp-router/routerd/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatcher wires the adapter pool and circuit breakers into the §4.4
// three-call dispatch path: Estimate, then Stream, then per-chunk
// counter/escalation updates. Transport-level failures (connection
// refused, deadline exceeded before any byte streamed) count against the
// breaker and are returned to the caller without a retry; a semantic
// failure an adapter reports
// (e.g. a tool error embedded in a chunk) is not retried here — it
// surfaces to the routing layer for escalation/promotion-demotion
// decisions (§4.5).
type Dispatcher struct {
	pool     *Pool
	breakers *Breakers

	openGauge     *prometheus.GaugeVec
	dispatched    *prometheus.CounterVec
	transportErrs *prometheus.CounterVec
	streamLatency *prometheus.HistogramVec
}

// NewDispatcher wires a Dispatcher with circuits_open and dispatch
// counters registered against reg.
func NewDispatcher(pool *Pool, breakers *Breakers, reg *telemetry.Registry) *Dispatcher {
	return &Dispatcher{
		pool:          pool,
		breakers:      breakers,
		openGauge:     reg.Gauge("circuits_open", "number of adapter circuit breakers currently OPEN"),
		dispatched:    reg.Counter("dispatch_total", "adapter dispatch attempts", "adapter_id", "outcome"),
		transportErrs: reg.Counter("dispatch_transport_errors_total", "transport-level dispatch failures", "adapter_id"),
		streamLatency: reg.Histogram("dispatch_stream_seconds", "adapter Stream call duration",
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, "adapter_id"),
	}
}

func (d *Dispatcher) recordSuccess(adapterID string) {
	d.breakers.RecordSuccess(adapterID)
	d.dispatched.WithLabelValues(adapterID, "ok").Inc()
	d.openGauge.WithLabelValues().Set(float64(d.breakers.OpenCount()))
}

func (d *Dispatcher) recordFailure(adapterID string) {
	d.breakers.RecordFailure(adapterID)
	d.transportErrs.WithLabelValues(adapterID).Inc()
	d.openGauge.WithLabelValues().Set(float64(d.breakers.OpenCount()))
}

// Estimate performs the pre-flight cost/latency call against adapterID,
// failing fast with errcode.CodeNoModelsAvailable if that adapter's
// breaker is OPEN rather than letting the call block and time out (§4.4:
// "no_models_available is returned immediately rather than waiting out a
// dead adapter").
func (d *Dispatcher) Estimate(ctx context.Context, adapterID string, req adapterrpc.EstimateRequest) (adapterrpc.Estimate, error) {
	var zero adapterrpc.Estimate
	if !d.breakers.Allow(adapterID) {
		return zero, errcode.New(errcode.CodeNoModelsAvailable, "adapter circuit open: "+adapterID)
	}
	ac, ok := d.pool.Get(adapterID)
	if !ok {
		return zero, errcode.New(errcode.CodeNoModelsAvailable, "adapter not registered: "+adapterID)
	}

	est, err := ac.Client.Estimate(ctx, req)
	if err != nil {
		d.recordFailure(adapterID)
		return zero, err
	}
	d.recordSuccess(adapterID)
	return est, nil
}

// Stream invokes the adapter's Stream RPC, routing each chunk to onChunk.
// A transport-level failure (the RPC itself erroring, as opposed to a
// semantic error chunk) records against the breaker.
func (d *Dispatcher) Stream(ctx context.Context, adapterID, streamID string, promptJSON map[string]interface{}, onChunk func(adapterrpc.Chunk) error) error {
	if !d.breakers.Allow(adapterID) {
		return errcode.New(errcode.CodeNoModelsAvailable, "adapter circuit open: "+adapterID)
	}
	ac, ok := d.pool.Get(adapterID)
	if !ok {
		return errcode.New(errcode.CodeNoModelsAvailable, "adapter not registered: "+adapterID)
	}

	start := time.Now()
	err := ac.Client.Stream(ctx, streamID, promptJSON, onChunk)
	d.streamLatency.WithLabelValues(adapterID).Observe(time.Since(start).Seconds())
	if err != nil {
		d.recordFailure(adapterID)
		return err
	}
	d.recordSuccess(adapterID)
	return nil
}
