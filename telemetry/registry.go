// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package telemetry provides the router's metrics registry, span
// abstraction, and cardinality guardrail (§4.8).
package telemetry

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry wraps a prometheus.Registerer with typed constructors so
// components never touch prometheus types directly. Constructed once per
// process and threaded explicitly into components, per the root-context
// pattern in §9 — never a package-level global.
type Registry struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewRegistry returns a new Registry backed by reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return &Registry{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Counter returns (creating if necessary) a counter vector with the given
// name, help text, and label names.
func (r *Registry) Counter(name, help string, labels ...string) *prometheus.CounterVec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	if err := r.reg.Register(c); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			c = existing.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	r.counters[name] = c
	return c
}

// Gauge returns (creating if necessary) a gauge vector.
func (r *Registry) Gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
	if err := r.reg.Register(g); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			g = existing.ExistingCollector.(*prometheus.GaugeVec)
		}
	}
	r.gauges[name] = g
	return g
}

// Histogram returns (creating if necessary) a histogram vector with a fixed
// bucket set, per §4.8 ("histograms (fixed bucket sets)").
func (r *Registry) Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := name
	if h, ok := r.histograms[key]; ok {
		return h
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
	if err := r.reg.Register(h); err != nil {
		if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
			h = existing.ExistingCollector.(*prometheus.HistogramVec)
		}
	}
	r.histograms[key] = h
	return h
}

// IncError increments the error_code_<code>_total counter for the given
// stable error code, per §7.
func (r *Registry) IncError(code string) {
	r.Counter("error_code_"+code+"_total", fmt.Sprintf("count of %s errors", code)).WithLabelValues().Inc()
}

// AgreementHistogramBuckets are the fixed agreement_pct buckets from §4.6.
var AgreementHistogramBuckets = []float64{0.2, 0.4, 0.6, 0.8, 0.9}
