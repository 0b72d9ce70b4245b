// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package telemetry

import (
	"sync"

	"github.com/luxfi/log"
)

// CardinalityGuard samples label values seen per metric name and raises a
// structured recommendation once the distinct-value count crosses a
// warning or critical threshold, per §4.8.
type CardinalityGuard struct {
	log       log.Logger
	metrics   *Registry
	warning   int
	critical  int

	mu     sync.Mutex
	seen   map[string]map[string]struct{}
	warned map[string]bool
}

// Recommendation is a structured note about a metric approaching or
// exceeding its label cardinality budget.
type Recommendation struct {
	Metric   string
	Distinct int
	Severity string // "warning" or "critical"
	Advice   string
}

// NewCardinalityGuard returns a guard that warns at warningThreshold
// distinct label values for a metric and treats criticalThreshold as a
// hard alert.
func NewCardinalityGuard(logger log.Logger, metrics *Registry, warningThreshold, criticalThreshold int) *CardinalityGuard {
	return &CardinalityGuard{
		log:      logger,
		metrics:  metrics,
		warning:  warningThreshold,
		critical: criticalThreshold,
		seen:     make(map[string]map[string]struct{}),
		warned:   make(map[string]bool),
	}
}

// Observe records a label value seen for metric and returns a
// Recommendation if this observation crossed a threshold, else nil.
func (g *CardinalityGuard) Observe(metric, labelValue string) *Recommendation {
	g.mu.Lock()
	defer g.mu.Unlock()

	values, ok := g.seen[metric]
	if !ok {
		values = make(map[string]struct{})
		g.seen[metric] = values
	}
	values[labelValue] = struct{}{}
	distinct := len(values)

	var rec *Recommendation
	switch {
	case distinct >= g.critical:
		rec = &Recommendation{Metric: metric, Distinct: distinct, Severity: "critical",
			Advice: "drop or bucket this label before it unbounds the series count"}
	case distinct >= g.warning && !g.warned[metric]:
		g.warned[metric] = true
		rec = &Recommendation{Metric: metric, Distinct: distinct, Severity: "warning",
			Advice: "label cardinality is climbing, consider a bounded enum"}
	}

	if rec != nil {
		g.metrics.Counter("cardinality_alerts_total", "count of cardinality guard alerts raised").WithLabelValues().Inc()
		g.log.Warn("cardinality guard alert", "metric", metric, "distinct", distinct, "severity", rec.Severity)
	}
	return rec
}
