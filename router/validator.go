// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atp-router/routerd/telemetry"
)

// ValidationResult is a success validator's verdict (§4.5: "(response_text,
// prompt, model) -> {format_ok, safety_ok, quality_score}").
type ValidationResult struct {
	FormatOK     bool
	SafetyOK     bool
	QualityScore float64
}

// Success reports whether the response may be finalized: format_ok AND
// safety_ok (§4.5).
func (r ValidationResult) Success() bool {
	return r.FormatOK && r.SafetyOK
}

// SuccessValidator is pluggable per deployment (§4.5 "Pluggable").
type SuccessValidator interface {
	Validate(responseText, prompt, modelID string) ValidationResult
}

// ValidatorFunc adapts a function to SuccessValidator.
type ValidatorFunc func(responseText, prompt, modelID string) ValidationResult

func (f ValidatorFunc) Validate(responseText, prompt, modelID string) ValidationResult {
	return f(responseText, prompt, modelID)
}

// ValidationTracker feeds validator verdicts into UCB success counts and
// exposes model_success_rate/quality_score_avg/validations_total (§4.5).
type ValidationTracker struct {
	mu    sync.Mutex
	stats *RoutingStats

	validations     *prometheus.CounterVec
	qualityScoreSum map[statKey]float64
	qualityScoreCnt map[statKey]int64
}

// NewValidationTracker wires a tracker against stats, registering
// validations_total on metrics.
func NewValidationTracker(stats *RoutingStats, metrics *telemetry.Registry) *ValidationTracker {
	return &ValidationTracker{
		stats:           stats,
		validations:     metrics.Counter("validations_total", "success validator runs", "cluster_id", "model_id"),
		qualityScoreSum: make(map[statKey]float64),
		qualityScoreCnt: make(map[statKey]int64),
	}
}

// Record folds one validated call into stats: success/failure feeds UCB
// (RoutingStats.RecordCall), and quality_score_avg is tracked separately
// since it is not part of the UCB formula.
func (t *ValidationTracker) Record(clusterID, modelID string, result ValidationResult, costUSD, latencyS float64) {
	t.stats.RecordCall(clusterID, modelID, result.Success(), costUSD, latencyS)
	t.mu.Lock()
	k := statKey{clusterID, modelID}
	t.qualityScoreSum[k] += result.QualityScore
	t.qualityScoreCnt[k]++
	t.mu.Unlock()
	t.validations.WithLabelValues(clusterID, modelID).Inc()
}

// QualityScoreAvg returns the running mean quality score for (clusterID,
// modelID), 0 if unseen.
func (t *ValidationTracker) QualityScoreAvg(clusterID, modelID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := statKey{clusterID, modelID}
	if t.qualityScoreCnt[k] == 0 {
		return 0
	}
	return t.qualityScoreSum[k] / float64(t.qualityScoreCnt[k])
}
