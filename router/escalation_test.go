// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateLowConfidenceAfterProbe(t *testing.T) {
	cfg := EscalationConfig{NProbeTokens: 40, MinConfidenceAfterProbe: 0.5, MinLexicalDiversity: 0.1}

	obs := PartialObservation{OutputTokensSoFar: 41, Confidence: 0.3, TextSoFar: "the quick brown fox jumps over the lazy dog and then some more unique words appear here"}
	signals := Evaluate(obs, cfg)
	require.Contains(t, signals, SignalLowConfidence)
	require.NotContains(t, signals, SignalLowLexicalDiversity)
}

func TestEvaluateIgnoresBeforeProbe(t *testing.T) {
	cfg := EscalationConfig{NProbeTokens: 40, MinConfidenceAfterProbe: 0.9, MinLexicalDiversity: 0.9}
	obs := PartialObservation{OutputTokensSoFar: 10, Confidence: 0.1, TextSoFar: "x"}
	require.Empty(t, Evaluate(obs, cfg))
}

func TestEvaluatePolicyEscalationAlwaysFires(t *testing.T) {
	cfg := EscalationConfig{NProbeTokens: 1000}
	obs := PartialObservation{OutputTokensSoFar: 1, PolicyEscalate: true}
	require.Contains(t, Evaluate(obs, cfg), SignalPolicyEscalation)
}

func TestEvaluateLowLexicalDiversity(t *testing.T) {
	cfg := EscalationConfig{NProbeTokens: 5, MinLexicalDiversity: 0.5, MinConfidenceAfterProbe: 0}
	obs := PartialObservation{OutputTokensSoFar: 10, TextSoFar: "the the the the the the"}
	require.Contains(t, Evaluate(obs, cfg), SignalLowLexicalDiversity)
}
