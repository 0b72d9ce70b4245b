// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import "strings"

// EscalationSignal names why a candidate is being escalated away from
// (§4.5: "low lexical diversity, low adapter-reported confidence after
// the first N_probe output tokens, explicit policy escalation").
type EscalationSignal string

const (
	SignalLowLexicalDiversity EscalationSignal = "low_lexical_diversity"
	SignalLowConfidence       EscalationSignal = "low_confidence"
	SignalPolicyEscalation    EscalationSignal = "policy_escalation"
)

// EscalationConfig holds the thresholds evaluated against a partial
// stream.
type EscalationConfig struct {
	NProbeTokens           int
	MinConfidenceAfterProbe float64
	MinLexicalDiversity    float64
}

// PartialObservation is one adapter chunk folded into the running
// escalation evaluation.
type PartialObservation struct {
	OutputTokensSoFar int
	Confidence        float64
	TextSoFar         string
	PolicyEscalate    bool
}

// lexicalDiversity is the type-token ratio (distinct case-folded words /
// total words) over text, 1.0 for empty text (no evidence of repetition
// yet, never triggers on silence).
func lexicalDiversity(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 1.0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}

// Evaluate returns every escalation signal that fires for obs against
// cfg. Explicit policy escalation is checked unconditionally; the
// confidence and lexical-diversity checks only apply once
// OutputTokensSoFar has reached NProbeTokens (§4.5).
func Evaluate(obs PartialObservation, cfg EscalationConfig) []EscalationSignal {
	var signals []EscalationSignal
	if obs.PolicyEscalate {
		signals = append(signals, SignalPolicyEscalation)
	}
	if obs.OutputTokensSoFar < cfg.NProbeTokens {
		return signals
	}
	if obs.Confidence < cfg.MinConfidenceAfterProbe {
		signals = append(signals, SignalLowConfidence)
	}
	if lexicalDiversity(obs.TextSoFar) < cfg.MinLexicalDiversity {
		signals = append(signals, SignalLowLexicalDiversity)
	}
	return signals
}
