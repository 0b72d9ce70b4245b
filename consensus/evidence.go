// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"regexp"
	"strconv"

	"github.com/atp-router/routerd/telemetry"
)

// Citation is one provided citation a marker can reference.
type Citation struct {
	Index int
	URI   string
}

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// EvidenceResult is the outcome of validating a final answer's citation
// markers against its provided citations.
type EvidenceResult struct {
	Valid          bool
	MissingIndices []int
}

// ValidateEvidence scans text for `[i]` citation markers and verifies
// each index is covered by citations (§4.6: "Evidence validation ensures
// each citation marker [i] in the final text is covered by a provided
// citation with index i; missing markers increment evidence_fail_total").
func ValidateEvidence(text string, citations []Citation) EvidenceResult {
	have := make(map[int]struct{}, len(citations))
	for _, c := range citations {
		have[c.Index] = struct{}{}
	}

	seenMissing := make(map[int]struct{})
	var missing []int
	for _, m := range citationMarker.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, ok := have[idx]; !ok {
			if _, already := seenMissing[idx]; !already {
				seenMissing[idx] = struct{}{}
				missing = append(missing, idx)
			}
		}
	}

	return EvidenceResult{Valid: len(missing) == 0, MissingIndices: missing}
}

// EvidenceValidator wraps ValidateEvidence with the evidence_fail_total
// counter (§4.6).
type EvidenceValidator struct {
	fails counterNoLabels
}

// counterNoLabels is the minimal surface EvidenceValidator needs from a
// registered counter, kept local to avoid importing prometheus here for
// one call site.
type counterNoLabels interface {
	Inc()
}

// NewEvidenceValidator registers evidence_fail_total on reg.
func NewEvidenceValidator(reg *telemetry.Registry) *EvidenceValidator {
	c := reg.Counter("evidence_fail_total", "final answers with an uncovered citation marker")
	return &EvidenceValidator{fails: c.WithLabelValues()}
}

// Validate runs ValidateEvidence and increments evidence_fail_total on
// any missing marker.
func (v *EvidenceValidator) Validate(text string, citations []Citation) EvidenceResult {
	result := ValidateEvidence(text, citations)
	if !result.Valid {
		v.fails.Inc()
	}
	return result
}
