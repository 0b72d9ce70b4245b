// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensus implements §4.6: agreement scoring across parallel
// candidate outputs and citation-marker evidence validation. It folds
// repeated observations into a single verdict, generalized from
// validator-vote polling to text-agreement polling.
package consensus

import "strings"

// tokenSet returns the case-folded word set of text.
func tokenSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard computes |A ∩ B| / |A ∪ B| over the case-folded token sets of a
// and b. Two empty texts are defined as fully agreeing (1.0); one empty
// and one non-empty fully disagree (0.0).
func Jaccard(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// MeanPairwiseJaccard averages Jaccard(texts[i], texts[j]) over every
// unordered pair. Returns 1.0 for zero or one text (nothing to disagree
// with).
func MeanPairwiseJaccard(texts []string) float64 {
	if len(texts) < 2 {
		return 1.0
	}
	var sum float64
	var n int
	for i := 0; i < len(texts); i++ {
		for j := i + 1; j < len(texts); j++ {
			sum += Jaccard(texts[i], texts[j])
			n++
		}
	}
	return sum / float64(n)
}

// AgreementHistogramBuckets mirrors telemetry.AgreementHistogramBuckets;
// duplicated as a typed constant here so this package has no import-time
// dependency on telemetry for its pure scoring functions.
var AgreementHistogramBuckets = []float64{0.2, 0.4, 0.6, 0.8, 0.9}
