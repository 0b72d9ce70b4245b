// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import "errors"

// Strategy names one of the alternative agreement strategies (§4.6).
type Strategy string

const (
	StrategyUnion     Strategy = "union"
	StrategyQuorum    Strategy = "quorum"
	StrategyTwoPhase  Strategy = "two_phase"
)

// ErrNoQuorum is returned by Resolve when no strategy can pick a winner.
var ErrNoQuorum = errors.New("consensus: no candidate met the strategy's acceptance criteria")

// Candidate is one parallel candidate output under consensus evaluation.
type Candidate struct {
	ModelID string
	Text    string
}

// Result is Resolve's verdict.
type Result struct {
	Winner       Candidate
	AgreementPct float64
}

// Resolve applies strategy to candidates and returns the winning text, or
// ErrNoQuorum if the strategy's acceptance criteria are not met (§4.6):
//   - union: every distinct text is accepted, so Resolve returns the
//     first candidate verbatim (union is a merge policy for callers that
//     want all answers, not a selection policy; Resolve reports
//     agreement as the mean pairwise Jaccard across all candidates for
//     observability).
//   - quorum: at least k candidates must share byte-identical text; the
//     first such text wins.
//   - two_phase: pick the candidate with the highest mean pairwise
//     Jaccard against all others, requiring that mean to reach
//     threshold.
func Resolve(strategy Strategy, candidates []Candidate, quorumK int, twoPhaseThreshold float64) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, ErrNoQuorum
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	agreement := MeanPairwiseJaccard(texts)

	switch strategy {
	case StrategyUnion:
		return Result{Winner: candidates[0], AgreementPct: agreement}, nil

	case StrategyQuorum:
		counts := make(map[string]int)
		firstIndex := make(map[string]int)
		for i, c := range candidates {
			if _, seen := firstIndex[c.Text]; !seen {
				firstIndex[c.Text] = i
			}
			counts[c.Text]++
		}
		for _, c := range candidates {
			if counts[c.Text] >= quorumK {
				return Result{Winner: candidates[firstIndex[c.Text]], AgreementPct: agreement}, nil
			}
		}
		return Result{}, ErrNoQuorum

	case StrategyTwoPhase:
		bestIdx := -1
		bestMean := -1.0
		for i := range candidates {
			mean := meanJaccardAgainstOthers(texts, i)
			if mean > bestMean {
				bestMean = mean
				bestIdx = i
			}
		}
		if bestIdx == -1 || bestMean < twoPhaseThreshold {
			return Result{}, ErrNoQuorum
		}
		return Result{Winner: candidates[bestIdx], AgreementPct: bestMean}, nil

	default:
		return Result{}, ErrNoQuorum
	}
}

func meanJaccardAgainstOthers(texts []string, idx int) float64 {
	if len(texts) < 2 {
		return 1.0
	}
	var sum float64
	var n int
	for j := range texts {
		if j == idx {
			continue
		}
		sum += Jaccard(texts[idx], texts[j])
		n++
	}
	return sum / float64(n)
}
