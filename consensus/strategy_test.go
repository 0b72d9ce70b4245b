// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveQuorumPicksMajority(t *testing.T) {
	candidates := []Candidate{
		{ModelID: "a", Text: "RAG is retrieval augmented generation"},
		{ModelID: "b", Text: "RAG is retrieval augmented generation"},
		{ModelID: "c", Text: "something completely different"},
	}
	result, err := Resolve(StrategyQuorum, candidates, 2, 0)
	require.NoError(t, err)
	require.Equal(t, "RAG is retrieval augmented generation", result.Winner.Text)
}

func TestResolveQuorumNoneReached(t *testing.T) {
	candidates := []Candidate{
		{ModelID: "a", Text: "one"},
		{ModelID: "b", Text: "two"},
		{ModelID: "c", Text: "three"},
	}
	_, err := Resolve(StrategyQuorum, candidates, 2, 0)
	require.ErrorIs(t, err, ErrNoQuorum)
}

func TestResolveTwoPhasePicksHighestMeanAgreement(t *testing.T) {
	candidates := []Candidate{
		{ModelID: "a", Text: "the cat sat on the mat"},
		{ModelID: "b", Text: "the cat sat on the mat today"},
		{ModelID: "c", Text: "quantum entanglement is strange"},
	}
	result, err := Resolve(StrategyTwoPhase, candidates, 0, 0.3)
	require.NoError(t, err)
	require.Contains(t, []string{"the cat sat on the mat", "the cat sat on the mat today"}, result.Winner.Text)
}

func TestResolveTwoPhaseBelowThreshold(t *testing.T) {
	candidates := []Candidate{
		{ModelID: "a", Text: "alpha"},
		{ModelID: "b", Text: "beta"},
	}
	_, err := Resolve(StrategyTwoPhase, candidates, 0, 0.9)
	require.ErrorIs(t, err, ErrNoQuorum)
}

func TestResolveUnionReturnsFirstWithAgreementObservability(t *testing.T) {
	candidates := []Candidate{
		{ModelID: "a", Text: "x y z"},
		{ModelID: "b", Text: "x y z"},
	}
	result, err := Resolve(StrategyUnion, candidates, 0, 0)
	require.NoError(t, err)
	require.Equal(t, "a", result.Winner.ModelID)
	require.Equal(t, 1.0, result.AgreementPct)
}
