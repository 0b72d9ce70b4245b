// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJaccardIdenticalText(t *testing.T) {
	require.Equal(t, 1.0, Jaccard("RAG combines retrieval and generation", "RAG combines retrieval and generation"))
}

func TestJaccardCaseFolded(t *testing.T) {
	require.Equal(t, 1.0, Jaccard("Hello World", "hello world"))
}

func TestJaccardDisjoint(t *testing.T) {
	require.Equal(t, 0.0, Jaccard("apples bananas", "cars trucks"))
}

func TestJaccardPartialOverlap(t *testing.T) {
	// {a,b,c} vs {b,c,d}: intersection 2, union 4
	require.InDelta(t, 0.5, Jaccard("a b c", "b c d"), 1e-9)
}
