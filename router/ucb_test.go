// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUCBUnseenCandidateDominates(t *testing.T) {
	stats := NewRoutingStats()
	stats.RecordCall("cluster-a", "seen-model", true, 0.01, 0.2)

	total := stats.TotalCallsInCluster("cluster-a")
	seenScore, _, _ := UCBScore(stats, "cluster-a", "seen-model", total, 2.0)
	unseenScore, _, explore := UCBScore(stats, "cluster-a", "unseen-model", total, 2.0)

	require.True(t, math.IsInf(explore, 1))
	require.Greater(t, unseenScore, seenScore)
}

func TestUCBExploitFavorsCheaperHigherSuccess(t *testing.T) {
	stats := NewRoutingStats()
	for i := 0; i < 10; i++ {
		stats.RecordCall("cluster-a", "cheap", true, 0.003, 0.1)
		stats.RecordCall("cluster-a", "expensive", true, 0.005, 0.1)
	}
	total := stats.TotalCallsInCluster("cluster-a")
	cheapScore, cheapExploit, _ := UCBScore(stats, "cluster-a", "cheap", total, 0)
	expensiveScore, expensiveExploit, _ := UCBScore(stats, "cluster-a", "expensive", total, 0)

	require.Greater(t, cheapExploit, expensiveExploit)
	require.Greater(t, cheapScore, expensiveScore)
}
