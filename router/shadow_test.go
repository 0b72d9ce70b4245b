// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordShadowNeverTouchesRoutingStats(t *testing.T) {
	stats := NewRoutingStats()
	shadow := NewShadowStats()

	shadow.RecordShadow(ShadowObservation{ClusterID: "reviewer", ModelID: "shadow-1", Success: true, CostUSD: 0.01, LatencyS: 0.2, Seeded: true})
	shadow.RecordShadow(ShadowObservation{ClusterID: "reviewer", ModelID: "shadow-1", Success: true, CostUSD: 0.01, LatencyS: 0.2, Seeded: false})

	require.Equal(t, int64(0), stats.TotalCallsInCluster("reviewer"))
	require.Equal(t, Stat{}, stats.Get("reviewer", "shadow-1"))

	s := shadow.Get("reviewer", "shadow-1")
	require.Equal(t, int64(2), s.Calls)
	require.Equal(t, int64(2), s.Successes)
}

func TestRecordShadowAggregatesPerModel(t *testing.T) {
	shadow := NewShadowStats()
	shadow.RecordShadow(ShadowObservation{ClusterID: "reviewer", ModelID: "shadow-1", Success: false, CostUSD: 0.02, LatencyS: 0.3})
	shadow.RecordShadow(ShadowObservation{ClusterID: "reviewer", ModelID: "shadow-2", Success: true, CostUSD: 0.01, LatencyS: 0.1})

	s1 := shadow.Get("reviewer", "shadow-1")
	require.Equal(t, int64(1), s1.Calls)
	require.Equal(t, int64(0), s1.Successes)

	s2 := shadow.Get("reviewer", "shadow-2")
	require.Equal(t, int64(1), s2.Calls)
	require.Equal(t, int64(1), s2.Successes)
}
