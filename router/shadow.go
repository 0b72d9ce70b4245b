// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import "sync"

// ShadowObservation is one completed shadow-model call, whether triggered
// synchronously (seeded against a live request) or by a background
// replay.
type ShadowObservation struct {
	ClusterID string
	ModelID   string
	Success   bool
	CostUSD   float64
	LatencyS  float64
	Seeded    bool
}

// ShadowStats aggregates shadow-model observations in a table separate
// from RoutingStats. Open Question resolved: shadow results are recorded
// here for reporting but never folded into the RoutingStats counters
// that drive live UCB candidate scoring; a shadow model observes
// without influencing traffic split (§4.2: "shadow models observe
// without serving"). Folding either seeded or background observations
// into RoutingStats.TotalCallsInCluster would inflate the ln(N)
// exploration term for actively served models using calls the live plan
// never chose.
type ShadowStats struct {
	mu    sync.RWMutex
	byKey map[statKey]Stat
}

// NewShadowStats returns an empty shadow-stats table.
func NewShadowStats() *ShadowStats {
	return &ShadowStats{byKey: make(map[statKey]Stat)}
}

// RecordShadow folds obs into the shadow-only aggregate, keyed the same
// way as RoutingStats but kept entirely separate from it.
func (s *ShadowStats) RecordShadow(obs ShadowObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := statKey{obs.ClusterID, obs.ModelID}
	st := s.byKey[k]
	st.Calls++
	if obs.Success {
		st.Successes++
	}
	st.CostSumUSD += obs.CostUSD
	st.LatencySumS += obs.LatencyS
	s.byKey[k] = st
}

// Get returns the shadow stat bucket for (clusterID, modelID), zero value
// if unseen.
func (s *ShadowStats) Get(clusterID, modelID string) Stat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKey[statKey{clusterID, modelID}]
}
