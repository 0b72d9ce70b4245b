// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"math"
	"sync"
)

// statKey identifies one (cluster_id, model_id) routing-stats bucket
// (§4.5: "Per (cluster_id, model_id): calls, successes, cost_sum_usd,
// latency_sum_s, last_lifecycle_change_ts").
type statKey struct {
	clusterID string
	modelID   string
}

// Stat is one routing-stats bucket.
type Stat struct {
	Calls         int64
	Successes     int64
	CostSumUSD    float64
	LatencySumS   float64
}

func (s Stat) avgCost() float64 {
	if s.Calls == 0 {
		return 0
	}
	return s.CostSumUSD / float64(s.Calls)
}

func (s Stat) successRate() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Calls)
}

// RoutingStats is the in-memory view UCB scoring and promotion/demotion
// read and write (§4.5, §9 bbolt-backed persistence lives in the
// observation package; this type is the hot-path aggregate).
type RoutingStats struct {
	mu   sync.RWMutex
	byKey map[statKey]Stat
}

// NewRoutingStats returns an empty stats table.
func NewRoutingStats() *RoutingStats {
	return &RoutingStats{byKey: make(map[statKey]Stat)}
}

// RecordCall folds one completed call's outcome into (clusterID, modelID).
func (r *RoutingStats) RecordCall(clusterID, modelID string, success bool, costUSD, latencyS float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := statKey{clusterID, modelID}
	s := r.byKey[k]
	s.Calls++
	if success {
		s.Successes++
	}
	s.CostSumUSD += costUSD
	s.LatencySumS += latencyS
	r.byKey[k] = s
}

// Get returns the stat bucket for (clusterID, modelID), zero value if
// unseen.
func (r *RoutingStats) Get(clusterID, modelID string) Stat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byKey[statKey{clusterID, modelID}]
}

// Seed installs a stat bucket directly, for restoring persisted rows from
// observation.StatsStore at startup without replaying every call.
func (r *RoutingStats) Seed(clusterID, modelID string, calls, successes int64, costSumUSD, latencySumS float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[statKey{clusterID, modelID}] = Stat{
		Calls:       calls,
		Successes:   successes,
		CostSumUSD:  costSumUSD,
		LatencySumS: latencySumS,
	}
}

// TotalCallsInCluster sums calls across every model in clusterID, the N
// in UCB's ln(N) exploration term.
func (r *RoutingStats) TotalCallsInCluster(clusterID string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for k, s := range r.byKey {
		if k.clusterID == clusterID {
			total += s.Calls
		}
	}
	return total
}

// UCBScore computes score = success_rate/avg_cost + c*sqrt(ln(totalCalls)/calls_model)
// (§4.5). An unseen candidate (calls_model == 0) has its exploration term
// dominate by construction: ln(totalCalls)/0 diverges, so it is treated as
// +Inf, ranking the candidate above any equally-estimated seen one (§8
// "UCB: with zero recorded calls for a candidate, the exploration term
// dominates").
func UCBScore(stats *RoutingStats, clusterID, modelID string, totalCalls int64, c float64) (score, exploit, explore float64) {
	s := stats.Get(clusterID, modelID)
	avgCost := s.avgCost()
	if avgCost > 0 {
		exploit = s.successRate() / avgCost
	}

	if s.Calls == 0 {
		explore = math.Inf(1)
	} else if totalCalls > 0 {
		explore = c * math.Sqrt(math.Log(float64(totalCalls))/float64(s.Calls))
	}

	return exploit + explore, exploit, explore
}
