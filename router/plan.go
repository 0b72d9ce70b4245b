// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

// PlanRequest carries the inputs to candidate planning (§4.5 steps 1-4).
type PlanRequest struct {
	ClusterID        string
	MinSafetyGrade   SafetyGrade
	RequireStatus    []LifecycleStatus
	Capabilities     []string
	CostCeilingUSD1K float64
}

// Candidate is one plan entry, in final emission order.
type Candidate struct {
	Model      Model
	UCBScore   float64
	UCBExploit float64
	UCBExplore float64
}

// Plan is the emitted `plan` frame payload (§4.5 step 4).
type Plan struct {
	Candidates  []Candidate
	Primary     string
	ClusterHint string
}

func gradeAtLeast(g, min SafetyGrade) bool {
	rank := map[SafetyGrade]int{SafetyGradeA: 3, SafetyGradeB: 2, SafetyGradeC: 1, SafetyGradeD: 0}
	return rank[g] >= rank[min]
}

func statusAllowed(status LifecycleStatus, allowed []LifecycleStatus) bool {
	if len(allowed) == 0 {
		return status == StatusActive
	}
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

// BuildPlan filters the registry's models by safety_grade/status/
// capabilities/cost ceiling, orders the survivors by cost ascending, then
// reorders by UCB score against stats (§4.5 steps 1-3). The cheapest
// eligible candidate becomes primary; the rest form the escalation chain.
func BuildPlan(req PlanRequest, reg *Registry, stats *RoutingStats, c float64) Plan {
	var eligible []Model
	for _, m := range reg.All() {
		if m.ClusterID != req.ClusterID {
			continue
		}
		if !gradeAtLeast(m.SafetyGrade, req.MinSafetyGrade) {
			continue
		}
		if !statusAllowed(m.Status, req.RequireStatus) {
			continue
		}
		if !m.hasCapabilities(req.Capabilities) {
			continue
		}
		if req.CostCeilingUSD1K > 0 && m.CostUSDPer1K > req.CostCeilingUSD1K {
			continue
		}
		eligible = append(eligible, m)
	}

	// cost ascending, stable insertion sort (small N, keeps ties in
	// registry-iteration order stable for reproducible plans).
	for i := 1; i < len(eligible); i++ {
		for j := i; j > 0 && eligible[j-1].CostUSDPer1K > eligible[j].CostUSDPer1K; j-- {
			eligible[j-1], eligible[j] = eligible[j], eligible[j-1]
		}
	}

	totalCalls := stats.TotalCallsInCluster(req.ClusterID)
	candidates := make([]Candidate, 0, len(eligible))
	for _, m := range eligible {
		score, exploit, explore := UCBScore(stats, req.ClusterID, m.ID, totalCalls, c)
		candidates = append(candidates, Candidate{Model: m, UCBScore: score, UCBExploit: exploit, UCBExplore: explore})
	}
	reorderByUCB(candidates)

	plan := Plan{Candidates: candidates, ClusterHint: req.ClusterID}
	if len(candidates) > 0 {
		plan.Primary = candidates[0].Model.ID
	}
	return plan
}

// reorderByUCB sorts candidates by descending UCB score, stable so equal
// scores preserve the incoming (cost-ascending) order.
func reorderByUCB(candidates []Candidate) {
	for i := 1; i < len(candidates); i++ {
		j := i
		for j > 0 && candidates[j-1].UCBScore < candidates[j].UCBScore {
			candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
			j--
		}
	}
}
