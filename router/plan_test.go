// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPlanSingleCandidate(t *testing.T) {
	reg := NewRegistry([]Model{
		{ID: "fast-1", ClusterID: "explain", Status: StatusActive, SafetyGrade: SafetyGradeD, CostUSDPer1K: 0.002},
	}, "")
	stats := NewRoutingStats()

	plan := BuildPlan(PlanRequest{ClusterID: "explain", MinSafetyGrade: SafetyGradeD}, reg, stats, 2.0)
	require.Len(t, plan.Candidates, 1)
	require.Equal(t, "fast-1", plan.Primary)
}

func TestBuildPlanFiltersBySafetyGradeAndCapability(t *testing.T) {
	reg := NewRegistry([]Model{
		{ID: "low-grade", ClusterID: "c", Status: StatusActive, SafetyGrade: SafetyGradeD, CostUSDPer1K: 0.001},
		{ID: "high-grade", ClusterID: "c", Status: StatusActive, SafetyGrade: SafetyGradeA, CostUSDPer1K: 0.002, Capabilities: []string{"vision"}},
	}, "")
	stats := NewRoutingStats()

	plan := BuildPlan(PlanRequest{ClusterID: "c", MinSafetyGrade: SafetyGradeB, Capabilities: []string{"vision"}}, reg, stats, 2.0)
	require.Len(t, plan.Candidates, 1)
	require.Equal(t, "high-grade", plan.Primary)
}

func TestBuildPlanCheapestFirstWithoutStats(t *testing.T) {
	reg := NewRegistry([]Model{
		{ID: "b", ClusterID: "c", Status: StatusActive, SafetyGrade: SafetyGradeD, CostUSDPer1K: 0.005},
		{ID: "a", ClusterID: "c", Status: StatusActive, SafetyGrade: SafetyGradeD, CostUSDPer1K: 0.001},
	}, "")
	stats := NewRoutingStats()

	plan := BuildPlan(PlanRequest{ClusterID: "c", MinSafetyGrade: SafetyGradeD}, reg, stats, 2.0)
	require.Equal(t, "a", plan.Primary)
}
