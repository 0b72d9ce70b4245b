// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/atp-router/routerd/telemetry"
)

func TestFSMPromotesCheaperShadow(t *testing.T) {
	reg := NewRegistry([]Model{
		{ID: "A", ClusterID: "c", Status: StatusActive},
		{ID: "S", ClusterID: "c", Status: StatusShadow},
	}, "")
	stats := NewRoutingStats()
	for i := 0; i < 6; i++ {
		stats.RecordCall("c", "A", true, 0.005, 0.1)
		stats.RecordCall("c", "S", true, 0.003, 0.1)
	}

	metrics := telemetry.NewRegistry(prometheus.NewRegistry())
	fsm := NewFSM(reg, stats, LifecycleConfig{
		PromoteMinCalls: 5, PromoteCostImprove: 0.9,
		DemoteMinCalls: 6, DemoteCostRegress: 1.25,
		HysteresisSec: 5 * time.Second,
	}, metrics)

	events := fsm.Evaluate("c", time.Now())
	require.Len(t, events, 1)
	require.Equal(t, "S", events[0].ModelID)
	require.Equal(t, StatusActive, events[0].To)

	updated, ok := reg.Get("S")
	require.True(t, ok)
	require.Equal(t, StatusActive, updated.Status)
}

func TestFSMSkipsWithinHysteresis(t *testing.T) {
	now := time.Now()
	reg := NewRegistry([]Model{
		{ID: "A", ClusterID: "c", Status: StatusActive},
		{ID: "S", ClusterID: "c", Status: StatusShadow, LastLifecycleChangeUnix: now.Unix()},
	}, "")
	stats := NewRoutingStats()
	for i := 0; i < 6; i++ {
		stats.RecordCall("c", "A", true, 0.005, 0.1)
		stats.RecordCall("c", "S", true, 0.003, 0.1)
	}

	metrics := telemetry.NewRegistry(prometheus.NewRegistry())
	fsm := NewFSM(reg, stats, LifecycleConfig{
		PromoteMinCalls: 5, PromoteCostImprove: 0.9,
		DemoteMinCalls: 6, DemoteCostRegress: 1.25,
		HysteresisSec: time.Hour,
	}, metrics)

	events := fsm.Evaluate("c", now.Add(time.Second))
	require.Empty(t, events)
}

func TestFSMDemotesExpensiveActive(t *testing.T) {
	reg := NewRegistry([]Model{
		{ID: "cheap", ClusterID: "c", Status: StatusActive},
		{ID: "expensive", ClusterID: "c", Status: StatusActive},
	}, "")
	stats := NewRoutingStats()
	for i := 0; i < 6; i++ {
		stats.RecordCall("c", "cheap", true, 0.002, 0.1)
		stats.RecordCall("c", "expensive", true, 0.01, 0.1)
	}

	metrics := telemetry.NewRegistry(prometheus.NewRegistry())
	fsm := NewFSM(reg, stats, LifecycleConfig{
		DemoteMinCalls: 6, DemoteCostRegress: 1.25,
		HysteresisSec: 5 * time.Second,
	}, metrics)

	events := fsm.Evaluate("c", time.Now())
	require.Len(t, events, 1)
	require.Equal(t, "expensive", events[0].ModelID)
	require.Equal(t, StatusDeprecated, events[0].To)
}
