// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atp-router/routerd/telemetry"
)

// LifecycleConfig mirrors the §6 promote.*/demote.*/promo_demo_hysteresis_sec
// keys (config.Lifecycle carries the same values; this is the shape the
// FSM itself consumes so it does not import the config package directly).
type LifecycleConfig struct {
	PromoteMinCalls    int64
	PromoteCostImprove float64
	DemoteMinCalls     int64
	DemoteCostRegress  float64
	HysteresisSec      time.Duration
}

// LifecycleEvent records one transition for the custody log (§4.5:
// "write custody log").
type LifecycleEvent struct {
	ModelID   string
	From      LifecycleStatus
	To        LifecycleStatus
	Reason    string
	AtUnix    int64
}

// FSM evaluates promotion/demotion after every lifecycle-relevant event
// and persists accepted transitions through Registry's atomic writer
// (§4.5).
type FSM struct {
	reg   *Registry
	stats *RoutingStats
	cfg   LifecycleConfig

	promotions *prometheus.CounterVec
	demotions  *prometheus.CounterVec
}

// NewFSM wires a promotion/demotion FSM against reg and stats, using cfg
// thresholds, and registers promotions_total/demotions_total on reg's
// metrics registry.
func NewFSM(reg *Registry, stats *RoutingStats, cfg LifecycleConfig, metrics *telemetry.Registry) *FSM {
	return &FSM{
		reg:   reg,
		stats: stats,
		cfg:   cfg,
		promotions: metrics.Counter("promotions_total", "model shadow->active promotions"),
		demotions:  metrics.Counter("demotions_total", "model active->deprecated demotions"),
	}
}

func withinHysteresis(lastChangeUnix int64, now time.Time, hysteresis time.Duration) bool {
	if lastChangeUnix == 0 {
		return false
	}
	elapsed := now.Sub(time.Unix(lastChangeUnix, 0))
	return elapsed < hysteresis
}

// Evaluate walks every model in clusterID and applies promotion/demotion
// rules, returning the events it committed. A model whose last lifecycle
// change is within HysteresisSec is skipped entirely (§4.5).
func (f *FSM) Evaluate(clusterID string, now time.Time) []LifecycleEvent {
	var events []LifecycleEvent

	cheapestActiveCost := f.cheapestActiveCost(clusterID)

	for _, m := range f.reg.All() {
		if m.ClusterID != clusterID {
			continue
		}
		if withinHysteresis(m.LastLifecycleChangeUnix, now, f.cfg.HysteresisSec) {
			continue
		}

		switch m.Status {
		case StatusShadow:
			if ev, ok := f.tryPromote(m, clusterID, now); ok {
				events = append(events, ev)
			}
		case StatusActive:
			if ev, ok := f.tryDemote(m, clusterID, cheapestActiveCost, now); ok {
				events = append(events, ev)
			}
		}
	}
	return events
}

func (f *FSM) cheapestActiveCost(clusterID string) float64 {
	cheapest := 0.0
	first := true
	for _, m := range f.reg.All() {
		if m.ClusterID != clusterID || m.Status != StatusActive {
			continue
		}
		s := f.stats.Get(clusterID, m.ID)
		cost := s.avgCost()
		if cost == 0 {
			continue
		}
		if first || cost < cheapest {
			cheapest = cost
			first = false
		}
	}
	return cheapest
}

// tryPromote implements: "if a shadow has calls >= PROMOTE_MIN_CALLS and
// avg_cost_shadow < PROMOTE_COST_IMPROVE * avg_cost_primary, promote"
// (§4.5). avg_cost_primary is read from the cluster's current primary —
// approximated here as the cheapest active model's avg cost, since
// "primary" is a plan-time concept and the FSM runs independently of any
// one plan.
func (f *FSM) tryPromote(m Model, clusterID string, now time.Time) (LifecycleEvent, bool) {
	s := f.stats.Get(clusterID, m.ID)
	if s.Calls < f.cfg.PromoteMinCalls {
		return LifecycleEvent{}, false
	}
	primaryCost := f.cheapestActiveCost(clusterID)
	if primaryCost == 0 || s.avgCost() >= f.cfg.PromoteCostImprove*primaryCost {
		return LifecycleEvent{}, false
	}

	ev := LifecycleEvent{ModelID: m.ID, From: StatusShadow, To: StatusActive, Reason: "promote", AtUnix: now.Unix()}
	_ = f.reg.Mutate(func(models map[string]Model) map[string]Model {
		cur := models[m.ID]
		cur.Status = StatusActive
		cur.LastLifecycleChangeUnix = now.Unix()
		models[m.ID] = cur
		return models
	})
	f.promotions.WithLabelValues().Inc()
	return ev, true
}

// tryDemote implements: "if an active model has calls >= DEMOTE_MIN_CALLS
// and avg_cost_active > DEMOTE_COST_REGRESS * avg_cost_cheapest_active,
// demote" (§4.5).
func (f *FSM) tryDemote(m Model, clusterID string, cheapestActiveCost float64, now time.Time) (LifecycleEvent, bool) {
	s := f.stats.Get(clusterID, m.ID)
	if s.Calls < f.cfg.DemoteMinCalls {
		return LifecycleEvent{}, false
	}
	if cheapestActiveCost == 0 || s.avgCost() <= f.cfg.DemoteCostRegress*cheapestActiveCost {
		return LifecycleEvent{}, false
	}

	ev := LifecycleEvent{ModelID: m.ID, From: StatusActive, To: StatusDeprecated, Reason: "demote", AtUnix: now.Unix()}
	_ = f.reg.Mutate(func(models map[string]Model) map[string]Model {
		cur := models[m.ID]
		cur.Status = StatusDeprecated
		cur.LastLifecycleChangeUnix = now.Unix()
		models[m.ID] = cur
		return models
	})
	f.demotions.WithLabelValues().Inc()
	return ev, true
}
