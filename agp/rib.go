// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package agp

import (
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atp-router/routerd/telemetry"
)

// Route is one candidate path to a prefix, as carried in an UPDATE's
// announce[] (§4.7).
type Route struct {
	Prefix       string
	Peer         PeerID
	Path         []ADN // ADNs traversed, used for loop detection
	ClusterList  []string
	OriginatorID RouterID

	LocalPref    int
	QoSFit       float64 // higher is better
	SecurityGroups []string
	Region       string
	VRF          string
	CostUSD1K    float64
	MAPE7D       float64

	P95MS           float64
	ErrRate         float64
	MetricsTimestamp time.Time
}

// PolicyFilter decides whether a route is admissible before ranking
// (§4.7 step 1: "security groups, region, VRF, cost ceiling").
type PolicyFilter struct {
	AllowedSecurityGroups []string
	AllowedRegions        []string
	AllowedVRFs           []string
	CostCeilingUSD1K      float64
}

func contains(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (f PolicyFilter) admits(r Route) bool {
	for _, g := range r.SecurityGroups {
		if len(f.AllowedSecurityGroups) > 0 && !contains(f.AllowedSecurityGroups, g) {
			return false
		}
	}
	if !contains(f.AllowedRegions, r.Region) {
		return false
	}
	if !contains(f.AllowedVRFs, r.VRF) {
		return false
	}
	if f.CostCeilingUSD1K > 0 && r.CostUSD1K > f.CostCeilingUSD1K {
		return false
	}
	return true
}

// RIB is the single read-write-locked routing information base (§5: "RIB:
// a single read-write lock; path selection acquires read; UPDATE/WITHDRAW
// acquires write").
type RIB struct {
	mu sync.RWMutex
	// byPrefix[prefix][peer] = route, so withdraw-by-(prefix,peer) is O(1).
	byPrefix map[string]map[PeerID]Route

	localADN       ADN
	localClusterID string
	localRouterID  RouterID

	loopsPrevented *prometheus.CounterVec
}

// NewRIB constructs an empty RIB identified by the local router's
// identity, used for loop detection on announce (§4.7).
func NewRIB(localRouterID RouterID, localADN ADN, localClusterID string, metrics *telemetry.Registry) *RIB {
	return &RIB{
		byPrefix:       make(map[string]map[PeerID]Route),
		localADN:       localADN,
		localClusterID: localClusterID,
		localRouterID:  localRouterID,
		loopsPrevented: metrics.Counter("agp_loops_prevented_total", "AGP announces rejected as loops"),
	}
}

// isLoop reports whether accepting route would create a forwarding loop:
// its path contains the local ADN, its cluster_list contains the local
// cluster_id, or its originator_id equals the local router_id (§4.7).
func (r *RIB) isLoop(route Route) bool {
	for _, hop := range route.Path {
		if hop == r.localADN {
			return true
		}
	}
	for _, c := range route.ClusterList {
		if c == r.localClusterID {
			return true
		}
	}
	return route.OriginatorID == r.localRouterID
}

// Announce validates and inserts route, rejecting loops (§4.7). Returns
// false if the route was rejected.
func (r *RIB) Announce(route Route) bool {
	if r.isLoop(route) {
		r.loopsPrevented.WithLabelValues().Inc()
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	peers, ok := r.byPrefix[route.Prefix]
	if !ok {
		peers = make(map[PeerID]Route)
		r.byPrefix[route.Prefix] = peers
	}
	peers[route.Peer] = route
	return true
}

// Withdraw removes the route for (prefix, peer) (§4.7: "Withdraws remove
// by (prefix, peer)").
func (r *RIB) Withdraw(prefix string, peer PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if peers, ok := r.byPrefix[prefix]; ok {
		delete(peers, peer)
		if len(peers) == 0 {
			delete(r.byPrefix, prefix)
		}
	}
}

// RoutesFor returns a snapshot of every candidate route to prefix.
func (r *RIB) RoutesFor(prefix string) []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peers, ok := r.byPrefix[prefix]
	if !ok {
		return nil
	}
	out := make([]Route, 0, len(peers))
	for _, route := range peers {
		out = append(out, route)
	}
	return out
}

// HealthWeights configures the step-5 health score combination (§4.7:
// "weighted combination of p95_ms and err_rate ... Default weights
// configurable").
type HealthWeights struct {
	P95Weight     float64
	ErrRateWeight float64
}

// DefaultHealthWeights is unweighted by default: equal weight on
// normalized latency and error rate.
var DefaultHealthWeights = HealthWeights{P95Weight: 0.5, ErrRateWeight: 0.5}

func freshnessFactor(metricsTimestamp, now time.Time, halfLifeS time.Duration) float64 {
	if metricsTimestamp.IsZero() {
		return 0
	}
	dt := now.Sub(metricsTimestamp)
	if dt < 0 {
		dt = 0
	}
	return math.Exp(-dt.Seconds() / halfLifeS.Seconds())
}

// healthScore computes step 5's score: lower p95_ms and err_rate are
// better, each scaled by freshness; a stale route (dt > holdTime) scores
// zero so it sorts last without needing a special case in Select.
func healthScore(r Route, now time.Time, holdTime time.Duration, halfLifeS time.Duration, w HealthWeights) float64 {
	dt := now.Sub(r.MetricsTimestamp)
	if r.MetricsTimestamp.IsZero() || dt > holdTime {
		return 0
	}
	f := freshnessFactor(r.MetricsTimestamp, now, halfLifeS)
	// invert so "better" (lower latency/error) yields a higher score.
	latencyScore := 1.0 / (1.0 + r.P95MS)
	errScore := 1.0 - r.ErrRate
	return f * (w.P95Weight*latencyScore + w.ErrRateWeight*errScore)
}

// SelectParams bundles the tunables path selection needs beyond the
// candidate routes themselves.
type SelectParams struct {
	Policy        PolicyFilter
	RequiredQoS   float64 // minimum QoSFit to be eligible (step 4)
	Now           time.Time
	HoldTime      time.Duration
	MetricsHalfLife time.Duration
	HealthWeights HealthWeights
	SessionID     string // ECMP stickiness key (step 8)
}

// Select applies the eight-step deterministic path selection algorithm
// to candidates and returns the winning ECMP set (§4.7). A route
// dominates another at the first differing step; ties proceed to the
// next step. Multiple routes tying through every step form the ECMP set,
// and the final pick within that set hashes SessionID for stickiness.
func Select(candidates []Route, p SelectParams) (winner Route, ecmpSet []Route, ok bool) {
	var eligible []Route
	for _, r := range candidates {
		if !p.Policy.admits(r) {
			continue
		}
		if r.QoSFit < p.RequiredQoS {
			continue
		}
		eligible = append(eligible, r)
	}
	if len(eligible) == 0 {
		return Route{}, nil, false
	}

	best := []Route{eligible[0]}
	for _, r := range eligible[1:] {
		cmp := compareRoutes(best[0], r, p)
		switch {
		case cmp < 0:
			// best[0] still wins, r is worse.
		case cmp > 0:
			best = []Route{r}
		default:
			best = append(best, r)
		}
	}

	if len(best) == 1 {
		return best[0], best, true
	}
	return ecmpPick(best, p.SessionID), best, true
}

// compareRoutes returns <0 if a wins, >0 if b wins, 0 if they tie through
// every deterministic step (steps 2-7; step 1 policy filter and step 8
// ECMP are handled by Select).
func compareRoutes(a, b Route, p SelectParams) int {
	if a.LocalPref != b.LocalPref {
		return b.LocalPref - a.LocalPref // descending
	}
	if len(a.Path) != len(b.Path) {
		return len(a.Path) - len(b.Path) // ascending
	}
	if a.QoSFit != b.QoSFit {
		if a.QoSFit > b.QoSFit {
			return -1
		}
		return 1
	}
	ah := healthScore(a, p.Now, p.HoldTime, p.MetricsHalfLife, p.HealthWeights)
	bh := healthScore(b, p.Now, p.HoldTime, p.MetricsHalfLife, p.HealthWeights)
	if ah != bh {
		if ah > bh {
			return -1
		}
		return 1
	}
	if a.CostUSD1K != b.CostUSD1K {
		if a.CostUSD1K < b.CostUSD1K {
			return -1
		}
		return 1
	}
	if a.MAPE7D != b.MAPE7D {
		if a.MAPE7D < b.MAPE7D {
			return -1
		}
		return 1
	}
	return 0
}

// ecmpPick deterministically selects one route from an ECMP-tied set
// using an FNV-1a hash of sessionID (§4.7 step 8: "hash on session_id
// for stickiness").
func ecmpPick(set []Route, sessionID string) Route {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(sessionID); i++ {
		h ^= uint64(sessionID[i])
		h *= 1099511628211
	}
	return set[h%uint64(len(set))]
}
