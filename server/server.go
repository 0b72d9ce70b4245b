// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package server is the §9 root-context composition: "a single root
// context value that owns these stores and passes them explicitly into
// constructed components, rather than module-level globals." It owns
// every long-lived store (session arena, model registry, routing stats,
// circuit breakers, AGP peers/RIB) and runs their background loops.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	luxlog "github.com/luxfi/log"

	"github.com/atp-router/routerd/adapterrpc"
	"github.com/atp-router/routerd/admission"
	"github.com/atp-router/routerd/agp"
	"github.com/atp-router/routerd/config"
	"github.com/atp-router/routerd/consensus"
	"github.com/atp-router/routerd/dispatcher"
	"github.com/atp-router/routerd/observation"
	"github.com/atp-router/routerd/policy"
	"github.com/atp-router/routerd/router"
	"github.com/atp-router/routerd/session"
	"github.com/atp-router/routerd/telemetry"
)

// Server owns the full set of process-wide stores for a single routerd
// instance. Everything on it is constructed once in New and threaded
// explicitly into request-handling code; nothing here is a package-level
// global.
type Server struct {
	Config config.Config
	Log    luxlog.Logger

	Telemetry *telemetry.Registry
	Sessions  *session.Arena

	Registry *router.Registry
	Stats    *router.RoutingStats
	Shadow   *router.ShadowStats
	Lifecycle *router.FSM

	Breakers   *dispatcher.Breakers
	Pool       *dispatcher.Pool
	Dispatcher *dispatcher.Dispatcher

	AIMD       *admission.AIMD
	Scheduler  *admission.QoSScheduler
	Watermark  *admission.Watermark

	Policy policy.Engine

	EventLog   *observation.EventLog
	StatsStore *observation.StatsStore
	Custody    *observation.CustodyLog

	AGPPeers map[agp.PeerID]*agp.Peer
	RIB      *agp.RIB
	Dampener *agp.Dampener
	HoldDown *agp.HoldDownTracker

	mu      sync.Mutex
	closers []func() error
}

// New constructs a Server from cfg, opening the persisted stores
// (model registry file, bbolt stats db, custody log) and wiring every
// in-memory component. It does not start background loops; call Run for
// that.
func New(cfg config.Config, log luxlog.Logger, promReg prometheus.Registerer, registryPath string, pol policy.Engine, localRouterID, localADN, localClusterID string) (*Server, error) {
	if err := cfg.Valid(); err != nil {
		return nil, fmt.Errorf("server: invalid config: %w", err)
	}

	tel := telemetry.NewRegistry(promReg)

	reg, err := router.LoadRegistry(registryPath)
	if err != nil {
		return nil, fmt.Errorf("server: load model registry: %w", err)
	}
	stats := router.NewRoutingStats()
	lifecycle := router.NewFSM(reg, stats, router.LifecycleConfig{
		PromoteMinCalls:    int64(cfg.Lifecycle.PromoteMinCalls),
		PromoteCostImprove: cfg.Lifecycle.PromoteCostImprove,
		DemoteMinCalls:     int64(cfg.Lifecycle.DemoteMinCalls),
		DemoteCostRegress:  cfg.Lifecycle.DemoteCostRegress,
		HysteresisSec:      cfg.Lifecycle.PromoDemoHysteresisSec,
	}, tel)

	breakers := dispatcher.NewBreakers(cfg.Circuit.FailThreshold, cfg.Circuit.ResetTimeoutS, cfg.Circuit.HalfOpenSuccesses)
	pool := dispatcher.NewPool()
	disp := dispatcher.NewDispatcher(pool, breakers, tel)

	var adapterConns []func() error
	for adapterID, addr := range cfg.Adapters {
		client, err := adapterrpc.DialAdapter(context.Background(), addr)
		if err != nil {
			return nil, fmt.Errorf("server: dial adapter %s at %s: %w", adapterID, addr, err)
		}
		pool.Register(adapterID, client)
		adapterConns = append(adapterConns, client.Close)
	}

	evLog, err := observation.NewEventLog(cfg.Observation.Dir)
	if err != nil {
		return nil, fmt.Errorf("server: open event log: %w", err)
	}
	statsStore, err := observation.OpenStatsStore(cfg.Observation.StatsDBPath)
	if err != nil {
		return nil, fmt.Errorf("server: open stats store: %w", err)
	}
	custody, err := observation.OpenCustodyLog(cfg.Observation.CustodyLogPath, cfg.Observation.CustodyHMACKey)
	if err != nil {
		return nil, fmt.Errorf("server: open custody log: %w", err)
	}

	if saved, loadErr := statsStore.LoadAll(); loadErr == nil {
		for k, row := range saved {
			stats.Seed(k.ClusterID, k.ModelID, row.Calls, row.Successes, row.CostSumUSD, row.LatencySumS)
		}
	}

	s := &Server{
		Config:     cfg,
		Log:        log,
		Telemetry:  tel,
		Sessions:   session.NewArena(16),
		Registry:   reg,
		Stats:      stats,
		Shadow:     router.NewShadowStats(),
		Lifecycle:  lifecycle,
		Breakers:   breakers,
		Pool:       pool,
		Dispatcher: disp,
		AIMD:       admission.NewAIMD(float64(cfg.AIMD.MinCwnd), float64(cfg.AIMD.AdditiveInc), cfg.AIMD.MulDecFactor),
		Scheduler:  admission.NewQoSScheduler(cfg.QoSScheduler.PreemptEnabled),
		Watermark:  admission.NewWatermark(float64(cfg.Watermark.HighMS.Milliseconds()), float64(cfg.Watermark.LowMS.Milliseconds()), cfg.Watermark.RequireN),
		Policy:     pol,
		EventLog:   evLog,
		StatsStore: statsStore,
		Custody:    custody,
		AGPPeers:   make(map[agp.PeerID]*agp.Peer),
		RIB:        agp.NewRIB(agp.RouterIDFromString(localRouterID), agp.ADNFromString(localADN), localClusterID, tel),
		Dampener: agp.NewDampener(agp.DampeningConfig{
			PenaltyPerFlap:    1000,
			SuppressThreshold: 2000,
			HalfLife:          cfg.AGP.DampeningHalfLifeMin,
		}),
		HoldDown: agp.NewHoldDownTracker(cfg.AGP.PersistS, cfg.AGP.GraceS),
	}
	s.closers = append(s.closers, evLog.Close, statsStore.Close)
	s.closers = append(s.closers, adapterConns...)
	return s, nil
}

// AddPeer registers an AGP peer under peerID, starting it in IDLE.
func (s *Server) AddPeer(peerID agp.PeerID, local agp.OpenMessage) *agp.Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := agp.NewPeer(peerID, local, s.Config.AGP.KeepaliveInterval, s.Config.AGP.MaxKeepaliveMisses)
	s.AGPPeers[peerID] = p
	return p
}

// ConsensusResolve exposes consensus.Resolve bound to no server state, for
// callers that already have Server in scope and want the import kept in
// one place. Kept thin on purpose: consensus has no persistent state.
func (s *Server) ConsensusResolve(strategy consensus.Strategy, candidates []consensus.Candidate, quorumK int, twoPhaseThreshold float64) (consensus.Result, error) {
	return consensus.Resolve(strategy, candidates, quorumK, twoPhaseThreshold)
}

// Run starts every background loop (lifecycle evaluation, stats flush,
// AGP peer ticking) and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lifecycleTicker := time.NewTicker(s.Config.Lifecycle.PromoDemoHysteresisSec)
	statsFlushTicker := time.NewTicker(10 * time.Second)
	agpTicker := time.NewTicker(s.Config.AGP.KeepaliveInterval)
	defer lifecycleTicker.Stop()
	defer statsFlushTicker.Stop()
	defer agpTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.Close()
		case now := <-lifecycleTicker.C:
			for _, clusterID := range s.clusterIDs() {
				events := s.Lifecycle.Evaluate(clusterID, now)
				for _, e := range events {
					if _, err := s.Custody.Append(e.Reason, e.ModelID, e.AtUnix); err != nil {
						s.Log.Error("custody log append failed", "error", err)
					}
				}
			}
		case <-statsFlushTicker.C:
			if err := s.flushStats(); err != nil {
				s.Log.Error("routing stats flush failed", "error", err)
			}
		case now := <-agpTicker.C:
			s.tickPeers(now)
		}
	}
}

func (s *Server) clusterIDs() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range s.Registry.All() {
		if _, ok := seen[m.ClusterID]; !ok {
			seen[m.ClusterID] = struct{}{}
			out = append(out, m.ClusterID)
		}
	}
	return out
}

func (s *Server) flushStats() error {
	rows := make(map[observation.StatKey]observation.StatRow)
	for _, m := range s.Registry.All() {
		st := s.Stats.Get(m.ClusterID, m.ID)
		if st.Calls == 0 {
			continue
		}
		rows[observation.StatKey{ClusterID: m.ClusterID, ModelID: m.ID}] = observation.StatRow{
			Calls:       st.Calls,
			Successes:   st.Successes,
			CostSumUSD:  st.CostSumUSD,
			LatencySumS: st.LatencySumS,
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return s.StatsStore.PutAll(rows)
}

func (s *Server) tickPeers(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.AGPPeers {
		if p.Tick(now) {
			s.Log.Warn("agp peer dropped to idle on missed keepalives", "peer_id", id.String())
		}
	}
}

// Close releases the event log, the stats store and the adapter
// connections. Run calls Close itself when its context is cancelled.
func (s *Server) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
