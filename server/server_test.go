// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/atp-router/routerd/agp"
	"github.com/atp-router/routerd/config"
	"github.com/atp-router/routerd/log"
	"github.com/atp-router/routerd/policy"
	"github.com/atp-router/routerd/router"
)

func seedRegistry(t *testing.T, path string) {
	t.Helper()
	reg := router.NewRegistry(nil, path)
	err := reg.Mutate(func(models map[string]router.Model) map[string]router.Model {
		models["m1"] = router.Model{ID: "m1", AdapterID: "a1", ClusterID: "reviewer", Status: router.StatusActive, SafetyGrade: router.SafetyGradeA, CostUSDPer1K: 0.01}
		return models
	})
	require.NoError(t, err)
}

func newTestServer(t *testing.T) *Server {
	dir := t.TempDir()
	registryPath := filepath.Join(dir, "registry.json")
	seedRegistry(t, registryPath)

	cfg := config.DefaultConfig()
	cfg.Observation.Dir = filepath.Join(dir, "obs")
	cfg.Observation.StatsDBPath = filepath.Join(dir, "stats.db")
	cfg.Observation.CustodyLogPath = filepath.Join(dir, "custody.jsonl")
	cfg.Observation.CustodyHMACKey = []byte("test-key")
	cfg.AGP.KeepaliveInterval = 5 * time.Millisecond
	cfg.AGP.HoldTime = 15 * time.Millisecond
	cfg.Lifecycle.PromoDemoHysteresisSec = 5 * time.Millisecond

	pol := policy.All(policy.ClusterHintEngine{Default: "reviewer"})
	srv, err := New(cfg, log.NewNoOpLogger(), prometheus.NewRegistry(), registryPath, pol, "local-router", "local-adn", "reviewer")
	require.NoError(t, err)
	return srv
}

func TestNewServerWiresEveryStore(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	require.NotNil(t, srv.Registry)
	require.Len(t, srv.Registry.All(), 1)
	require.NotNil(t, srv.Stats)
	require.NotNil(t, srv.Dispatcher)
	require.NotNil(t, srv.RIB)
}

func TestServerRunFlushesStatsAndStopsOnCancel(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	srv.Stats.RecordCall("reviewer", "m1", true, 0.01, 0.2)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := srv.Run(ctx)
	require.NoError(t, err)
}

func TestAddPeerRegistersUnderPeerID(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	peerID := agp.PeerIDFromString("peer-1")
	p := srv.AddPeer(peerID, agp.OpenMessage{RouterID: agp.RouterIDFromString("local-router"), MajorVersion: 1})
	require.NotNil(t, p)
	require.Contains(t, srv.AGPPeers, peerID)
}
