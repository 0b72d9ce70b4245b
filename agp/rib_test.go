// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package agp

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/atp-router/routerd/telemetry"
)

func newTestRIB() *RIB {
	return NewRIB(RouterIDFromString("local-router"), ADNFromString("local-adn"), "local-cluster", telemetry.NewRegistry(prometheus.NewRegistry()))
}

func TestRIBRejectsLoopByPath(t *testing.T) {
	rib := newTestRIB()
	ok := rib.Announce(Route{Prefix: "reviewer.*", Peer: PeerIDFromString("p1"), Path: []ADN{ADNFromString("other-adn"), ADNFromString("local-adn")}})
	require.False(t, ok)
	require.Empty(t, rib.RoutesFor("reviewer.*"))
}

func TestRIBRejectsLoopByOriginator(t *testing.T) {
	rib := newTestRIB()
	ok := rib.Announce(Route{Prefix: "reviewer.*", Peer: PeerIDFromString("p1"), OriginatorID: RouterIDFromString("local-router")})
	require.False(t, ok)
}

func TestRIBAnnounceAndWithdraw(t *testing.T) {
	rib := newTestRIB()
	ok := rib.Announce(Route{Prefix: "reviewer.*", Peer: PeerIDFromString("p1")})
	require.True(t, ok)
	require.Len(t, rib.RoutesFor("reviewer.*"), 1)

	rib.Withdraw("reviewer.*", PeerIDFromString("p1"))
	require.Empty(t, rib.RoutesFor("reviewer.*"))
}

func TestSelectPrefersHigherLocalPref(t *testing.T) {
	now := time.Now()
	routes := []Route{
		{Prefix: "reviewer.*", Peer: PeerIDFromString("a"), LocalPref: 100, QoSFit: 1},
		{Prefix: "reviewer.*", Peer: PeerIDFromString("b"), LocalPref: 200, QoSFit: 1},
	}
	winner, _, ok := Select(routes, SelectParams{Now: now, HoldTime: time.Minute, MetricsHalfLife: time.Minute})
	require.True(t, ok)
	require.Equal(t, PeerIDFromString("b"), winner.Peer)
}

func TestSelectECMPStickyOnSessionID(t *testing.T) {
	now := time.Now()
	routes := []Route{
		{Prefix: "reviewer.*", Peer: PeerIDFromString("a"), LocalPref: 100, QoSFit: 1},
		{Prefix: "reviewer.*", Peer: PeerIDFromString("b"), LocalPref: 100, QoSFit: 1},
	}
	w1, set, ok := Select(routes, SelectParams{Now: now, HoldTime: time.Minute, MetricsHalfLife: time.Minute, SessionID: "sess-42"})
	require.True(t, ok)
	require.Len(t, set, 2)

	w2, _, _ := Select(routes, SelectParams{Now: now, HoldTime: time.Minute, MetricsHalfLife: time.Minute, SessionID: "sess-42"})
	require.Equal(t, w1.Peer, w2.Peer)
}

func TestSelectFiltersBelowRequiredQoS(t *testing.T) {
	now := time.Now()
	routes := []Route{
		{Prefix: "reviewer.*", Peer: PeerIDFromString("a"), QoSFit: 0.2},
	}
	_, _, ok := Select(routes, SelectParams{Now: now, RequiredQoS: 0.5, HoldTime: time.Minute, MetricsHalfLife: time.Minute})
	require.False(t, ok)
}

func TestSelectPolicyFilterExcludesWrongRegion(t *testing.T) {
	now := time.Now()
	routes := []Route{
		{Prefix: "reviewer.*", Peer: PeerIDFromString("a"), Region: "eu", QoSFit: 1},
	}
	params := SelectParams{
		Now: now, HoldTime: time.Minute, MetricsHalfLife: time.Minute,
		Policy: PolicyFilter{AllowedRegions: []string{"us"}},
	}
	_, _, ok := Select(routes, params)
	require.False(t, ok)
}
