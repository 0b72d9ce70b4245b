// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package agp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPeerFSMHappyPath(t *testing.T) {
	p := NewPeer(PeerIDFromString("peer-1"), OpenMessage{RouterID: RouterIDFromString("local"), MajorVersion: 2}, 10*time.Second, 3)
	require.Equal(t, PeerIdle, p.State())

	p.Start()
	require.Equal(t, PeerConnect, p.State())

	p.SendOpen()
	require.Equal(t, PeerOpenSent, p.State())

	major, ok := p.ReceiveOpen(OpenMessage{RouterID: RouterIDFromString("remote"), MajorVersion: 1})
	require.True(t, ok)
	require.Equal(t, 1, major)
	require.Equal(t, PeerOpenConfirmed, p.State())

	now := time.Now()
	require.True(t, p.ConfirmEstablished(now))
	require.Equal(t, PeerEstablished, p.State())
}

func TestPeerDropsToIdleAfterMissedKeepalives(t *testing.T) {
	p := NewPeer(PeerIDFromString("peer-1"), OpenMessage{MajorVersion: 1}, 10*time.Millisecond, 2)
	p.Start()
	p.SendOpen()
	p.ReceiveOpen(OpenMessage{MajorVersion: 1})
	now := time.Now()
	p.ConfirmEstablished(now)

	t1 := now.Add(15 * time.Millisecond)
	require.False(t, p.Tick(t1))
	t2 := t1.Add(15 * time.Millisecond)
	require.True(t, p.Tick(t2))
	require.Equal(t, PeerIdle, p.State())
}

func TestPeerHoldExpired(t *testing.T) {
	p := NewPeer(PeerIDFromString("peer-1"), OpenMessage{MajorVersion: 1}, 10*time.Second, 3)
	p.Start()
	p.SendOpen()
	p.ReceiveOpen(OpenMessage{MajorVersion: 1})
	now := time.Now()
	p.ConfirmEstablished(now)

	require.False(t, p.HoldExpired(now.Add(20*time.Second)))
	require.True(t, p.HoldExpired(now.Add(31*time.Second)))
}
