// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package agp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPersonaStatsNewerSequenceWins(t *testing.T) {
	p := NewPersonaStats()
	peerA := PeerIDFromString("a")
	require.True(t, p.Apply(PersonaStatsUpdate{Persona: "reviewer.*", PeerID: peerA, SequenceNum: 1, SampleCount: 10}))
	require.False(t, p.Apply(PersonaStatsUpdate{Persona: "reviewer.*", PeerID: peerA, SequenceNum: 1, SampleCount: 5}))
	require.True(t, p.Apply(PersonaStatsUpdate{Persona: "reviewer.*", PeerID: peerA, SequenceNum: 2, SampleCount: 1}))

	latest, ok := p.Get("reviewer.*", peerA)
	require.True(t, ok)
	require.Equal(t, uint64(2), latest.SequenceNum)
}

func TestPersonaStatsSameSequenceMoreSamplesWins(t *testing.T) {
	p := NewPersonaStats()
	peerA := PeerIDFromString("a")
	p.Apply(PersonaStatsUpdate{Persona: "x", PeerID: peerA, SequenceNum: 5, SampleCount: 3})
	applied := p.Apply(PersonaStatsUpdate{Persona: "x", PeerID: peerA, SequenceNum: 5, SampleCount: 9})
	require.True(t, applied)

	latest, _ := p.Get("x", peerA)
	require.Equal(t, int64(9), latest.SampleCount)
}
