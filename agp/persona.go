// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package agp

import "sync"

// PersonaStatsUpdate is a federation record advertising aggregate
// capacity/quality for a named agent persona (e.g. "reviewer.*") so
// peers can weigh it in path selection beyond raw reachability, a
// feature layered on top of the core UPDATE announce/withdraw
// exchange, grounded in the same RIB attribute set (§4.7).
type PersonaStatsUpdate struct {
	Persona      string
	PeerID       PeerID
	SequenceNum  uint64
	SampleCount  int64
	AvgQuality   float64
	AvgCostUSD1K float64
}

// PersonaStats tracks the latest-known stats per (persona, peer),
// resolving conflicting updates by sequence number first and, on a tie,
// by the larger sample count (a later update with more evidence wins
// over a same-sequence update with less).
type PersonaStats struct {
	mu   sync.RWMutex
	byKey map[string]PersonaStatsUpdate
}

// NewPersonaStats returns an empty tracker.
func NewPersonaStats() *PersonaStats {
	return &PersonaStats{byKey: make(map[string]PersonaStatsUpdate)}
}

func personaKey(persona string, peerID PeerID) string {
	return persona + "\x00" + peerID.String()
}

// Apply folds update into the tracker, resolving conflicts against any
// existing record for (persona, peer_id).
func (p *PersonaStats) Apply(update PersonaStatsUpdate) (applied bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := personaKey(update.Persona, update.PeerID)
	existing, ok := p.byKey[key]
	if ok {
		if update.SequenceNum < existing.SequenceNum {
			return false
		}
		if update.SequenceNum == existing.SequenceNum && update.SampleCount <= existing.SampleCount {
			return false
		}
	}
	p.byKey[key] = update
	return true
}

// Get returns the latest known stats for (persona, peerID).
func (p *PersonaStats) Get(persona string, peerID PeerID) (PersonaStatsUpdate, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.byKey[personaKey(persona, peerID)]
	return u, ok
}
