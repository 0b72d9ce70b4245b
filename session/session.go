// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package session owns the Session entity (§3) and the sessions arena.
// Per §9's "arena-and-index" design note, a Sessions arena owns Session
// records; streams (package stream) hold session IDs, not back-pointers,
// and the admission/QoS scheduler holds stream IDs only — avoiding the
// cyclic ownership the source exhibits between session, stream, and
// scheduler.
package session

import (
	"sync"
	"time"

	"github.com/atp-router/routerd/frame"
)

// ConsistencyClass gates reads to primary for an RYW window (§3).
type ConsistencyClass string

const (
	Eventual       ConsistencyClass = "EVENTUAL"
	ReadYourWrites ConsistencyClass = "READ_YOUR_WRITES"
)

// Budget is the per-session triplet usage tracker (§3 "Budget").
type Budget struct {
	TokensLimit    int64
	TokensUsed     int64
	USDMicrosLimit int64
	USDMicrosUsed  int64
	ParallelLimit  int
	ParallelUsed   int

	// burn is the bounded deque of (timestamp, usd_micros_delta) used to
	// compute USD/min over BurnWindow.
	burn       []burnSample
	BurnWindow time.Duration
}

type burnSample struct {
	at    time.Time
	delta int64
}

// PreflightOK reports whether admitting a request estimated at
// (tokens, usdMicros, parallel) keeps every dimension within its limit
// simultaneously (§3 invariant, §4.3, §8 "Admission at exactly the limit
// admits; one unit beyond is backpressure").
func (b *Budget) PreflightOK(tokens, usdMicros int64, parallel int) bool {
	return b.TokensUsed+tokens <= b.TokensLimit &&
		b.USDMicrosUsed+usdMicros <= b.USDMicrosLimit &&
		b.ParallelUsed+parallel <= b.ParallelLimit
}

// Reserve increments usage by the request estimate on send (§4.3).
func (b *Budget) Reserve(tokens, usdMicros int64, parallel int) {
	b.TokensUsed += tokens
	b.USDMicrosUsed += usdMicros
	b.ParallelUsed += parallel
	b.recordBurn(usdMicros)
}

// ReleaseParallel decrements parallel_used on ACK (§4.3).
func (b *Budget) ReleaseParallel(n int) {
	b.ParallelUsed -= n
	if b.ParallelUsed < 0 {
		b.ParallelUsed = 0
	}
}

// Reconcile adjusts tokens/USD counters once the actual cost of a final
// response is known, replacing the earlier estimate (§4.3).
func (b *Budget) Reconcile(estimateTokens, actualTokens, estimateUSD, actualUSD int64) {
	b.TokensUsed += actualTokens - estimateTokens
	b.USDMicrosUsed += actualUSD - estimateUSD
	if b.TokensUsed < 0 {
		b.TokensUsed = 0
	}
	if b.USDMicrosUsed < 0 {
		b.USDMicrosUsed = 0
	}
	b.recordBurn(actualUSD - estimateUSD)
}

func (b *Budget) recordBurn(delta int64) {
	now := time.Now()
	b.burn = append(b.burn, burnSample{at: now, delta: delta})
	cutoff := now.Add(-b.BurnWindow)
	i := 0
	for i < len(b.burn) && b.burn[i].at.Before(cutoff) {
		i++
	}
	b.burn = b.burn[i:]
}

// BurnRateUSDPerMin returns the rolling USD/min burn rate over BurnWindow.
func (b *Budget) BurnRateUSDPerMin() float64 {
	if b.BurnWindow <= 0 || len(b.burn) == 0 {
		return 0
	}
	var sum int64
	for _, s := range b.burn {
		sum += s.delta
	}
	minutes := b.BurnWindow.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(sum) / 1_000_000.0 / minutes
}

// Session is the router's view of a client session (§3).
type Session struct {
	ID                string
	RouterWindow      frame.Window
	AgentWindow       frame.Window
	Budget            Budget
	LastActivity      time.Time
	AIMDState         map[string]*AIMDPeerState // keyed by peer/adapter id
	StreamIDs         []string
	Consistency       ConsistencyClass
	LastWriteAt       time.Time
	RYWWindow         time.Duration
}

// AIMDPeerState is the per-peer congestion window tracked for a session
// (§4.3); kept here rather than in admission to avoid a second owner of
// session-scoped state.
type AIMDPeerState struct {
	Cwnd float64
}

// EffectiveWindow is min(router-advertised, agent-suggested) per dimension
// (§3: "effective = min(router, agent suggested)").
func (s *Session) EffectiveWindow() frame.Window {
	return frame.Window{
		MaxParallel:  minInt(s.RouterWindow.MaxParallel, s.AgentWindow.MaxParallel),
		MaxTokens:    minInt64(s.RouterWindow.MaxTokens, s.AgentWindow.MaxTokens),
		MaxUSDMicros: minInt64(s.RouterWindow.MaxUSDMicros, s.AgentWindow.MaxUSDMicros),
	}
}

// ReadsGoToPrimary reports whether the session is still inside its RYW
// gating window since the last write (§3).
func (s *Session) ReadsGoToPrimary(now time.Time) bool {
	if s.Consistency != ReadYourWrites {
		return false
	}
	return now.Sub(s.LastWriteAt) < s.RYWWindow
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Arena owns all live sessions, sharded by session_id hash so no two shard
// locks are ever held at once (§5 "Session/stream maps: sharded by
// session_id hash; each shard has its own lock").
type Arena struct {
	shards []*shard
	mask   uint32
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewArena creates an Arena with numShards (rounded up to a power of two)
// independent shards.
func NewArena(numShards int) *Arena {
	n := 1
	for n < numShards {
		n <<= 1
	}
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return &Arena{shards: shards, mask: uint32(n - 1)}
}

func (a *Arena) shardFor(sessionID string) *shard {
	return a.shards[fnv32(sessionID)&a.mask]
}

func fnv32(s string) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// GetOrCreate returns the session for id, creating it (and seeding budget
// defaults) if absent. "created on first admitted frame" (§3 lifecycle).
func (a *Arena) GetOrCreate(id string, seed func() *Session) (*Session, bool) {
	sh := a.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.sessions[id]; ok {
		return s, false
	}
	s := seed()
	s.ID = id
	sh.sessions[id] = s
	return s, true
}

// Get returns the session for id, if live.
func (a *Arena) Get(id string) (*Session, bool) {
	sh := a.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Destroy removes a session: "destroyed by FIN + drain, by idle timeout,
// or by RST" (§3).
func (a *Arena) Destroy(id string) {
	sh := a.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.sessions, id)
}

// Len returns the total live session count across all shards.
func (a *Arena) Len() int {
	total := 0
	for _, sh := range a.shards {
		sh.mu.RLock()
		total += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return total
}
