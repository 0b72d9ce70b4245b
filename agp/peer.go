// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package agp implements the Agent Gateway Protocol control and data
// plane (§4.7): the peer session FSM, RIB/FIB with deterministic path
// selection and ECMP, flap dampening, hold-down/grace timers, and the
// Router Label Header forwarding path.
package agp

import (
	"sync"
	"time"
)

// PeerState is one position in the peer session FSM (§4.7).
type PeerState string

const (
	PeerIdle           PeerState = "IDLE"
	PeerConnect        PeerState = "CONNECT"
	PeerOpenSent       PeerState = "OPEN_SENT"
	PeerOpenConfirmed  PeerState = "OPEN_CONFIRMED"
	PeerEstablished    PeerState = "ESTABLISHED"
)

// OpenMessage is the OPEN exchange payload (§4.7).
type OpenMessage struct {
	RouterID     RouterID
	ADN          ADN
	Capabilities []string
	ClusterID    string // optional rr.cluster_id
	MajorVersion int
}

// ErrorCode names one of the AGP ERROR codes (§4.7, shared with errcode
// where the same code is also a wire error on the ATP plane).
type ErrorCode string

const (
	ErrorPolicy     ErrorCode = "EPOLICY"
	ErrorConfig     ErrorCode = "ECFG"
	ErrorAttestation ErrorCode = "EATTEST"
	ErrorSeqRetry   ErrorCode = "ESEQ_RETRY"
)

// Peer is one AGP peer session.
type Peer struct {
	mu sync.Mutex

	PeerID PeerID
	state  PeerState

	localOpen  OpenMessage
	remoteOpen OpenMessage
	negotiatedMajor int

	keepaliveInterval time.Duration
	holdTime          time.Duration
	maxMisses         int
	missedKeepalives  int
	lastKeepaliveAt   time.Time
}

// NewPeer constructs an idle peer session. holdTime is always set to 3x
// keepaliveInterval (§4.7 default relationship); there is no setter.
func NewPeer(peerID PeerID, local OpenMessage, keepaliveInterval time.Duration, maxMisses int) *Peer {
	return &Peer{
		PeerID:            peerID,
		state:             PeerIdle,
		localOpen:         local,
		keepaliveInterval: keepaliveInterval,
		holdTime:          3 * keepaliveInterval,
		maxMisses:         maxMisses,
	}
}

// State returns the current FSM state.
func (p *Peer) State() PeerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start transitions IDLE -> CONNECT (§4.7: "START initiates").
func (p *Peer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PeerIdle {
		p.state = PeerConnect
	}
}

// SendOpen transitions CONNECT -> OPEN_SENT.
func (p *Peer) SendOpen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PeerConnect {
		p.state = PeerOpenSent
	}
}

// minInt returns the lesser of a and b.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ReceiveOpen processes the peer's OPEN, negotiating the minimum
// compatible major version (§4.7), and transitions OPEN_SENT ->
// OPEN_CONFIRMED.
func (p *Peer) ReceiveOpen(remote OpenMessage) (negotiatedMajor int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PeerOpenSent {
		return 0, false
	}
	p.remoteOpen = remote
	p.negotiatedMajor = minInt(p.localOpen.MajorVersion, remote.MajorVersion)
	p.state = PeerOpenConfirmed
	return p.negotiatedMajor, true
}

// ConfirmEstablished transitions OPEN_CONFIRMED -> ESTABLISHED, the point
// at which UPDATE exchange may begin.
func (p *Peer) ConfirmEstablished(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PeerOpenConfirmed {
		return false
	}
	p.state = PeerEstablished
	p.lastKeepaliveAt = now
	p.missedKeepalives = 0
	return true
}

// ReceiveKeepalive resets the missed-keepalive counter.
func (p *Peer) ReceiveKeepalive(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastKeepaliveAt = now
	p.missedKeepalives = 0
}

// Tick evaluates the hold timer: a missed keepalive interval increments
// the miss counter; reaching max_keepalive_misses drops the peer back
// to IDLE (§4.7: "Missing max_keepalive_misses -> back to IDLE").
func (p *Peer) Tick(now time.Time) (droppedToIdle bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PeerEstablished {
		return false
	}
	if now.Sub(p.lastKeepaliveAt) < p.keepaliveInterval {
		return false
	}
	p.missedKeepalives++
	p.lastKeepaliveAt = now
	if p.missedKeepalives >= p.maxMisses {
		p.state = PeerIdle
		p.missedKeepalives = 0
		return true
	}
	return false
}

// HoldExpired reports whether no keepalive has been seen within
// hold_time, independent of the miss-counter path (§4.7: "hold_time = 3x
// keepalive").
func (p *Peer) HoldExpired(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PeerEstablished {
		return false
	}
	return now.Sub(p.lastKeepaliveAt) >= p.holdTime
}
