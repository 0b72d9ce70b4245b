// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atp-router/routerd/telemetry"
)

// Race tracks one escalation's speculative candidates: at most one can
// be accepted, the rest must be told to cancel (§4.5: "whichever meets
// acceptance first emits speculative_accepted and the other(s) are
// cancelled").
type Race struct {
	mu        sync.Mutex
	decided   bool
	winner    string
	attempted *prometheus.CounterVec
	accepted  *prometheus.CounterVec
}

// NewRace registers speculative_attempted/speculative_accepted counters
// against reg, shared across every race in the process.
func NewRace(reg *telemetry.Registry) func() *Race {
	attempted := reg.Counter("speculative_attempted_total", "speculative candidates started")
	accepted := reg.Counter("speculative_accepted_total", "speculative candidates whose answer was accepted")
	return func() *Race {
		return &Race{attempted: attempted, accepted: accepted}
	}
}

// Attempt records that candidateID started streaming speculatively.
func (r *Race) Attempt(candidateID string) {
	r.attempted.WithLabelValues().Inc()
}

// TryAccept declares candidateID the winner if no candidate has won yet,
// returning true if candidateID is now the (sole) winner and false if
// another candidate already won — callers must cancel candidateID's
// stream on a false return.
//
// A cancelled candidate's spend is reconciled, not refunded wholesale:
// the caller passes the tokens/USD actually consumed up to cancellation
// into session.Budget.Reconcile as actualTokens/actualUSD against the
// original estimate, so only the unconsumed remainder of the estimate is
// released back to the budget. Tokens already generated by the adapter
// before cancellation were already billed by the provider and stay
// charged against the session.
func (r *Race) TryAccept(candidateID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decided {
		return r.winner == candidateID
	}
	r.decided = true
	r.winner = candidateID
	r.accepted.WithLabelValues().Inc()
	return true
}

// Winner returns the accepted candidate id and whether one has been
// decided yet.
func (r *Race) Winner() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.winner, r.decided
}
