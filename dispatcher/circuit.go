// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dispatcher implements §4.4: the adapter RPC client pool and its
// per-adapter circuit breakers. The breaker state machine generalizes
// consecutive-failure tracking with a timed release into the
// CLOSED/OPEN/HALF_OPEN states named explicitly in §4.4.
package dispatcher

import (
	"sync"
	"time"
)

// CircuitState is one of CLOSED, OPEN, HALF_OPEN (§4.4).
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// circuit is the per-adapter breaker.
type circuit struct {
	mu sync.Mutex

	state             CircuitState
	consecutiveFails  int
	halfOpenSuccesses int
	openedAt          time.Time

	failThreshold     int
	resetTimeout      time.Duration
	neededHalfOpenOK  int
}

func newCircuit(failThreshold int, resetTimeout time.Duration, neededHalfOpenOK int) *circuit {
	return &circuit{
		state:            CircuitClosed,
		failThreshold:    failThreshold,
		resetTimeout:     resetTimeout,
		neededHalfOpenOK: neededHalfOpenOK,
	}
}

// Allow reports whether a call may proceed, transitioning OPEN -> HALF_OPEN
// once reset_timeout_s has elapsed (§4.4).
func (c *circuit) Allow(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case CircuitOpen:
		if now.Sub(c.openedAt) >= c.resetTimeout {
			c.state = CircuitHalfOpen
			c.halfOpenSuccesses = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess transitions HALF_OPEN -> CLOSED after half_open_successes
// consecutive successes (§4.4); CLOSED stays CLOSED and resets the fail
// streak.
func (c *circuit) RecordSuccess(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFails = 0
	switch c.state {
	case CircuitHalfOpen:
		c.halfOpenSuccesses++
		if c.halfOpenSuccesses >= c.neededHalfOpenOK {
			c.state = CircuitClosed
		}
	case CircuitClosed:
		// no-op
	}
}

// RecordFailure transitions CLOSED -> OPEN after fail_threshold
// consecutive failures, and any HALF_OPEN failure reopens immediately
// (§4.4).
func (c *circuit) RecordFailure(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case CircuitHalfOpen:
		c.state = CircuitOpen
		c.openedAt = now
	case CircuitClosed:
		c.consecutiveFails++
		if c.consecutiveFails >= c.failThreshold {
			c.state = CircuitOpen
			c.openedAt = now
		}
	}
}

func (c *circuit) State() CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Breakers manages one circuit per adapter id, with a single small lock
// per adapter (§5: "Circuit breaker state per adapter: single small lock
// per adapter").
type Breakers struct {
	mu       sync.RWMutex
	byAdapter map[string]*circuit

	failThreshold    int
	resetTimeout     time.Duration
	neededHalfOpenOK int
}

// NewBreakers returns a Breakers factory using the given §6 circuit.*
// config values for any adapter first seen.
func NewBreakers(failThreshold int, resetTimeout time.Duration, halfOpenSuccesses int) *Breakers {
	return &Breakers{
		byAdapter:        make(map[string]*circuit),
		failThreshold:    failThreshold,
		resetTimeout:     resetTimeout,
		neededHalfOpenOK: halfOpenSuccesses,
	}
}

func (b *Breakers) get(adapterID string) *circuit {
	b.mu.RLock()
	c, ok := b.byAdapter[adapterID]
	b.mu.RUnlock()
	if ok {
		return c
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.byAdapter[adapterID]; ok {
		return c
	}
	c = newCircuit(b.failThreshold, b.resetTimeout, b.neededHalfOpenOK)
	b.byAdapter[adapterID] = c
	return c
}

// Allow reports whether adapterID may be called right now.
func (b *Breakers) Allow(adapterID string) bool {
	return b.get(adapterID).Allow(time.Now())
}

// RecordSuccess/RecordFailure update adapterID's breaker.
func (b *Breakers) RecordSuccess(adapterID string) { b.get(adapterID).RecordSuccess(time.Now()) }
func (b *Breakers) RecordFailure(adapterID string) { b.get(adapterID).RecordFailure(time.Now()) }

// OpenCount returns the circuits_open gauge value (§4.4).
func (b *Breakers) OpenCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, c := range b.byAdapter {
		if c.State() == CircuitOpen {
			n++
		}
	}
	return n
}
