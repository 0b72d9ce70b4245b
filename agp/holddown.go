// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package agp

import (
	"sync"
	"time"
)

// timerEntry is empty, hold-down, or grace for one prefix (§4.7:
// "Timers are mutually exclusive: recovery clears hold-down; degradation
// clears grace").
type timerEntry struct {
	holdDownUntil  time.Time
	graceUntil     time.Time
}

// HoldDownTracker enforces the mutually-exclusive hold-down/grace timers
// that gate withdraw and re-announce decisions (§4.7).
type HoldDownTracker struct {
	mu      sync.Mutex
	entries map[string]timerEntry
	persist time.Duration
	grace   time.Duration
}

// NewHoldDownTracker returns a tracker using persistS as the hold-down
// duration and graceS as the grace duration.
func NewHoldDownTracker(persistS, graceS time.Duration) *HoldDownTracker {
	return &HoldDownTracker{entries: make(map[string]timerEntry), persist: persistS, grace: graceS}
}

// Degrade starts hold-down for prefix and clears any active grace
// (§4.7: "On health degradation, start a per-prefix hold_down_until =
// now + persist_s ... degradation clears grace").
func (h *HoldDownTracker) Degrade(prefix string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[prefix] = timerEntry{holdDownUntil: now.Add(h.persist)}
}

// Recover starts grace for prefix and clears any active hold-down
// (§4.7: "On recovery, start grace_period_until = now + grace_s ...
// recovery clears hold-down").
func (h *HoldDownTracker) Recover(prefix string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[prefix] = timerEntry{graceUntil: now.Add(h.grace)}
}

// MayWithdraw reports whether prefix's hold-down has expired (or never
// started), i.e. the route may now be withdrawn.
func (h *HoldDownTracker) MayWithdraw(prefix string, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[prefix]
	if !ok || e.holdDownUntil.IsZero() {
		return true
	}
	return !now.Before(e.holdDownUntil)
}

// MayReannounce reports whether prefix's grace period has expired (or
// never started), i.e. the route may now be re-announced.
func (h *HoldDownTracker) MayReannounce(prefix string, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[prefix]
	if !ok || e.graceUntil.IsZero() {
		return true
	}
	return !now.Before(e.graceUntil)
}
