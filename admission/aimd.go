// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package admission

import "sync"

// AIMD tracks one peer/session's congestion window using additive
// increase / multiplicative decrease (§4.3, GLOSSARY).
type AIMD struct {
	mu           sync.Mutex
	cwnd         float64
	minCwnd      float64
	additiveInc  float64
	mulDecFactor float64
}

// NewAIMD seeds a window at minCwnd.
func NewAIMD(minCwnd float64, additiveInc float64, mulDecFactor float64) *AIMD {
	return &AIMD{cwnd: minCwnd, minCwnd: minCwnd, additiveInc: additiveInc, mulDecFactor: mulDecFactor}
}

// Feedback applies one observation: ACK-within-SLO increases additively;
// an ECN mark or timeout decreases multiplicatively, floored at minCwnd.
// ECN reacts identically to a timeout (§4.3: "feedback(session,
// latency_ms, ok, ecn)").
func (a *AIMD) Feedback(latencyMS float64, sloMS float64, ok bool, ecn bool) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case ecn || !ok:
		a.cwnd = a.cwnd * a.mulDecFactor
		if a.cwnd < a.minCwnd {
			a.cwnd = a.minCwnd
		}
	case latencyMS <= sloMS:
		a.cwnd += a.additiveInc
	default:
		// within SLO not met but not an explicit failure/ECN: treat as a
		// soft miss, same multiplicative response as congestion.
		a.cwnd = a.cwnd * a.mulDecFactor
		if a.cwnd < a.minCwnd {
			a.cwnd = a.minCwnd
		}
	}
	return a.cwnd
}

// Cwnd returns the current window.
func (a *AIMD) Cwnd() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cwnd
}
