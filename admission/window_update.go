// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package admission

import (
	"sync"
	"time"
)

// WindowUpdateEmitter decides when to push a WINDOW_UPDATE to a peer:
// whenever the window changed by at least min_delta, or min_interval_s
// has elapsed since the last emission (§4.3).
type WindowUpdateEmitter struct {
	mu          sync.Mutex
	minDelta    int
	minInterval time.Duration
	last        int
	lastEmitAt  time.Time
	emitted     bool
}

// NewWindowUpdateEmitter returns an emitter with the given thresholds.
func NewWindowUpdateEmitter(minDelta int, minInterval time.Duration) *WindowUpdateEmitter {
	return &WindowUpdateEmitter{minDelta: minDelta, minInterval: minInterval}
}

// ShouldEmit evaluates current against the last emitted value and now,
// returning whether a WINDOW_UPDATE should fire and, if so, the
// before/after/delta for the window.update span and window_update_tx
// counter.
func (e *WindowUpdateEmitter) ShouldEmit(now time.Time, current int) (emit bool, before, after, delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delta = current - e.last
	absDelta := delta
	if absDelta < 0 {
		absDelta = -absDelta
	}

	emit = !e.emitted || absDelta >= e.minDelta || now.Sub(e.lastEmitAt) >= e.minInterval
	if emit {
		before = e.last
		after = current
		e.last = current
		e.lastEmitAt = now
		e.emitted = true
	}
	return emit, before, after, delta
}
