// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package admission

import (
	"container/list"
	"sync"

	"github.com/atp-router/routerd/frame"
)

// QoSScheduler holds three strict-priority FIFO queues, gold > silver >
// bronze (§4.3, GLOSSARY). Dequeue is strict priority across tiers, FIFO
// within a tier.
type QoSScheduler struct {
	mu    sync.Mutex
	gold  *list.List
	silver *list.List
	bronze *list.List

	enqueueTimes map[string]int64 // sessionID -> monotonic enqueue order, oldest-first preemption
	seq          int64

	preemptEnabled bool
}

// entry is a queued admission request.
type entry struct {
	sessionID string
	payload   interface{}
	order     int64
}

// NewQoSScheduler returns an empty scheduler.
func NewQoSScheduler(preemptEnabled bool) *QoSScheduler {
	return &QoSScheduler{
		gold: list.New(), silver: list.New(), bronze: list.New(),
		enqueueTimes:   make(map[string]int64),
		preemptEnabled: preemptEnabled,
	}
}

func (q *QoSScheduler) queueFor(qos frame.QoS) *list.List {
	switch qos {
	case frame.QoSGold:
		return q.gold
	case frame.QoSSilver:
		return q.silver
	default:
		return q.bronze
	}
}

// Enqueue adds a session's request to its tier's queue, returning false if
// the queue is at capacity (§5: "All inbound queues are bounded; overflow
// is rejected with backpressure rather than dropped silently").
func (q *QoSScheduler) Enqueue(qos frame.QoS, sessionID string, payload interface{}, capacity int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	ql := q.queueFor(qos)
	if capacity > 0 && ql.Len() >= capacity {
		return false
	}
	q.seq++
	ql.PushBack(entry{sessionID: sessionID, payload: payload, order: q.seq})
	q.enqueueTimes[sessionID] = q.seq
	return true
}

// Dequeue pops the oldest entry from the highest non-empty tier.
func (q *QoSScheduler) Dequeue() (qos frame.QoS, sessionID string, payload interface{}, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	tiers := []struct {
		qos frame.QoS
		ql  *list.List
	}{
		{frame.QoSGold, q.gold},
		{frame.QoSSilver, q.silver},
		{frame.QoSBronze, q.bronze},
	}
	for _, t := range tiers {
		if t.ql.Len() > 0 {
			front := t.ql.Front()
			t.ql.Remove(front)
			e := front.Value.(entry)
			delete(q.enqueueTimes, e.sessionID)
			return t.qos, e.sessionID, e.payload, true
		}
	}
	return "", "", nil, false
}

// DepthByTier returns queue depths for gauges.
func (q *QoSScheduler) DepthByTier() (gold, silver, bronze int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.gold.Len(), q.silver.Len(), q.bronze.Len()
}

// PreemptCandidates selects oldest bronze sessions first, then oldest
// silver, up to n sessions, to release capacity for higher-tier demand
// (§4.3: "a preemption selector chooses oldest bronze sessions first,
// then oldest silver"). It does not mutate the queues — callers mark the
// returned sessions DRAINING via stream.Pause.
func (q *QoSScheduler) PreemptCandidates(n int) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.preemptEnabled || n <= 0 {
		return nil
	}
	var out []string
	for _, ql := range []*list.List{q.bronze, q.silver} {
		for e := ql.Front(); e != nil && len(out) < n; e = e.Next() {
			out = append(out, e.Value.(entry).sessionID)
		}
		if len(out) >= n {
			break
		}
	}
	return out
}

// WatermarkState is HIGH or LOW (§4.3).
type WatermarkState string

const (
	WatermarkLow  WatermarkState = "LOW"
	WatermarkHigh WatermarkState = "HIGH"
)

// Watermark flips to HIGH after require_n consecutive observations above
// high_ms, and back to LOW below low_ms, via a consecutive-counter
// hysteresis (§4.3).
type Watermark struct {
	mu        sync.Mutex
	state     WatermarkState
	highMS    float64
	lowMS     float64
	requireN  int
	aboveRun  int
	belowRun  int
}

// NewWatermark starts in LOW.
func NewWatermark(highMS, lowMS float64, requireN int) *Watermark {
	return &Watermark{state: WatermarkLow, highMS: highMS, lowMS: lowMS, requireN: requireN}
}

// Observe records one latency sample and returns the resulting state.
func (w *Watermark) Observe(latencyMS float64) WatermarkState {
	w.mu.Lock()
	defer w.mu.Unlock()

	if latencyMS >= w.highMS {
		w.aboveRun++
		w.belowRun = 0
	} else if latencyMS < w.lowMS {
		w.belowRun++
		w.aboveRun = 0
	} else {
		w.aboveRun = 0
		w.belowRun = 0
	}

	switch w.state {
	case WatermarkLow:
		if w.aboveRun >= w.requireN {
			w.state = WatermarkHigh
			w.aboveRun = 0
		}
	case WatermarkHigh:
		if w.belowRun >= w.requireN {
			w.state = WatermarkLow
			w.belowRun = 0
		}
	}
	return w.state
}

// State returns the current watermark state.
func (w *Watermark) State() WatermarkState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// ECN reports whether frames should carry the ECN flag: "entering HIGH
// sets the ECN flag on emitted frames" (§4.3).
func (w *Watermark) ECN() bool {
	return w.State() == WatermarkHigh
}
