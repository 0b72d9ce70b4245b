// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stream implements the per-(session_id, stream_id) state machine
// of §4.2: states, fragment reassembly, ACK/NACK logic, heartbeats, and
// resumption tokens. Streams hold their session ID, never a back-pointer
// to the Session, per §9's arena-and-index design note.
package stream

import (
	"sort"
	"sync"
	"time"

	"github.com/atp-router/routerd/frame"
)

// State is a stream's lifecycle state (§4.2).
type State string

const (
	StateInit      State = "INIT"
	StateAdmitted  State = "ADMITTED"
	StateStreaming State = "STREAMING"
	StatePaused    State = "PAUSED"
	StateFinalized State = "FINALIZED"
	StateFailed    State = "FAILED"
	StateRejected  State = "REJECTED"
)

// PauseReason distinguishes why a stream entered PAUSED, which determines
// its effective window (§4.2).
type PauseReason string

const (
	PauseBusy     PauseReason = "BUSY"
	PausePause    PauseReason = "PAUSE"
	PauseDraining PauseReason = "DRAINING"
	PauseECN      PauseReason = "ECN"
)

// Stream is the per-(session_id, stream_id) record (§3 "Stream").
type Stream struct {
	mu sync.Mutex

	SessionID string
	StreamID  string
	State     State

	seq uint64 // per-stream sequence counter

	// reassembly: ordered map frag_seq -> fragment, per open msg_seq
	pending      map[uint64]map[uint32]*frame.Frame
	expectedLast map[uint64]uint32 // known once terminal fragment seen
	haveLast     map[uint64]bool

	ackUpTo map[uint64]uint32 // highest contiguous frag_seq observed, per msg_seq

	acksTx            int64
	retransmitRequests int64

	effectiveWindow   frame.Window
	preEffectiveWindow frame.Window // saved across PAUSE, restored on RESUME

	lastActivity time.Time
	lastHB       time.Time
}

// New creates a stream in INIT state; SYN admission moves it to ADMITTED.
func New(sessionID, streamID string) *Stream {
	now := time.Now()
	return &Stream{
		SessionID:    sessionID,
		StreamID:     streamID,
		State:        StateInit,
		pending:      make(map[uint64]map[uint32]*frame.Frame),
		expectedLast: make(map[uint64]uint32),
		haveLast:     make(map[uint64]bool),
		ackUpTo:      make(map[uint64]uint32),
		lastActivity: now,
		lastHB:       now,
	}
}

// NextSeq returns the next outbound msg_seq, strictly monotonic per
// (session_id, stream_id) (§3 invariant).
func (s *Stream) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Admit transitions INIT -> ADMITTED when budget_ok && window_ok &&
// policy_ok all hold, else REJECTED (§4.2).
func (s *Stream) Admit(budgetOK, windowOK, policyOK bool) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if budgetOK && windowOK && policyOK {
		s.State = StateAdmitted
	} else {
		s.State = StateRejected
	}
	return s.State
}

// OnFragment records an inbound fragment, advances ack_up_to to the
// largest contiguous index from 0, and returns the ack_up_to value plus
// whether the message (msg_seq) is now complete. Duplicate fragments are
// idempotent: delivering the same frag_seq twice does not change the
// outcome (§4.1, §8).
func (s *Stream) OnFragment(f *frame.Frame) (ackUpTo uint32, complete bool, full *frame.Frame, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = time.Now()
	msgSeq := f.MsgSeq

	bucket, ok := s.pending[msgSeq]
	if !ok {
		bucket = make(map[uint32]*frame.Frame)
		s.pending[msgSeq] = bucket
	}
	if _, dup := bucket[f.FragSeq]; !dup {
		bucket[f.FragSeq] = f
	}
	if f.IsLast() {
		s.expectedLast[msgSeq] = f.FragSeq
		s.haveLast[msgSeq] = true
	}

	// Advance ack_up_to: largest contiguous index from 0. The contiguous
	// count of fragments present starting at 0 determines the highest
	// contiguously-observed frag_seq; ack_up_to never decreases (§3
	// Stream invariant, §8). A lone fragment above index 0 with gap below
	// it leaves ack_up_to at 0 until the gap fills.
	contiguous := uint32(0)
	for {
		if _, ok := bucket[contiguous]; !ok {
			break
		}
		contiguous++
	}
	next := uint32(0)
	if contiguous > 0 {
		next = contiguous - 1
	}
	s.ackUpTo[msgSeq] = next
	s.acksTx++
	ackUpTo = next

	if s.haveLast[msgSeq] && contiguous == s.expectedLast[msgSeq]+1 {
		frames := make([]*frame.Frame, 0, len(bucket))
		for i := uint32(0); i < contiguous; i++ {
			frames = append(frames, bucket[i])
		}
		full, err = frame.Reassemble(frames)
		complete = err == nil
		if complete {
			delete(s.pending, msgSeq)
			delete(s.expectedLast, msgSeq)
			delete(s.haveLast, msgSeq)
			delete(s.ackUpTo, msgSeq)
		}
	}
	return ackUpTo, complete, full, err
}

// NACKs returns the missing fragment indices below expected_last for
// msgSeq, once the terminal fragment is known; nil before that (§4.1,
// §4.2: "NACKs are not emitted before the terminal fragment is observed").
func (s *Stream) NACKs(msgSeq uint64) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.haveLast[msgSeq] {
		return nil
	}
	last := s.expectedLast[msgSeq]
	bucket := s.pending[msgSeq]
	var missing []uint32
	for i := uint32(0); i < last; i++ {
		if _, ok := bucket[i]; !ok {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		s.retransmitRequests += int64(len(missing))
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// AckUpTo returns the current ack_up_to for msgSeq.
func (s *Stream) AckUpTo(msgSeq uint64) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ackUpTo[msgSeq]
}

// Counters returns the stream's acks_tx / retransmit_requests totals.
func (s *Stream) Counters() (acksTx, retransmitRequests int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acksTx, s.retransmitRequests
}

// Pause enters PAUSED with the effective window determined by reason
// (§4.2): BUSY -> 0, PAUSE -> currently-advertised during grace then 0,
// DRAINING -> at most 1.
func (s *Stream) Pause(reason PauseReason, duringGrace bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StatePaused {
		s.preEffectiveWindow = s.effectiveWindow
	}
	s.State = StatePaused
	switch reason {
	case PauseBusy, PauseECN:
		s.effectiveWindow = frame.Window{}
	case PausePause:
		if duringGrace {
			// keep currently advertised window
		} else {
			s.effectiveWindow = frame.Window{}
		}
	case PauseDraining:
		w := s.effectiveWindow
		if w.MaxParallel > 1 {
			w.MaxParallel = 1
		}
		s.effectiveWindow = w
	}
}

// Resume restores the pre-pause effective window and returns to
// STREAMING (§4.2).
func (s *Stream) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effectiveWindow = s.preEffectiveWindow
	s.State = StateStreaming
}

// EffectiveWindow returns the stream's current effective window.
func (s *Stream) EffectiveWindow() frame.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveWindow
}

// Tick advances the heartbeat scheduler: emits HB if interval elapsed
// since last HB, or FIN (and FINALIZED) if idle past idleFin (§4.2).
func (s *Stream) Tick(now time.Time, interval, idleFin time.Duration) (emitHB, emitFIN bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastActivity) >= idleFin {
		s.State = StateFinalized
		return false, true
	}
	if now.Sub(s.lastHB) >= interval {
		s.lastHB = now
		return true, false
	}
	return false, false
}

// Touch records activity at now, resetting the idle-FIN clock.
func (s *Stream) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = now
}

// Finalize discards reassembly state, per §4.2: "Completion discards
// state."
func (s *Stream) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = StateFinalized
	s.pending = make(map[uint64]map[uint32]*frame.Frame)
	s.expectedLast = make(map[uint64]uint32)
	s.haveLast = make(map[uint64]bool)
	s.ackUpTo = make(map[uint64]uint32)
}
