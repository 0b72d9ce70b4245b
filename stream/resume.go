// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package stream

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// resumeEntry binds a single-use token to (session, stream) with a TTL.
type resumeEntry struct {
	sessionID string
	streamID  string
	expiresAt time.Time
}

// ResumptionManager issues and redeems single-use, TTL-bounded resumption
// tokens (§4.2). Token identity uses google/uuid, matching the pack's
// convention for opaque, collision-resistant ids (other_examples, teacher
// indirect dep).
type ResumptionManager struct {
	mu      sync.Mutex
	tokens  map[string]resumeEntry
	ttl     time.Duration
	resumes int64
}

// NewResumptionManager returns a manager issuing tokens valid for ttl.
func NewResumptionManager(ttl time.Duration) *ResumptionManager {
	return &ResumptionManager{tokens: make(map[string]resumeEntry), ttl: ttl}
}

// Issue mints a new resumption token bound to (sessionID, streamID).
func (m *ResumptionManager) Issue(sessionID, streamID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := uuid.NewString()
	m.tokens[token] = resumeEntry{sessionID: sessionID, streamID: streamID, expiresAt: time.Now().Add(m.ttl)}
	return token
}

// Resume returns true at most once for a given token, and invalidates it
// on success — §4.2: "resume(token, session, stream) returns true at most
// once and invalidates the token; successful resumes increment
// resumes_total." A token presented for the wrong (session, stream), or
// expired, or already consumed, resumes to false without being
// re-usable.
func (m *ResumptionManager) Resume(token, sessionID, streamID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.tokens[token]
	if !ok {
		return false
	}
	delete(m.tokens, token)
	if time.Now().After(entry.expiresAt) {
		return false
	}
	if entry.sessionID != sessionID || entry.streamID != streamID {
		return false
	}
	m.resumes++
	return true
}

// ResumesTotal returns the resumes_total counter.
func (m *ResumptionManager) ResumesTotal() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumes
}
