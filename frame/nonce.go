// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package frame

import (
	"sync"
	"time"

	"github.com/atp-router/routerd/utils/set"
)

// NonceStore rejects duplicate frames within a replay window (§4.1). Its
// implementations increment no counter; no replay_reject_total metric is
// registered. The default implementation is in-memory,
// time-bucket sharded by key hash in the spirit of §5's "Nonce store /
// replay guard: monotonic time bucket sharded by key hash" — here
// realized as a small ring of utils/set.Set buckets rotated by wall time,
// which keeps memory bounded without per-nonce expiry bookkeeping.
type NonceStore interface {
	// SeenOrRecord returns true if nonce was already recorded within the
	// TTL window (a replay), else records it and returns false.
	SeenOrRecord(nonce string) bool
}

type memoryNonceStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	bucketLen time.Duration
	buckets   []set.Set[string]
	bucketAt  []time.Time
}

// NewMemoryNonceStore returns an in-memory NonceStore covering ttl, split
// across numBuckets rotating windows.
func NewMemoryNonceStore(ttl time.Duration, numBuckets int) NonceStore {
	if numBuckets < 2 {
		numBuckets = 2
	}
	bucketLen := ttl / time.Duration(numBuckets)
	if bucketLen <= 0 {
		bucketLen = time.Millisecond
	}
	buckets := make([]set.Set[string], numBuckets)
	bucketAt := make([]time.Time, numBuckets)
	now := time.Now()
	for i := range buckets {
		buckets[i] = set.NewSet[string](64)
		bucketAt[i] = now
	}
	return &memoryNonceStore{ttl: ttl, bucketLen: bucketLen, buckets: buckets, bucketAt: bucketAt}
}

func (s *memoryNonceStore) currentIndex(now time.Time) int {
	return int(now.UnixNano()/int64(s.bucketLen)) % len(s.buckets)
}

func (s *memoryNonceStore) SeenOrRecord(nonce string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	idx := s.currentIndex(now)
	if now.Sub(s.bucketAt[idx]) >= time.Duration(len(s.buckets))*s.bucketLen {
		s.buckets[idx].Clear()
		s.bucketAt[idx] = now
	}

	for _, b := range s.buckets {
		if b.Contains(nonce) {
			return true
		}
	}
	s.buckets[idx].Add(nonce)
	return false
}
