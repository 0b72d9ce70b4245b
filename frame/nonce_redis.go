// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package frame

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisNonceStore is the external replay-guard backend named in §4.1
// ("in-memory or external"), letting multiple router processes share a
// replay window. Grounded on etalazz-vsa's use of redis/go-redis/v9 as the
// shared-state backend for a sharded service.
type redisNonceStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisNonceStore returns a NonceStore backed by Redis SETNX semantics:
// the first writer within the TTL window wins, everyone else observes a
// replay.
func NewRedisNonceStore(client *redis.Client, ttl time.Duration, keyPrefix string) NonceStore {
	return &redisNonceStore{client: client, ttl: ttl, prefix: keyPrefix}
}

func (s *redisNonceStore) SeenOrRecord(nonce string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok, err := s.client.SetNX(ctx, s.prefix+nonce, 1, s.ttl).Result()
	if err != nil {
		// Transport failure on the replay guard must not silently admit a
		// possible replay; treat it as seen so the caller rejects.
		return true
	}
	return !ok
}
