// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ExternalReassemblyStore lets fragment persistence and completion survive
// process boundaries (§4.2). Optional: the in-process Stream reassembler
// is the default and this is only consulted when wired.
type ExternalReassemblyStore interface {
	// PushPart records one fragment's text and reports completion plus the
	// concatenated full text once the terminal fragment closes the run.
	PushPart(ctx context.Context, sessionID, streamID string, msgSeq uint64, fragSeq uint32, text string, isLast bool) (complete bool, full string, err error)
	// Clear removes all parts for a (session, stream, msgSeq) key.
	Clear(ctx context.Context, sessionID, streamID string, msgSeq uint64) error
}

// redisReassemblyStore implements ExternalReassemblyStore over Redis
// hashes, one hash per (session, stream, msgSeq), with TTL-driven pruning
// via EXPIRE — grounded on etalazz-vsa's go-redis/v9 usage for shared
// session state.
type redisReassemblyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReassemblyStore returns a Redis-backed ExternalReassemblyStore
// whose keys expire after ttl of inactivity.
func NewRedisReassemblyStore(client *redis.Client, ttl time.Duration) ExternalReassemblyStore {
	return &redisReassemblyStore{client: client, ttl: ttl}
}

func (s *redisReassemblyStore) key(sessionID, streamID string, msgSeq uint64) string {
	return fmt.Sprintf("reasm:%s:%s:%d", sessionID, streamID, msgSeq)
}

func (s *redisReassemblyStore) PushPart(ctx context.Context, sessionID, streamID string, msgSeq uint64, fragSeq uint32, text string, isLast bool) (bool, string, error) {
	key := s.key(sessionID, streamID, msgSeq)
	field := fmt.Sprintf("%d", fragSeq)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, field, text)
	if isLast {
		pipe.HSet(ctx, key, "last", field)
	}
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, "", err
	}

	data, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return false, "", err
	}
	lastStr, haveLast := data["last"]
	if !haveLast {
		return false, "", nil
	}

	var parts []string
	for i := 0; ; i++ {
		v, ok := data[fmt.Sprintf("%d", i)]
		if !ok {
			return false, "", nil
		}
		parts = append(parts, v)
		if fmt.Sprintf("%d", i) == lastStr {
			break
		}
	}
	_ = s.Clear(ctx, sessionID, streamID, msgSeq)
	return true, strings.Join(parts, ""), nil
}

func (s *redisReassemblyStore) Clear(ctx context.Context, sessionID, streamID string, msgSeq uint64) error {
	return s.client.Del(ctx, s.key(sessionID, streamID, msgSeq)).Err()
}
