// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatcher

import (
	"context"
	"testing"

	"github.com/atp-router/routerd/adapterrpc"
	"github.com/stretchr/testify/require"
)

type stubClient struct{ id string }

func (s stubClient) Estimate(ctx context.Context, req adapterrpc.EstimateRequest) (adapterrpc.Estimate, error) {
	return adapterrpc.Estimate{}, nil
}
func (s stubClient) Stream(ctx context.Context, streamID string, promptJSON map[string]interface{}, onChunk func(adapterrpc.Chunk) error) error {
	return nil
}
func (s stubClient) Health(ctx context.Context) (adapterrpc.Health, error) {
	return adapterrpc.Health{}, nil
}

func TestPoolRegisterGet(t *testing.T) {
	p := NewPool()
	p.Register("gpt-a", stubClient{id: "gpt-a"})
	require.Equal(t, 1, p.Len())

	ac, ok := p.Get("gpt-a")
	require.True(t, ok)
	require.Equal(t, "gpt-a", ac.AdapterID)

	_, ok = p.Get("missing")
	require.False(t, ok)
}

func TestPoolShardForStable(t *testing.T) {
	p := NewPool()
	p.Register("a", stubClient{})
	p.Register("b", stubClient{})
	p.Register("c", stubClient{})

	first, ok := p.ShardFor("stream-42")
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, ok := p.ShardFor("stream-42")
		require.True(t, ok)
		require.Equal(t, first, again)
	}
}

func TestPoolDeregisterRemovesShard(t *testing.T) {
	p := NewPool()
	p.Register("a", stubClient{})
	p.Deregister("a")
	require.Equal(t, 0, p.Len())
	_, ok := p.ShardFor("stream-1")
	require.False(t, ok)
}
