// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atp-router/routerd/adapterrpc"
	"github.com/atp-router/routerd/errcode"
	"github.com/atp-router/routerd/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type flakyClient struct {
	failures int
	calls    int
}

func (f *flakyClient) Estimate(ctx context.Context, req adapterrpc.EstimateRequest) (adapterrpc.Estimate, error) {
	f.calls++
	if f.calls <= f.failures {
		return adapterrpc.Estimate{}, errors.New("transport refused")
	}
	return adapterrpc.Estimate{InTokens: 10}, nil
}
func (f *flakyClient) Stream(ctx context.Context, streamID string, promptJSON map[string]interface{}, onChunk func(adapterrpc.Chunk) error) error {
	return nil
}
func (f *flakyClient) Health(ctx context.Context) (adapterrpc.Health, error) {
	return adapterrpc.Health{}, nil
}

func newTestDispatcher() (*Dispatcher, *Pool) {
	reg := telemetry.NewRegistry(prometheus.NewRegistry())
	pool := NewPool()
	breakers := NewBreakers(2, time.Hour, 1)
	return NewDispatcher(pool, breakers, reg), pool
}

func TestDispatcherEstimateNoModelsAvailableWhenUnregistered(t *testing.T) {
	d, _ := newTestDispatcher()
	_, err := d.Estimate(context.Background(), "absent", adapterrpc.EstimateRequest{})
	require.Error(t, err)
	require.Equal(t, errcode.CodeNoModelsAvailable, errcode.Of(err))
}

func TestDispatcherEstimateOpensCircuitAfterFailures(t *testing.T) {
	d, pool := newTestDispatcher()
	client := &flakyClient{failures: 10}
	pool.Register("gpt-a", client)

	_, err := d.Estimate(context.Background(), "gpt-a", adapterrpc.EstimateRequest{})
	require.Error(t, err)
	_, err = d.Estimate(context.Background(), "gpt-a", adapterrpc.EstimateRequest{})
	require.Error(t, err)

	// breaker now open (fail_threshold=2): next call fails fast without
	// reaching the client.
	_, err = d.Estimate(context.Background(), "gpt-a", adapterrpc.EstimateRequest{})
	require.Error(t, err)
	require.Equal(t, errcode.CodeNoModelsAvailable, errcode.Of(err))
	require.Equal(t, 2, client.calls)
	require.Equal(t, 1, d.breakers.OpenCount())
}

func TestDispatcherEstimateRecoversAfterSuccess(t *testing.T) {
	d, pool := newTestDispatcher()
	client := &flakyClient{failures: 1}
	pool.Register("gpt-a", client)

	_, err := d.Estimate(context.Background(), "gpt-a", adapterrpc.EstimateRequest{})
	require.Error(t, err)

	est, err := d.Estimate(context.Background(), "gpt-a", adapterrpc.EstimateRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(10), est.InTokens)
	require.Equal(t, 0, d.breakers.OpenCount())
}

func TestDispatcherStreamForwardsChunksFromMockClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	d, pool := newTestDispatcher()

	mockClient := adapterrpc.NewMockClient(ctrl)
	mockClient.EXPECT().
		Stream(gomock.Any(), "stream-1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, streamID string, promptJSON map[string]interface{}, onChunk func(adapterrpc.Chunk) error) error {
			if err := onChunk(adapterrpc.Chunk{Type: "partial", More: true}); err != nil {
				return err
			}
			return onChunk(adapterrpc.Chunk{Type: "final", More: false})
		})
	pool.Register("gpt-a", mockClient)

	var seen []string
	err := d.Stream(context.Background(), "gpt-a", "stream-1", nil, func(c adapterrpc.Chunk) error {
		seen = append(seen, c.Type)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"partial", "final"}, seen)
	require.Equal(t, 0, d.breakers.OpenCount())
}
