// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package adapterrpc defines the Adapter RPC contract consumed by the
// dispatcher (§6 "Adapter RPC (consumed)"). Adapters (model/tool
// processes) are out of scope (§1); this package is the typed boundary
// the core calls through, realized as a gRPC streaming client.
package adapterrpc

import "context"

// EstimateRequest carries the inputs to an Estimate call.
type EstimateRequest struct {
	StreamID   string
	TaskType   string
	PromptJSON map[string]interface{}
}

// Estimate is the adapter's pre-flight cost/latency prediction.
type Estimate struct {
	InTokens            int64
	OutTokens           int64
	USDMicros           int64
	P95Tokens           int64
	P95USDMicros        int64
	VarianceTokens      float64
	VarianceUSD         float64
	Confidence          float64
	ToolCostBreakdown   map[string]interface{}
	Assumptions         []string
}

// Chunk is one streamed unit from Stream (§6).
type Chunk struct {
	Type               string
	ContentJSON        map[string]interface{}
	Confidence         float64
	PartialInTokens    int64
	PartialOutTokens   int64
	PartialUSDMicros   int64
	More               bool
}

// Health is the adapter's self-reported health (§6).
type Health struct {
	P95MS     float64
	ErrorRate float64
}

// Client is the capability-set a registered adapter must implement:
// Estimate, Stream, Health, a typed interface exposed over the adapter
// RPC boundary with compliance checked at registration, not runtime
// (§9).
type Client interface {
	Estimate(ctx context.Context, req EstimateRequest) (Estimate, error)
	// Stream invokes the adapter and delivers chunks to onChunk until the
	// adapter reports More=false or ctx is cancelled. Returning an error
	// from onChunk stops the stream early.
	Stream(ctx context.Context, streamID string, promptJSON map[string]interface{}, onChunk func(Chunk) error) error
	Health(ctx context.Context) (Health, error)
}
