// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package adapterrpc

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName    = "atprouter.adapter.v1.AdapterService"
	methodEstimate = "/" + serviceName + "/Estimate"
	methodStream   = "/" + serviceName + "/Stream"
	methodHealth   = "/" + serviceName + "/Health"
)

// GRPCClient implements Client against an out-of-scope adapter process's
// gRPC endpoint (§1). Requests and responses are carried as
// structpb.Struct rather than hand-compiled protoc message types: this
// mirrors the corpus's own validatorstate RPC, a hand-maintained
// interface over plain Go structs rather than full protoc-generated
// code, adapted here to the domain's map[string]interface{}-shaped
// estimate/chunk payloads.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// DialAdapter opens a gRPC connection to an adapter at addr, grounded on
// grpcutils.DialContext's insecure-by-default dialing.
func DialAdapter(ctx context.Context, addr string) (*GRPCClient, error) {
	conn, err := grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("adapterrpc: dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

var _ Client = (*GRPCClient)(nil)

func toStruct(v map[string]interface{}) (*structpb.Struct, error) {
	if v == nil {
		v = map[string]interface{}{}
	}
	return structpb.NewStruct(v)
}

func asFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// Estimate calls the adapter's Estimate RPC.
func (c *GRPCClient) Estimate(ctx context.Context, req EstimateRequest) (Estimate, error) {
	prompt, err := toStruct(req.PromptJSON)
	if err != nil {
		return Estimate{}, fmt.Errorf("adapterrpc: encode prompt: %w", err)
	}
	in, err := structpb.NewStruct(map[string]interface{}{
		"stream_id": req.StreamID,
		"task_type": req.TaskType,
		"prompt":    prompt.AsMap(),
	})
	if err != nil {
		return Estimate{}, err
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, methodEstimate, in, out); err != nil {
		return Estimate{}, fmt.Errorf("adapterrpc: estimate: %w", err)
	}
	return estimateFromStruct(out), nil
}

func estimateFromStruct(s *structpb.Struct) Estimate {
	m := s.AsMap()
	est := Estimate{
		InTokens:       int64(asFloat(m["in_tokens"])),
		OutTokens:      int64(asFloat(m["out_tokens"])),
		USDMicros:      int64(asFloat(m["usd_micros"])),
		P95Tokens:      int64(asFloat(m["p95_tokens"])),
		P95USDMicros:   int64(asFloat(m["p95_usd_micros"])),
		VarianceTokens: asFloat(m["variance_tokens"]),
		VarianceUSD:    asFloat(m["variance_usd"]),
		Confidence:     asFloat(m["confidence"]),
	}
	if tb, ok := m["tool_cost_breakdown"].(map[string]interface{}); ok {
		est.ToolCostBreakdown = tb
	}
	if assumptions, ok := m["assumptions"].([]interface{}); ok {
		for _, a := range assumptions {
			if v, ok := a.(string); ok {
				est.Assumptions = append(est.Assumptions, v)
			}
		}
	}
	return est
}

// Stream calls the adapter's server-streaming Stream RPC, invoking
// onChunk for every chunk received until the adapter sets more=false or
// closes the stream.
func (c *GRPCClient) Stream(ctx context.Context, streamID string, promptJSON map[string]interface{}, onChunk func(Chunk) error) error {
	prompt, err := toStruct(promptJSON)
	if err != nil {
		return fmt.Errorf("adapterrpc: encode prompt: %w", err)
	}
	in, err := structpb.NewStruct(map[string]interface{}{
		"stream_id": streamID,
		"prompt":    prompt.AsMap(),
	})
	if err != nil {
		return err
	}

	stream, err := c.conn.NewStream(ctx, &grpc.StreamDesc{StreamName: "Stream", ServerStreams: true}, methodStream)
	if err != nil {
		return fmt.Errorf("adapterrpc: open stream: %w", err)
	}
	if err := stream.SendMsg(in); err != nil {
		return fmt.Errorf("adapterrpc: send stream request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("adapterrpc: close stream send: %w", err)
	}

	for {
		chunkStruct := &structpb.Struct{}
		if err := stream.RecvMsg(chunkStruct); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("adapterrpc: recv chunk: %w", err)
		}
		chunk := chunkFromStruct(chunkStruct)
		if err := onChunk(chunk); err != nil {
			return err
		}
		if !chunk.More {
			return nil
		}
	}
}

func chunkFromStruct(s *structpb.Struct) Chunk {
	m := s.AsMap()
	c := Chunk{
		Type:             asString(m["type"]),
		Confidence:       asFloat(m["confidence"]),
		PartialInTokens:  int64(asFloat(m["partial_in_tokens"])),
		PartialOutTokens: int64(asFloat(m["partial_out_tokens"])),
		PartialUSDMicros: int64(asFloat(m["partial_usd_micros"])),
		More:             asBool(m["more"]),
	}
	if content, ok := m["content"].(map[string]interface{}); ok {
		c.ContentJSON = content
	}
	return c
}

// Health calls the adapter's Health RPC.
func (c *GRPCClient) Health(ctx context.Context) (Health, error) {
	in := &structpb.Struct{}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, methodHealth, in, out); err != nil {
		return Health{}, fmt.Errorf("adapterrpc: health: %w", err)
	}
	m := out.AsMap()
	return Health{
		P95MS:     asFloat(m["p95_ms"]),
		ErrorRate: asFloat(m["error_rate"]),
	}, nil
}
