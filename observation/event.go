// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package observation implements the §6 "Persisted state" trio: the daily
// observation JSONL log, the routing-stats structured store, and the
// hash-chained custody log.
package observation

// Event is one line of the daily observation JSONL file. Required keys
// per §6: "ts, prompt_hash, cluster_hint, model_plan, primary_model,
// latency_s, tokens_in, tokens_out, cost_usd, phase, schema_version".
type Event struct {
	SchemaVersion int      `json:"schema_version"`
	TS            int64    `json:"ts"`
	PromptHash    string   `json:"prompt_hash"`
	ClusterHint   string   `json:"cluster_hint"`
	ModelPlan     []string `json:"model_plan"`
	PrimaryModel  string   `json:"primary_model"`
	LatencyS      float64  `json:"latency_s"`
	TokensIn      int64    `json:"tokens_in"`
	TokensOut     int64    `json:"tokens_out"`
	CostUSD       float64  `json:"cost_usd"`
	Phase         string   `json:"phase"`
}

// idempotencyKey identifies an event for dedup-on-retry: the same
// (prompt_hash, ts, phase) triple must not be appended twice even if the
// caller retries after an ambiguous write.
type idempotencyKey struct {
	PromptHash string
	TS         int64
	Phase      string
}

func keyOf(e Event) idempotencyKey {
	return idempotencyKey{PromptHash: e.PromptHash, TS: e.TS, Phase: e.Phase}
}
