// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the router's typed configuration, enumerated in
// §6. It follows a Parameters/Valid shape: a flat struct with
// Default/Production/Local presets and a Valid() error method.
package config

import (
	"errors"
	"time"
)

// Error variables for validation, one per invalid field.
var (
	ErrInvalid            = errors.New("invalid configuration")
	ErrHeartbeatInterval  = errors.New("heartbeat.interval_s must be > 0")
	ErrIdleFin            = errors.New("heartbeat.idle_fin_s must be >= heartbeat.interval_s")
	ErrBudget             = errors.New("budget defaults must be > 0")
	ErrWatermark          = errors.New("watermark.high_ms must be > watermark.low_ms")
	ErrAIMD               = errors.New("aimd.min_cwnd must be >= 1")
	ErrCircuit            = errors.New("circuit.fail_threshold must be >= 1")
	ErrPromoteDemote      = errors.New("promote/demote thresholds must be positive")
	ErrAGP                = errors.New("agp.hold_time must be >= 2 * agp.keepalive_interval")
)

// Heartbeat configures §4.2 heartbeat scheduling.
type Heartbeat struct {
	IntervalS time.Duration
	IdleFinS  time.Duration
}

// Budget configures §4.3 default per-session budgets.
type Budget struct {
	DefaultTokens    int64
	DefaultUSDMicros int64
	BurnWindowS      time.Duration
}

// QoSScheduler configures §4.3 preemption behavior.
type QoSScheduler struct {
	PreemptEnabled bool
}

// Watermark configures §4.3 ECN watermark hysteresis.
type Watermark struct {
	HighMS   time.Duration
	LowMS    time.Duration
	RequireN int
}

// AIMD configures §4.3 window tuning.
type AIMD struct {
	MinCwnd      int
	AdditiveInc  int
	MulDecFactor float64
}

// Circuit configures §4.4 per-adapter circuit breakers.
type Circuit struct {
	FailThreshold      int
	ResetTimeoutS      time.Duration
	HalfOpenSuccesses  int
}

// Lifecycle configures §4.5 promotion/demotion hysteresis.
type Lifecycle struct {
	PromoteMinCalls       int
	PromoteCostImprove    float64
	DemoteMinCalls        int
	DemoteCostRegress     float64
	PromoDemoHysteresisSec time.Duration
}

// AGP configures §4.7 federation timers.
type AGP struct {
	KeepaliveInterval    time.Duration
	HoldTime             time.Duration
	MaxKeepaliveMisses   int
	DampeningHalfLifeMin time.Duration
	PersistS             time.Duration
	GraceS               time.Duration
	SafeModeMaxRetries   int
	SafeModeRetryDelayS  time.Duration
}

// RLHOverhead are the per-hop overhead constants from §4.7's Router Label
// Header forwarding model: budget_tokens -= alpha*payload + beta,
// budget_usd_micros -= gamma*payload + delta. Open Question resolved in
// DESIGN.md: these are fixed per deployment, not negotiated in OPEN.
type RLHOverhead struct {
	Alpha float64
	Beta  float64
	Gamma float64
	Delta float64
}

// Observation configures §6 persisted state: the daily JSONL observation
// log, the bbolt-backed routing-stats store, and the hash-chained custody
// log. CustodyHMACKey signs each custody entry; it is seeded at startup
// the same way frame/sign.go's KeyManager seeds its signing keys.
type Observation struct {
	Dir            string
	StatsDBPath    string
	CustodyLogPath string
	CustodyHMACKey []byte
	SchemaVersion  int
}

// Config is the full typed configuration enumerated in §6.
type Config struct {
	Heartbeat    Heartbeat
	Budget       Budget
	QoSScheduler QoSScheduler
	Watermark    Watermark
	AIMD         AIMD
	Circuit      Circuit
	Lifecycle    Lifecycle
	AGP          AGP
	RLH          RLHOverhead
	Observation  Observation

	// Adapters maps adapter_id to the gRPC address (host:port) of the
	// adapter process's AdapterService endpoint (§1's out-of-scope
	// adapter process, reached over adapterrpc.GRPCClient). Empty by
	// default; populated from the deployment's adapter inventory.
	Adapters map[string]string
}

// DefaultConfig returns the configuration with every §6 default applied.
func DefaultConfig() Config {
	return Config{
		Heartbeat: Heartbeat{
			IntervalS: 10 * time.Second,
			IdleFinS:  30 * time.Second,
		},
		Budget: Budget{
			DefaultTokens:    100_000,
			DefaultUSDMicros: 5_000_000,
			BurnWindowS:      300 * time.Second,
		},
		QoSScheduler: QoSScheduler{PreemptEnabled: true},
		Watermark: Watermark{
			HighMS:   800 * time.Millisecond,
			LowMS:    300 * time.Millisecond,
			RequireN: 3,
		},
		AIMD: AIMD{
			MinCwnd:      1,
			AdditiveInc:  1,
			MulDecFactor: 0.5,
		},
		Circuit: Circuit{
			FailThreshold:     5,
			ResetTimeoutS:     30 * time.Second,
			HalfOpenSuccesses: 2,
		},
		Lifecycle: Lifecycle{
			PromoteMinCalls:        5,
			PromoteCostImprove:     0.9,
			DemoteMinCalls:         6,
			DemoteCostRegress:      1.25,
			PromoDemoHysteresisSec: 5 * time.Second,
		},
		AGP: AGP{
			KeepaliveInterval:    10 * time.Second,
			HoldTime:             30 * time.Second,
			MaxKeepaliveMisses:   3,
			DampeningHalfLifeMin: 15 * time.Minute,
			PersistS:             8 * time.Second,
			GraceS:               5 * time.Second,
			SafeModeMaxRetries:   3,
			SafeModeRetryDelayS:  5 * time.Second,
		},
		RLH: RLHOverhead{Alpha: 0.002, Beta: 1, Gamma: 0.00004, Delta: 0.02},
		Observation: Observation{
			Dir:            "./data/observations",
			StatsDBPath:    "./data/routing_stats.db",
			CustodyLogPath: "./data/custody.jsonl",
			SchemaVersion:  1,
		},
		Adapters: map[string]string{},
	}
}

// ProductionConfig raises the watermark's require_n and the circuit
// breaker's fail_threshold for a production deployment.
func ProductionConfig() Config {
	c := DefaultConfig()
	c.Watermark.RequireN = 5
	c.Circuit.FailThreshold = 8
	return c
}

// LocalConfig relaxes timers for local development.
func LocalConfig() Config {
	c := DefaultConfig()
	c.Heartbeat.IntervalS = 2 * time.Second
	c.Heartbeat.IdleFinS = 6 * time.Second
	c.AGP.KeepaliveInterval = 2 * time.Second
	c.AGP.HoldTime = 6 * time.Second
	return c
}

// Valid validates the configuration: cheap field checks, in declaration
// order.
func (c Config) Valid() error {
	if c.Heartbeat.IntervalS <= 0 {
		return ErrHeartbeatInterval
	}
	if c.Heartbeat.IdleFinS < c.Heartbeat.IntervalS {
		return ErrIdleFin
	}
	if c.Budget.DefaultTokens <= 0 || c.Budget.DefaultUSDMicros <= 0 {
		return ErrBudget
	}
	if c.Watermark.HighMS <= c.Watermark.LowMS {
		return ErrWatermark
	}
	if c.Watermark.RequireN < 1 {
		return ErrInvalid
	}
	if c.AIMD.MinCwnd < 1 {
		return ErrAIMD
	}
	if c.AIMD.MulDecFactor <= 0 || c.AIMD.MulDecFactor >= 1 {
		return ErrInvalid
	}
	if c.Circuit.FailThreshold < 1 || c.Circuit.HalfOpenSuccesses < 1 {
		return ErrCircuit
	}
	if c.Lifecycle.PromoteMinCalls < 1 || c.Lifecycle.DemoteMinCalls < 1 ||
		c.Lifecycle.PromoteCostImprove <= 0 || c.Lifecycle.DemoteCostRegress <= 0 {
		return ErrPromoteDemote
	}
	if c.AGP.HoldTime < 2*c.AGP.KeepaliveInterval {
		return ErrAGP
	}
	if c.AGP.MaxKeepaliveMisses < 1 {
		return ErrInvalid
	}
	if c.Observation.Dir == "" || c.Observation.StatsDBPath == "" || c.Observation.CustodyLogPath == "" {
		return ErrInvalid
	}
	if c.Observation.SchemaVersion < 1 {
		return ErrInvalid
	}
	return nil
}
