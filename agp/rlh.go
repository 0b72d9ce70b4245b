// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package agp

import (
	"errors"
	"math"

	"github.com/atp-router/routerd/frame"
)

// RLH is the Router Label Header pushed onto an ATP frame for non-local
// prefixes (§4.7).
type RLH struct {
	DstRouterID  RouterID
	EgressAgentID string
	QoS          frame.QoS
	TTL          uint8
	BudgetTokens int64
	BudgetUSDMicros int64
	Flags        []RLHFlag
	HMAC         string
}

// RLHFlag is one of RESUME, FRAG, ECN (§4.7).
type RLHFlag string

const (
	RLHResume RLHFlag = "RESUME"
	RLHFrag   RLHFlag = "FRAG"
	RLHECN    RLHFlag = "ECN"
)

// ErrTTLExpired is returned when a frame arrives at a hop with TTL already
// at zero.
var ErrTTLExpired = errors.New("agp: RLH TTL expired")

// ErrBudgetExhausted is returned when a hop's overhead deduction would
// take either budget component negative (§4.7: "if either goes negative,
// drop with ERROR").
var ErrBudgetExhausted = errors.New("agp: RLH budget exhausted at hop")

// OverheadModel is the per-hop cost function: tokens = alpha*payload +
// beta, usd_micros = gamma*payload + delta (§4.7, config.RLHOverhead),
// each rounded up to whole units.
type OverheadModel struct {
	Alpha, Beta, Gamma, Delta float64
}

// tokenOverhead and usdMicrosOverhead compute the declared per-hop
// deduction for a payload of payloadBytes.
func (m OverheadModel) tokenOverhead(payloadBytes int) int64 {
	return int64(math.Ceil(m.Alpha*float64(payloadBytes) + m.Beta))
}

func (m OverheadModel) usdMicrosOverhead(payloadBytes int) int64 {
	return int64(math.Ceil(m.Gamma*float64(payloadBytes) + m.Delta))
}

// ForwardHop applies one hop's TTL decrement and budget deduction to rlh,
// returning the updated header or an error if TTL or either budget
// component would go negative (§4.7).
func ForwardHop(rlh RLH, payloadBytes int, model OverheadModel) (RLH, error) {
	if rlh.TTL == 0 {
		return RLH{}, ErrTTLExpired
	}
	next := rlh
	next.TTL--

	tokenCost := model.tokenOverhead(payloadBytes)
	usdCost := model.usdMicrosOverhead(payloadBytes)

	if next.BudgetTokens-tokenCost < 0 || next.BudgetUSDMicros-usdCost < 0 {
		return RLH{}, ErrBudgetExhausted
	}
	next.BudgetTokens -= tokenCost
	next.BudgetUSDMicros -= usdCost
	return next, nil
}
