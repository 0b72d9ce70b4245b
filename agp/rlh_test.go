// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package agp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForwardHopDecrementsBudgetAndTTL(t *testing.T) {
	rlh := RLH{TTL: 4, BudgetTokens: 1000, BudgetUSDMicros: 5000}
	model := OverheadModel{Alpha: 0.002, Beta: 1, Gamma: 0.00004, Delta: 0.02}

	next, err := ForwardHop(rlh, 512, model)
	require.NoError(t, err)
	require.Equal(t, uint8(3), next.TTL)
	require.Less(t, next.BudgetTokens, rlh.BudgetTokens)
	require.Less(t, next.BudgetUSDMicros, rlh.BudgetUSDMicros)
}

func TestForwardHopTTLExpired(t *testing.T) {
	rlh := RLH{TTL: 0, BudgetTokens: 1000, BudgetUSDMicros: 5000}
	_, err := ForwardHop(rlh, 10, OverheadModel{})
	require.ErrorIs(t, err, ErrTTLExpired)
}

func TestForwardHopBudgetExhausted(t *testing.T) {
	rlh := RLH{TTL: 4, BudgetTokens: 1, BudgetUSDMicros: 5000}
	model := OverheadModel{Alpha: 1, Beta: 0, Gamma: 0, Delta: 0}
	_, err := ForwardHop(rlh, 1000, model)
	require.ErrorIs(t, err, ErrBudgetExhausted)
}
