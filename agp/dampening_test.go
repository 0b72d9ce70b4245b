// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package agp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDampenerSuppressesAfterRepeatedFlaps(t *testing.T) {
	d := NewDampener(DampeningConfig{PenaltyPerFlap: 1000, SuppressThreshold: 2000, HalfLife: 15 * time.Minute})
	now := time.Now()
	d.Flap("reviewer.*", now)
	require.False(t, d.Suppressed("reviewer.*", now))
	d.Flap("reviewer.*", now)
	require.True(t, d.Suppressed("reviewer.*", now))
}

func TestDampenerDecaysOverHalfLife(t *testing.T) {
	d := NewDampener(DampeningConfig{PenaltyPerFlap: 1000, SuppressThreshold: 2000, HalfLife: 15 * time.Minute})
	now := time.Now()
	d.Flap("reviewer.*", now)
	d.Flap("reviewer.*", now)
	require.True(t, d.Suppressed("reviewer.*", now))

	later := now.Add(15 * time.Minute)
	require.InDelta(t, 1000, d.Penalty("reviewer.*", later), 1)
	require.False(t, d.Suppressed("reviewer.*", later))
}

func TestHoldDownBlocksWithdrawUntilExpiry(t *testing.T) {
	h := NewHoldDownTracker(8*time.Second, 5*time.Second)
	now := time.Now()
	h.Degrade("reviewer.*", now)
	require.False(t, h.MayWithdraw("reviewer.*", now.Add(4*time.Second)))
	require.True(t, h.MayWithdraw("reviewer.*", now.Add(9*time.Second)))
}

func TestRecoverClearsHoldDown(t *testing.T) {
	h := NewHoldDownTracker(8*time.Second, 5*time.Second)
	now := time.Now()
	h.Degrade("reviewer.*", now)
	h.Recover("reviewer.*", now.Add(time.Second))
	require.True(t, h.MayWithdraw("reviewer.*", now.Add(2*time.Second)))
	require.False(t, h.MayReannounce("reviewer.*", now.Add(2*time.Second)))
}
