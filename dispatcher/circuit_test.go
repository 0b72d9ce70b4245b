// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitOpensAfterThreshold(t *testing.T) {
	c := newCircuit(3, 10*time.Millisecond, 2)
	now := time.Now()

	require.Equal(t, CircuitClosed, c.State())
	c.RecordFailure(now)
	c.RecordFailure(now)
	require.Equal(t, CircuitClosed, c.State())
	c.RecordFailure(now)
	require.Equal(t, CircuitOpen, c.State())
	require.False(t, c.Allow(now))
}

func TestCircuitHalfOpenRecovery(t *testing.T) {
	c := newCircuit(1, 5*time.Millisecond, 2)
	now := time.Now()

	c.RecordFailure(now)
	require.Equal(t, CircuitOpen, c.State())
	require.False(t, c.Allow(now))

	later := now.Add(10 * time.Millisecond)
	require.True(t, c.Allow(later))
	require.Equal(t, CircuitHalfOpen, c.State())

	c.RecordSuccess(later)
	require.Equal(t, CircuitHalfOpen, c.State())
	c.RecordSuccess(later)
	require.Equal(t, CircuitClosed, c.State())
}

func TestCircuitHalfOpenFailureReopens(t *testing.T) {
	c := newCircuit(1, 5*time.Millisecond, 2)
	now := time.Now()
	c.RecordFailure(now)
	later := now.Add(10 * time.Millisecond)
	require.True(t, c.Allow(later))
	require.Equal(t, CircuitHalfOpen, c.State())

	c.RecordFailure(later)
	require.Equal(t, CircuitOpen, c.State())
}

func TestBreakersOpenCount(t *testing.T) {
	b := NewBreakers(1, time.Hour, 1)
	b.RecordFailure("a")
	b.RecordFailure("b")
	require.Equal(t, 2, b.OpenCount())
	require.False(t, b.Allow("a"))
	require.False(t, b.Allow("b"))
	require.True(t, b.Allow("c"))
}
