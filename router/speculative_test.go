// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/atp-router/routerd/telemetry"
)

func TestRaceOnlyOneWinner(t *testing.T) {
	newRace := NewRace(telemetry.NewRegistry(prometheus.NewRegistry()))
	race := newRace()
	race.Attempt("A")
	race.Attempt("B")

	require.True(t, race.TryAccept("B"))
	require.False(t, race.TryAccept("A"))

	winner, ok := race.Winner()
	require.True(t, ok)
	require.Equal(t, "B", winner)
}
