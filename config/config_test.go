// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Valid())
}

func TestProductionAndLocalPresetsAreValid(t *testing.T) {
	require.NoError(t, ProductionConfig().Valid())
	require.NoError(t, LocalConfig().Valid())
}

func TestValidRejectsBadWatermark(t *testing.T) {
	c := DefaultConfig()
	c.Watermark.HighMS = c.Watermark.LowMS
	require.ErrorIs(t, c.Valid(), ErrWatermark)
}

func TestValidRejectsShortAGPHoldTime(t *testing.T) {
	c := DefaultConfig()
	c.AGP.HoldTime = c.AGP.KeepaliveInterval
	require.ErrorIs(t, c.Valid(), ErrAGP)
}

func TestValidRejectsEmptyObservationPaths(t *testing.T) {
	c := DefaultConfig()
	c.Observation.Dir = ""
	require.Error(t, c.Valid())
}
