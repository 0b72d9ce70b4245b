// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/atp-router/routerd/telemetry"
)

func TestValidateEvidenceAllCovered(t *testing.T) {
	result := ValidateEvidence("Lux routers forward by prefix [1] and use ECMP [2].", []Citation{
		{Index: 1, URI: "https://example.com/a"},
		{Index: 2, URI: "https://example.com/b"},
	})
	require.True(t, result.Valid)
	require.Empty(t, result.MissingIndices)
}

func TestValidateEvidenceMissingMarker(t *testing.T) {
	result := ValidateEvidence("Claim one [1] and claim two [3].", []Citation{
		{Index: 1, URI: "https://example.com/a"},
	})
	require.False(t, result.Valid)
	require.Equal(t, []int{3}, result.MissingIndices)
}

func TestEvidenceValidatorIncrementsFailCounter(t *testing.T) {
	promReg := prometheus.NewRegistry()
	reg := telemetry.NewRegistry(promReg)
	v := NewEvidenceValidator(reg)

	result := v.Validate("uncovered [9]", nil)
	require.False(t, result.Valid)

	fails := reg.Counter("evidence_fail_total", "final answers with an uncovered citation marker")
	require.Equal(t, float64(1), testutil.ToFloat64(fails.WithLabelValues()))
}
