// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atp-router/routerd/log"
)

const sampleYAML = `
circuit:
  fail_threshold: 3
  reset_timeout_s: 15
  half_open_successes: 1
observation:
  dir: ./obs
  stats_db_path: ./stats.db
  custody_log_path: ./custody.jsonl
  custody_hmac_key_hex: "deadbeef"
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	return path
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeSampleConfig(t)
	c, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 3, c.Circuit.FailThreshold)
	require.Equal(t, 15*time.Second, c.Circuit.ResetTimeoutS)
	require.Equal(t, "./obs", c.Observation.Dir)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, c.Observation.CustodyHMACKey)
}

func TestLoadFileRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("circuit:\n  fail_threshold: 0\n"), 0o644))
	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestManagerReloadFallsBackToSafeMode(t *testing.T) {
	path := writeSampleConfig(t)
	mgr, err := NewManager(log.NewNoOpLogger(), path, nil)
	require.NoError(t, err)
	require.False(t, mgr.SafeModeActive())

	require.NoError(t, os.WriteFile(path, []byte("circuit:\n  fail_threshold: 0\n"), 0o644))
	err = mgr.Reload(1, time.Millisecond)
	require.Error(t, err)
	require.True(t, mgr.SafeModeActive())
	require.Equal(t, 3, mgr.Current().Circuit.FailThreshold)
}

func TestManagerReloadExitsSafeModeOnGoodLoad(t *testing.T) {
	path := writeSampleConfig(t)
	mgr, err := NewManager(log.NewNoOpLogger(), path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("circuit:\n  fail_threshold: 0\n"), 0o644))
	require.Error(t, mgr.Reload(0, time.Millisecond))
	require.True(t, mgr.SafeModeActive())

	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	require.NoError(t, mgr.Reload(0, time.Millisecond))
	require.False(t, mgr.SafeModeActive())
}
