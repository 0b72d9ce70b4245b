// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package observation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func replaceOnce(s, old, new string) string {
	return strings.Replace(s, old, new, 1)
}

func TestCustodyLogChainVerifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custody.jsonl")
	key := []byte("test-hmac-key")

	l, err := OpenCustodyLog(path, key)
	require.NoError(t, err)

	_, err = l.Append("build", "m1", 1)
	require.NoError(t, err)
	_, err = l.Append("scan", "m1", 2)
	require.NoError(t, err)
	e3, err := l.Append("promote", "m1", 3)
	require.NoError(t, err)
	require.NotEmpty(t, e3.PrevHash)

	brokenAt, err := VerifyChain(path, key)
	require.NoError(t, err)
	require.Equal(t, -1, brokenAt)
}

func TestCustodyLogDetectsTamper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custody.jsonl")
	key := []byte("test-hmac-key")

	l, err := OpenCustodyLog(path, key)
	require.NoError(t, err)
	_, err = l.Append("build", "m1", 1)
	require.NoError(t, err)
	_, err = l.Append("deploy", "m1", 2)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := []byte(replaceOnce(string(raw), `"event":"deploy"`, `"event":"deplox"`))
	require.NoError(t, os.WriteFile(path, tampered, 0o644))

	brokenAt, err := VerifyChain(path, key)
	require.NoError(t, err)
	require.GreaterOrEqual(t, brokenAt, 0)
}

func TestCustodyLogResumesChainAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custody.jsonl")
	key := []byte("test-hmac-key")

	l1, err := OpenCustodyLog(path, key)
	require.NoError(t, err)
	e1, err := l1.Append("build", "m1", 1)
	require.NoError(t, err)

	l2, err := OpenCustodyLog(path, key)
	require.NoError(t, err)
	e2, err := l2.Append("scan", "m1", 2)
	require.NoError(t, err)
	require.Equal(t, e1.Hash, e2.PrevHash)

	brokenAt, err := VerifyChain(path, key)
	require.NoError(t, err)
	require.Equal(t, -1, brokenAt)
}
