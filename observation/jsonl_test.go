// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package observation

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventLogAppendsAndDedups(t *testing.T) {
	dir := t.TempDir()
	l, err := NewEventLog(dir)
	require.NoError(t, err)
	defer l.Close()

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e := Event{SchemaVersion: 1, TS: at.Unix(), PromptHash: "abc", Phase: "final"}

	wrote, err := l.Append(e, at)
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = l.Append(e, at)
	require.NoError(t, err)
	require.False(t, wrote)

	path := filepath.Join(dir, "2026-08-01.jsonl")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	require.Equal(t, 1, lines)
}

func TestEventLogRollsOverByDate(t *testing.T) {
	dir := t.TempDir()
	l, err := NewEventLog(dir)
	require.NoError(t, err)
	defer l.Close()

	day1 := time.Date(2026, 8, 1, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 1, 0, 0, 0, time.UTC)

	_, err = l.Append(Event{PromptHash: "a", TS: day1.Unix(), Phase: "final"}, day1)
	require.NoError(t, err)
	_, err = l.Append(Event{PromptHash: "b", TS: day2.Unix(), Phase: "final"}, day2)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "2026-08-01.jsonl"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "2026-08-02.jsonl"))
	require.NoError(t, err)
}
