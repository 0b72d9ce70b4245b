// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package observation

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsStorePutAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	s, err := OpenStatsStore(path)
	require.NoError(t, err)
	defer s.Close()

	k := StatKey{ClusterID: "reviewer", ModelID: "m1"}
	row := StatRow{Calls: 10, Successes: 9, CostSumUSD: 0.05, LatencySumS: 4.2}
	require.NoError(t, s.Put(k, row))

	loaded, err := s.LoadAll()
	require.NoError(t, err)
	require.Equal(t, row, loaded[k])
}

func TestStatsStorePutAllAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	s, err := OpenStatsStore(path)
	require.NoError(t, err)

	rows := map[StatKey]StatRow{
		{ClusterID: "reviewer", ModelID: "m1"}: {Calls: 1, Successes: 1},
		{ClusterID: "reviewer", ModelID: "m2"}: {Calls: 2, Successes: 0},
	}
	require.NoError(t, s.PutAll(rows))
	require.NoError(t, s.Close())

	reopened, err := OpenStatsStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, int64(2), loaded[StatKey{ClusterID: "reviewer", ModelID: "m2"}].Calls)
}
