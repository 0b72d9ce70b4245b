// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package observation

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

var statsBucket = []byte("routing_stats")

// StatKey identifies one (cluster_id, model_id) routing-stats row.
type StatKey struct {
	ClusterID string `json:"cluster_id"`
	ModelID   string `json:"model_id"`
}

// StatRow is the persisted form of §6's "small structured store ... ->
// {calls, successes, cost_sum, latency_sum}".
type StatRow struct {
	Calls       int64   `json:"calls"`
	Successes   int64   `json:"successes"`
	CostSumUSD  float64 `json:"cost_sum"`
	LatencySumS float64 `json:"latency_sum"`
}

func (k StatKey) boltKey() []byte {
	return []byte(k.ClusterID + "\x00" + k.ModelID)
}

// StatsStore is the boltdb-backed persistence layer for router.RoutingStats
// (§6 "Routing stats: small structured store"). It is a durable mirror of
// the in-memory copy-on-write stats the routing layer reads on the hot
// path; the store itself is only touched on flush and startup load.
type StatsStore struct {
	db *bbolt.DB
}

// OpenStatsStore opens (creating if needed) the bbolt file at path.
func OpenStatsStore(path string) (*StatsStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("observation: open stats db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(statsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("observation: create stats bucket: %w", err)
	}
	return &StatsStore{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *StatsStore) Close() error {
	return s.db.Close()
}

// Put upserts a single stat row.
func (s *StatsStore) Put(k StatKey, row StatRow) error {
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("observation: marshal stat row: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(statsBucket).Put(k.boltKey(), b)
	})
}

// PutAll upserts every row in rows inside a single bbolt transaction, for
// a periodic flush of the whole in-memory stats map.
func (s *StatsStore) PutAll(rows map[StatKey]StatRow) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(statsBucket)
		for k, row := range rows {
			b, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("observation: marshal stat row: %w", err)
			}
			if err := bucket.Put(k.boltKey(), b); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadAll reads every persisted row back, for process restart.
func (s *StatsStore) LoadAll() (map[StatKey]StatRow, error) {
	out := make(map[StatKey]StatRow)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(statsBucket).ForEach(func(k, v []byte) error {
			key, err := parseBoltKey(k)
			if err != nil {
				return err
			}
			var row StatRow
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("observation: unmarshal stat row for %v: %w", key, err)
			}
			out[key] = row
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseBoltKey(k []byte) (StatKey, error) {
	for i, b := range k {
		if b == 0 {
			return StatKey{ClusterID: string(k[:i]), ModelID: string(k[i+1:])}, nil
		}
	}
	return StatKey{}, fmt.Errorf("observation: malformed stats key %q", k)
}
