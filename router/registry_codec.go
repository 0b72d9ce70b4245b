// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"encoding/json"
	"io"
	"os"
)

// encodeRegistry writes models as a sorted-by-id JSON array so repeated
// persists of an unchanged registry produce byte-identical files — useful
// for the custody log's hash chain over registry snapshots.
func encodeRegistry(w io.Writer, models map[string]Model) error {
	ids := make([]string, 0, len(models))
	for id := range models {
		ids = append(ids, id)
	}
	// simple insertion sort: registries are small (tens to low hundreds
	// of models), and this avoids pulling in "sort" for one call site.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	ordered := make([]Model, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, models[id])
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ordered)
}

// LoadRegistry reads a registry file previously written by Registry's
// atomic persist, returning a fresh Registry bound to path.
func LoadRegistry(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var models []Model
	if err := json.NewDecoder(f).Decode(&models); err != nil {
		return nil, err
	}
	return NewRegistry(models, path), nil
}
