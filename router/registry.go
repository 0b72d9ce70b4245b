// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router implements §4.5: candidate planning, UCB-based model
// selection, escalation signals, shadow evaluation, and the
// promotion/demotion lifecycle FSM. The model registry is grounded on the
// teacher's validators.Set/Manager shape (a read-mostly membership set
// queried far more often than it is mutated), adapted from "validator
// light/weight" to "model status/cost" and from weighted sampling to
// cost-ordered candidate planning.
package router

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// LifecycleStatus is a model's position in the promotion/demotion FSM
// (§4.5, GLOSSARY).
type LifecycleStatus string

const (
	StatusShadow     LifecycleStatus = "shadow"
	StatusActive     LifecycleStatus = "active"
	StatusDeprecated LifecycleStatus = "deprecated"
)

// SafetyGrade gates candidate eligibility (§4.5 "filter by safety_grade").
type SafetyGrade string

const (
	SafetyGradeA SafetyGrade = "A"
	SafetyGradeB SafetyGrade = "B"
	SafetyGradeC SafetyGrade = "C"
	SafetyGradeD SafetyGrade = "D"
)

// Model is one registered adapter-backed model.
type Model struct {
	ID           string
	AdapterID    string
	ClusterID    string
	Status       LifecycleStatus
	SafetyGrade  SafetyGrade
	Capabilities []string
	CostUSDPer1K float64
	LatencyP95MS float64

	LastLifecycleChangeUnix int64
}

// hasCapabilities reports whether m declares every capability in want.
func (m Model) hasCapabilities(want []string) bool {
	have := make(map[string]struct{}, len(m.Capabilities))
	for _, c := range m.Capabilities {
		have[c] = struct{}{}
	}
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

// snapshot is an immutable registry generation. Registry swaps the
// pointer atomically on every lifecycle change; readers never block
// (§9: "Model registry: copy-on-write; promotion/demotion builds a new
// snapshot and swaps the pointer atomically; readers never block").
type snapshot struct {
	byID map[string]Model
}

// Registry holds the current model set and persists lifecycle changes to
// a JSON file via temporary-file-plus-rename (§4.5: "All lifecycle
// changes are atomic registry writes").
type Registry struct {
	cur  atomic.Pointer[snapshot]
	path string
	mu   sync.Mutex // serializes writers; readers use cur unlocked
}

// NewRegistry loads an initial model set and the file path lifecycle
// writes persist to. path may be empty to run registry-write-less (e.g.
// in tests).
func NewRegistry(initial []Model, path string) *Registry {
	r := &Registry{path: path}
	snap := &snapshot{byID: make(map[string]Model, len(initial))}
	for _, m := range initial {
		snap.byID[m.ID] = m
	}
	r.cur.Store(snap)
	return r
}

// All returns every model in the current snapshot.
func (r *Registry) All() []Model {
	snap := r.cur.Load()
	out := make([]Model, 0, len(snap.byID))
	for _, m := range snap.byID {
		out = append(out, m)
	}
	return out
}

// Get returns one model by id.
func (r *Registry) Get(id string) (Model, bool) {
	snap := r.cur.Load()
	m, ok := snap.byID[id]
	return m, ok
}

// Mutate applies fn to a copy of the current snapshot's models and
// installs the result, persisting to disk first if a path was
// configured. fn must be pure: it receives the current model map and
// returns the updated map.
func (r *Registry) Mutate(fn func(map[string]Model) map[string]Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.cur.Load()
	working := make(map[string]Model, len(cur.byID))
	for k, v := range cur.byID {
		working[k] = v
	}
	updated := fn(working)

	if r.path != "" {
		if err := r.persist(updated); err != nil {
			return err
		}
	}
	r.cur.Store(&snapshot{byID: updated})
	return nil
}

// persist writes the registry to r.path via temp-file-plus-rename so a
// crash mid-write never corrupts the on-disk registry (§4.5).
func (r *Registry) persist(models map[string]Model) error {
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".registry-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := encodeRegistry(tmp, models); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
