// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package policy defines the §6 "Policy engine (consumed)" contract: a
// single typed check that admission, routing, and AGP policy filtering
// all call through, as a small single-method interface.
package policy

// Input carries the request metadata a policy decision is made over, per
// §6: "input carries request metadata, tenant, task_type, data_scope,
// tool_permissions, security_groups".
type Input struct {
	Tenant          string
	TaskType        string
	DataScope       string
	ToolPermissions []string
	SecurityGroups  []string
	Attrs           map[string]string
}

// Decision is the result of a policy check: allow/deny plus reasons for
// a deny, and attrs enriched by the engine (e.g. a resolved cost ceiling
// or cluster hint) that downstream components should fold into Input.Attrs
// on their own copy.
type Decision struct {
	Allow         bool
	Reasons       []string
	EnrichedAttrs map[string]string
}

// Engine is implemented by anything that can evaluate a policy Input.
// The router composes chains of Engines (e.g. tenant allowlist, then
// data-scope rules, then tool-permission rules) via All.
type Engine interface {
	Check(in Input) Decision
}

// EngineFunc adapts a plain function to Engine.
type EngineFunc func(in Input) Decision

func (f EngineFunc) Check(in Input) Decision { return f(in) }

// All runs engines in order and short-circuits on the first deny,
// merging EnrichedAttrs from every engine that ran (including the one
// that denied) so callers can log why.
func All(engines ...Engine) Engine {
	return EngineFunc(func(in Input) Decision {
		merged := map[string]string{}
		for _, e := range engines {
			d := e.Check(in)
			for k, v := range d.EnrichedAttrs {
				merged[k] = v
			}
			if !d.Allow {
				return Decision{Allow: false, Reasons: d.Reasons, EnrichedAttrs: merged}
			}
		}
		return Decision{Allow: true, EnrichedAttrs: merged}
	})
}
