// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

import "fmt"

// SecurityGroupEngine denies a request whose SecurityGroups are not a
// subset of Allowed. Empty Allowed means no restriction.
type SecurityGroupEngine struct {
	Allowed []string
}

func (e SecurityGroupEngine) Check(in Input) Decision {
	if len(e.Allowed) == 0 {
		return Decision{Allow: true}
	}
	allowed := make(map[string]struct{}, len(e.Allowed))
	for _, g := range e.Allowed {
		allowed[g] = struct{}{}
	}
	for _, g := range in.SecurityGroups {
		if _, ok := allowed[g]; !ok {
			return Decision{Allow: false, Reasons: []string{fmt.Sprintf("security group %q not permitted", g)}}
		}
	}
	return Decision{Allow: true}
}

// DataScopeEngine denies any task_type not allowed for the request's
// data_scope, e.g. a "restricted" data scope may only ever route to
// task types on an explicit allowlist.
type DataScopeEngine struct {
	// AllowedTaskTypes maps data_scope -> permitted task_types. A scope
	// absent from the map is unrestricted.
	AllowedTaskTypes map[string][]string
}

func (e DataScopeEngine) Check(in Input) Decision {
	allowed, restricted := e.AllowedTaskTypes[in.DataScope]
	if !restricted {
		return Decision{Allow: true}
	}
	for _, t := range allowed {
		if t == in.TaskType {
			return Decision{Allow: true}
		}
	}
	return Decision{Allow: false, Reasons: []string{fmt.Sprintf("task_type %q not permitted for data_scope %q", in.TaskType, in.DataScope)}}
}

// ToolPermissionEngine denies a request asking for a tool not present in
// the tenant's grant set.
type ToolPermissionEngine struct {
	// GrantedByTenant maps tenant -> granted tool names. A tenant absent
	// from the map has no tool access.
	GrantedByTenant map[string][]string
}

func (e ToolPermissionEngine) Check(in Input) Decision {
	if len(in.ToolPermissions) == 0 {
		return Decision{Allow: true}
	}
	granted := make(map[string]struct{})
	for _, t := range e.GrantedByTenant[in.Tenant] {
		granted[t] = struct{}{}
	}
	for _, want := range in.ToolPermissions {
		if _, ok := granted[want]; !ok {
			return Decision{Allow: false, Reasons: []string{fmt.Sprintf("tenant %q lacks tool permission %q", in.Tenant, want)}}
		}
	}
	return Decision{Allow: true}
}

// ClusterHintEngine enriches the decision with a cluster_hint attr
// derived from task_type, for BuildPlan's ClusterHint input, without
// itself ever denying.
type ClusterHintEngine struct {
	ClusterByTaskType map[string]string
	Default           string
}

func (e ClusterHintEngine) Check(in Input) Decision {
	hint := e.Default
	if c, ok := e.ClusterByTaskType[in.TaskType]; ok {
		hint = c
	}
	return Decision{Allow: true, EnrichedAttrs: map[string]string{"cluster_hint": hint}}
}
