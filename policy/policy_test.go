// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSecurityGroupEngineDeniesUnlisted(t *testing.T) {
	e := SecurityGroupEngine{Allowed: []string{"us-eng"}}
	d := e.Check(Input{SecurityGroups: []string{"us-eng", "eu-legal"}})
	require.False(t, d.Allow)
	require.NotEmpty(t, d.Reasons)
}

func TestDataScopeEngineRestrictsTaskType(t *testing.T) {
	e := DataScopeEngine{AllowedTaskTypes: map[string][]string{"restricted": {"summarize"}}}
	require.True(t, e.Check(Input{DataScope: "restricted", TaskType: "summarize"}).Allow)
	require.False(t, e.Check(Input{DataScope: "restricted", TaskType: "generate"}).Allow)
	require.True(t, e.Check(Input{DataScope: "public", TaskType: "generate"}).Allow)
}

func TestToolPermissionEngineChecksGrant(t *testing.T) {
	e := ToolPermissionEngine{GrantedByTenant: map[string][]string{"acme": {"search"}}}
	require.True(t, e.Check(Input{Tenant: "acme", ToolPermissions: []string{"search"}}).Allow)
	require.False(t, e.Check(Input{Tenant: "acme", ToolPermissions: []string{"exec"}}).Allow)
}

func TestAllShortCircuitsOnFirstDeny(t *testing.T) {
	eng := All(
		ClusterHintEngine{Default: "reviewer"},
		SecurityGroupEngine{Allowed: []string{"us-eng"}},
		ToolPermissionEngine{GrantedByTenant: map[string][]string{}},
	)
	d := eng.Check(Input{SecurityGroups: []string{"eu-legal"}})
	require.False(t, d.Allow)
	require.Equal(t, "reviewer", d.EnrichedAttrs["cluster_hint"])
}

func TestAllAllowsWhenEveryEngineAllows(t *testing.T) {
	eng := All(
		ClusterHintEngine{ClusterByTaskType: map[string]string{"summarize": "summarizer"}},
		SecurityGroupEngine{},
	)
	d := eng.Check(Input{TaskType: "summarize"})
	require.True(t, d.Allow)
	require.Equal(t, "summarizer", d.EnrichedAttrs["cluster_hint"])
}

func TestAllStopsCallingEnginesAfterMockedDeny(t *testing.T) {
	ctrl := gomock.NewController(t)

	denier := NewMockEngine(ctrl)
	denier.EXPECT().
		Check(gomock.Any()).
		Return(Decision{Allow: false, Reasons: []string{"mocked deny"}})

	neverCalled := NewMockEngine(ctrl)
	// No .EXPECT() set on neverCalled: gomock fails the test if it is
	// invoked at all, proving All short-circuits on the first deny.

	eng := All(denier, neverCalled)
	d := eng.Check(Input{Tenant: "acme"})
	require.False(t, d.Allow)
	require.Equal(t, []string{"mocked deny"}, d.Reasons)
}
