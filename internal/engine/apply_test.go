// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/config"
	"github.com/opentofu/tofucore/internal/plans"
)

func TestApply_CreatesNewResourceAndPersistsIt(t *testing.T) {
	store := newFakeStore()
	mgr := newFakeProviderManager()
	provider := &stubResourceProvider{}
	mgr.register("hashicorp/widget", widgetSchemaResponse(), provider)
	e := newTestEngine(store, mgr)

	in := Inputs{
		Providers: []config.Provider{{Source: "hashicorp/widget"}},
		Resources: []config.Resource{
			{
				Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a",
				ProviderSource: "hashicorp/widget",
				Config:         map[string]hcl.Expression{"name": mustExpr(t, `"alpha"`)},
			},
		},
	}

	result, diags := e.Apply(context.Background(), in)
	require.False(t, diags.HasErrors(), "%s", diags)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, provider.applyCalls)

	row, err := store.GetResource(context.Background(), "ws-1", "widget.a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", row.Attributes.GetAttr("name").AsString())
	assert.Len(t, mgr.configureLog, 1, "the declared provider must be configured once before the walk")
}

func TestApply_RequiresReplaceRunsDestroyThenCreate(t *testing.T) {
	store := newFakeStore()
	mgr := newFakeProviderManager()
	provider := &stubResourceProvider{requireReplaceOn: "name"}
	mgr.register("hashicorp/widget", widgetSchemaResponse(), provider)
	e := newTestEngine(store, mgr)

	seedWidget(t, store, "a", "alpha")

	in := Inputs{
		Providers: []config.Provider{{Source: "hashicorp/widget"}},
		Resources: []config.Resource{
			{
				Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a",
				ProviderSource: "hashicorp/widget",
				Config:         map[string]hcl.Expression{"name": mustExpr(t, `"beta"`)},
			},
		},
	}

	result, diags := e.Apply(context.Background(), in)
	require.False(t, diags.HasErrors(), "%s", diags)
	assert.Equal(t, 1, result.Added, "a replace counts toward Added, per the Creates+Replaces formula")
	assert.Equal(t, 3, provider.planCalls, "the initial decision plan, plus the replacement sub-protocol's destroy-plan and create-plan")
	assert.Equal(t, 2, provider.applyCalls, "the replacement sub-protocol's apply-destroy and apply-create")

	row, err := store.GetResource(context.Background(), "ws-1", "widget.a")
	require.NoError(t, err)
	assert.Equal(t, "beta", row.Attributes.GetAttr("name").AsString())
}

func TestApply_ForwardReferenceSeesSiblingLiveState(t *testing.T) {
	store := newFakeStore()
	mgr := newFakeProviderManager()
	provider := &stubResourceProvider{}
	mgr.register("hashicorp/widget", widgetSchemaResponse(), provider)
	e := newTestEngine(store, mgr)

	in := Inputs{
		Providers: []config.Provider{{Source: "hashicorp/widget"}},
		Resources: []config.Resource{
			{
				Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a",
				ProviderSource: "hashicorp/widget",
				Config:         map[string]hcl.Expression{"name": mustExpr(t, `"alpha"`)},
			},
			{
				Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b",
				ProviderSource: "hashicorp/widget",
				Config:         map[string]hcl.Expression{"name": mustExpr(t, "widget.a.computed_id")},
			},
		},
	}

	result, diags := e.Apply(context.Background(), in)
	require.False(t, diags.HasErrors(), "%s", diags)
	require.Equal(t, 0, result.Failed)

	row, err := store.GetResource(context.Background(), "ws-1", "widget.b")
	require.NoError(t, err)
	assert.Equal(t, "computed-alpha", row.Attributes.GetAttr("name").AsString())
}

func TestApply_PersistsOutputsAfterWalk(t *testing.T) {
	store := newFakeStore()
	mgr := newFakeProviderManager()
	provider := &stubResourceProvider{}
	mgr.register("hashicorp/widget", widgetSchemaResponse(), provider)
	e := newTestEngine(store, mgr)

	in := Inputs{
		Providers: []config.Provider{{Source: "hashicorp/widget"}},
		Resources: []config.Resource{
			{
				Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a",
				ProviderSource: "hashicorp/widget",
				Config:         map[string]hcl.Expression{"name": mustExpr(t, `"alpha"`)},
			},
		},
		Outputs: []config.Output{
			{Name: "id", ValueExpr: mustExpr(t, "widget.a.computed_id")},
		},
	}

	_, diags := e.Apply(context.Background(), in)
	require.False(t, diags.HasErrors(), "%s", diags)

	out, ok := store.outputs["id"]
	require.True(t, ok, "output must be persisted after a successful apply")
	assert.Equal(t, "computed-alpha", out.Value.AsString())
}

func TestApply_SummaryActionsReconcileWithPlanSummary(t *testing.T) {
	store := newFakeStore()
	mgr := newFakeProviderManager()
	provider := &stubResourceProvider{}
	mgr.register("hashicorp/widget", widgetSchemaResponse(), provider)
	e := newTestEngine(store, mgr)

	in := Inputs{
		Providers: []config.Provider{{Source: "hashicorp/widget"}},
		Resources: []config.Resource{
			{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a", ProviderSource: "hashicorp/widget",
				Config: map[string]hcl.Expression{"name": mustExpr(t, `"alpha"`)}},
			{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b", ProviderSource: "hashicorp/widget",
				Config: map[string]hcl.Expression{"name": mustExpr(t, `"beta"`)}},
		},
	}

	result, diags := e.Apply(context.Background(), in)
	require.False(t, diags.HasErrors(), "%s", diags)

	summary := Summarize(result.Changes)
	assert.Equal(t, 2, summary.Creates)
	assert.Equal(t, summary.Creates+summary.Replaces, result.Added)
	assert.Equal(t, plans.Create, result.Changes.Resources[0].Action)
}
