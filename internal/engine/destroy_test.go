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
)

func TestDestroy_RemovesResourcePresentInState(t *testing.T) {
	store := newFakeStore()
	mgr := newFakeProviderManager()
	provider := &stubResourceProvider{}
	mgr.register("hashicorp/widget", widgetSchemaResponse(), provider)
	e := newTestEngine(store, mgr)

	seedWidget(t, store, "a", "alpha")

	in := Inputs{
		Providers: []config.Provider{{Source: "hashicorp/widget"}},
		Resources: []config.Resource{
			{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a", ProviderSource: "hashicorp/widget"},
		},
	}

	result, diags := e.Destroy(context.Background(), in)
	require.False(t, diags.HasErrors(), "%s", diags)
	assert.Equal(t, 1, result.Destroyed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, provider.applyCalls)

	_, err := store.GetResource(context.Background(), "ws-1", "widget.a")
	assert.Error(t, err, "destroyed resource must no longer be in the store")
}

func TestDestroy_SilentlySkipsResourceAbsentFromState(t *testing.T) {
	store := newFakeStore()
	mgr := newFakeProviderManager()
	provider := &stubResourceProvider{}
	mgr.register("hashicorp/widget", widgetSchemaResponse(), provider)
	e := newTestEngine(store, mgr)

	in := Inputs{
		Providers: []config.Provider{{Source: "hashicorp/widget"}},
		Resources: []config.Resource{
			{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "ghost", ProviderSource: "hashicorp/widget"},
		},
	}

	result, diags := e.Destroy(context.Background(), in)
	require.False(t, diags.HasErrors(), "%s", diags)
	assert.Equal(t, 0, result.Destroyed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, provider.planCalls, "a resource with nothing in the store never reaches the provider")
}

func TestDestroy_WalksInReverseDependencyOrder(t *testing.T) {
	store := newFakeStore()
	mgr := newFakeProviderManager()
	provider := &stubResourceProvider{}
	mgr.register("hashicorp/widget", widgetSchemaResponse(), provider)
	e := newTestEngine(store, mgr)

	seedWidget(t, store, "a", "alpha")
	seedWidget(t, store, "b", "beta")

	in := Inputs{
		Providers: []config.Provider{{Source: "hashicorp/widget"}},
		Resources: []config.Resource{
			{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a", ProviderSource: "hashicorp/widget"},
			{
				Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b",
				ProviderSource: "hashicorp/widget",
				Config:         map[string]hcl.Expression{"name": mustExpr(t, "widget.a.computed_id")},
			},
		},
	}

	result, diags := e.Destroy(context.Background(), in)
	require.False(t, diags.HasErrors(), "%s", diags)
	assert.Equal(t, 2, result.Destroyed)
	assert.Equal(t, 0, result.Failed)

	_, errA := store.GetResource(context.Background(), "ws-1", "widget.a")
	_, errB := store.GetResource(context.Background(), "ws-1", "widget.b")
	assert.Error(t, errA)
	assert.Error(t, errB)

	runs := store.runRes[result.RunID]
	require.Len(t, runs, 2)
	assert.Equal(t, "widget.b", runs[0].Address, "the dependent is destroyed first")
	assert.Equal(t, "widget.a", runs[1].Address)
}
