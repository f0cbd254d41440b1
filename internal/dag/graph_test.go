// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/config"
)

func mustExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.tf", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "%s", diags)
	return expr
}

func TestBuild_SimpleCreateShape(t *testing.T) {
	resources := []config.Resource{
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"},
	}
	g, diags := Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)
	require.Len(t, g.Nodes, 1)
	require.Equal(t, "widget.a", g.Nodes[0].Key())
	require.Empty(t, g.DependsOn(0))
}

func TestBuild_ForEachFanOut(t *testing.T) {
	resources := []config.Resource{
		{
			Mode:        addrs.ManagedResourceMode,
			Type:        "widget",
			Name:        "a",
			ForEachExpr: mustExpr(t, `{"x": 1, "y": 2, "z": 3}`),
		},
	}
	g, diags := Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)
	require.Len(t, g.Nodes, 3)
	for _, n := range g.Nodes {
		require.Empty(t, g.DependsOn(g.NodeIndex(n.Key())))
	}
}

func TestBuild_LinearChain(t *testing.T) {
	resources := []config.Resource{
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"},
		{
			Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b",
			Config: map[string]hcl.Expression{"input": mustExpr(t, "widget.a.id")},
		},
		{
			Mode: addrs.ManagedResourceMode, Type: "widget", Name: "c",
			Config: map[string]hcl.Expression{"input": mustExpr(t, "widget.b.id")},
		},
	}
	g, diags := Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	order := g.SortTopological()
	pos := map[string]int{}
	for i, idx := range order {
		pos[g.Nodes[idx].Key()] = i
	}
	require.Less(t, pos["widget.a"], pos["widget.b"])
	require.Less(t, pos["widget.b"], pos["widget.c"])
}

func TestBuild_CycleDetected(t *testing.T) {
	resources := []config.Resource{
		{
			Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a",
			Config: map[string]hcl.Expression{"input": mustExpr(t, "widget.b.id")},
		},
		{
			Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b",
			Config: map[string]hcl.Expression{"input": mustExpr(t, "widget.a.id")},
		},
	}
	_, diags := Build(resources, nil, nil)
	require.True(t, diags.HasErrors())
}

func TestBuild_MultiInstanceBareReferenceRejected(t *testing.T) {
	resources := []config.Resource{
		{
			Mode:      addrs.ManagedResourceMode,
			Type:      "widget",
			Name:      "a",
			CountExpr: mustExpr(t, "2"),
		},
		{
			Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b",
			Config: map[string]hcl.Expression{"input": mustExpr(t, "widget.a.id")},
		},
	}
	_, diags := Build(resources, nil, nil)
	require.True(t, diags.HasErrors())
}

func TestBuild_MultiInstanceIndexedReferenceAccepted(t *testing.T) {
	resources := []config.Resource{
		{
			Mode:      addrs.ManagedResourceMode,
			Type:      "widget",
			Name:      "a",
			CountExpr: mustExpr(t, "2"),
		},
		{
			Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b",
			Config: map[string]hcl.Expression{"input": mustExpr(t, "widget.a[0].id")},
		},
	}
	g, diags := Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	bIdx := g.NodeIndex("widget.b")
	require.NotEqual(t, -1, bIdx)
	require.Contains(t, g.DependsOn(bIdx), g.NodeIndex("widget.a[0]"))
}

func TestBuild_OutputDependsOnResource(t *testing.T) {
	resources := []config.Resource{
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"},
	}
	outputs := []config.Output{
		{Name: "id", ValueExpr: mustExpr(t, "widget.a.id")},
	}
	g, diags := Build(resources, outputs, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	outIdx := g.NodeIndex("output.id")
	require.NotEqual(t, -1, outIdx)
	require.Contains(t, g.DependsOn(outIdx), g.NodeIndex("widget.a"))
}

func TestBuild_DependsOnWithoutReference(t *testing.T) {
	resources := []config.Resource{
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"},
		{
			Mode:      addrs.ManagedResourceMode,
			Type:      "widget",
			Name:      "b",
			DependsOn: []hcl.Traversal{mustExpr(t, "widget.a").Variables()[0]},
		},
	}
	g, diags := Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	bIdx := g.NodeIndex("widget.b")
	require.Contains(t, g.DependsOn(bIdx), g.NodeIndex("widget.a"))
}

func TestBuild_SelfLoopSuppressedWithinForEach(t *testing.T) {
	resources := []config.Resource{
		{
			Mode:        addrs.ManagedResourceMode,
			Type:        "widget",
			Name:        "a",
			ForEachExpr: mustExpr(t, `{"x": 1, "y": 2}`),
			Config:      map[string]hcl.Expression{"peer": mustExpr(t, "widget.a")},
		},
	}
	g, diags := Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)
	for i := range g.Nodes {
		require.NotContains(t, g.DependsOn(i), i)
	}
}

func TestBuild_VarDefaultDrivesCount(t *testing.T) {
	resources := []config.Resource{
		{
			Mode:      addrs.ManagedResourceMode,
			Type:      "widget",
			Name:      "a",
			CountExpr: mustExpr(t, "var.replica_count"),
		},
	}
	g, diags := Build(resources, nil, map[string]cty.Value{
		"replica_count": cty.NumberIntVal(3),
	})
	require.False(t, diags.HasErrors(), "%s", diags)
	require.Len(t, g.Nodes, 3)
}
