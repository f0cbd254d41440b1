// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package walker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/config"
	"github.com/opentofu/tofucore/internal/dag"
)

func mustExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.tf", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "%s", diags)
	return expr
}

func TestWalk_LinearChainSucceeds(t *testing.T) {
	resources := []config.Resource{
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"},
		{
			Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b",
			Config: map[string]hcl.Expression{"input": mustExpr(t, "widget.a.id")},
		},
	}
	g, diags := dag.Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	var order []string
	var mu sync.Mutex

	res := Walk(context.Background(), g, func(_ context.Context, n *dag.Node) (cty.Value, error) {
		mu.Lock()
		order = append(order, n.Key())
		mu.Unlock()
		return cty.ObjectVal(map[string]cty.Value{"id": cty.StringVal(n.Key())}), nil
	}, Options{MaxParallelism: 2, Mode: ApplyMode})

	require.Equal(t, 2, res.Succeeded)
	require.Equal(t, 0, res.Failed)
	require.Equal(t, 0, res.Skipped)
	require.Equal(t, []string{"widget.a", "widget.b"}, order)
}

func TestWalk_ForEachFanOutRespectsParallelism(t *testing.T) {
	resources := []config.Resource{
		{
			Mode:        addrs.ManagedResourceMode,
			Type:        "widget",
			Name:        "a",
			ForEachExpr: mustExpr(t, `{"x": 1, "y": 2, "z": 3}`),
		},
	}
	g, diags := dag.Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	var running int32
	var maxRunning int32

	res := Walk(context.Background(), g, func(_ context.Context, n *dag.Node) (cty.Value, error) {
		cur := atomic.AddInt32(&running, 1)
		for {
			max := atomic.LoadInt32(&maxRunning)
			if cur <= max || atomic.CompareAndSwapInt32(&maxRunning, max, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return cty.NilVal, nil
	}, Options{MaxParallelism: 2, Mode: ApplyMode})

	require.Equal(t, 3, res.Succeeded)
	require.LessOrEqual(t, int(maxRunning), 2)
}

func TestWalk_FailureCascadesSkipToDependents(t *testing.T) {
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
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "independent"},
	}
	g, diags := dag.Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	res := Walk(context.Background(), g, func(_ context.Context, n *dag.Node) (cty.Value, error) {
		if n.Key() == "widget.a" {
			return cty.NilVal, errors.New("boom")
		}
		return cty.ObjectVal(map[string]cty.Value{"id": cty.StringVal(n.Key())}), nil
	}, Options{MaxParallelism: 4, Mode: ApplyMode})

	require.Equal(t, Failed, res.Nodes["widget.a"].Status)
	require.Equal(t, Skipped, res.Nodes["widget.b"].Status)
	require.Equal(t, Skipped, res.Nodes["widget.c"].Status)
	require.Equal(t, Succeeded, res.Nodes["widget.independent"].Status)
	require.Contains(t, res.Nodes["widget.b"].Reason, "widget.a")
	require.Equal(t, 2, res.Succeeded)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, 2, res.Skipped)
}

func TestWalk_LiveStatePopulatedForDependents(t *testing.T) {
	resources := []config.Resource{
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"},
		{
			Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b",
			Config: map[string]hcl.Expression{"input": mustExpr(t, "widget.a.id")},
		},
	}
	g, diags := dag.Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	res := Walk(context.Background(), g, func(_ context.Context, n *dag.Node) (cty.Value, error) {
		return cty.ObjectVal(map[string]cty.Value{"id": cty.StringVal(n.Key())}), nil
	}, Options{MaxParallelism: 1, Mode: ApplyMode})

	v, ok := res.LiveState.Get(addrs.Resource{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"}.Instance(addrs.NoKey))
	require.True(t, ok)
	require.Equal(t, "widget.a", v.GetAttr("id").AsString())
}

func TestWalk_OutputNodeRunsAfterItsDependency(t *testing.T) {
	resources := []config.Resource{
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"},
	}
	outputs := []config.Output{
		{Name: "id", ValueExpr: mustExpr(t, "widget.a.id")},
	}
	g, diags := dag.Build(resources, outputs, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	var order []string
	var mu sync.Mutex
	res := Walk(context.Background(), g, func(_ context.Context, n *dag.Node) (cty.Value, error) {
		mu.Lock()
		order = append(order, n.Key())
		mu.Unlock()
		if n.Kind == dag.OutputNode {
			return cty.NilVal, nil
		}
		return cty.ObjectVal(map[string]cty.Value{"id": cty.StringVal("v")}), nil
	}, Options{MaxParallelism: 2, Mode: ApplyMode})

	require.Equal(t, 2, res.Succeeded)
	require.Equal(t, []string{"widget.a", "output.id"}, order)
}

func TestWalk_HeartbeatEmittedForLongRunningNode(t *testing.T) {
	resources := []config.Resource{
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"},
	}
	g, diags := dag.Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	var heartbeats int32
	Walk(context.Background(), g, func(_ context.Context, n *dag.Node) (cty.Value, error) {
		time.Sleep(40 * time.Millisecond)
		return cty.NilVal, nil
	}, Options{
		MaxParallelism:    1,
		Mode:              ApplyMode,
		HeartbeatInterval: 10 * time.Millisecond,
		Progress: func(e Event) {
			if e.Kind == EventHeartbeat {
				atomic.AddInt32(&heartbeats, 1)
			}
		},
	})

	require.GreaterOrEqual(t, int(atomic.LoadInt32(&heartbeats)), 1)
}
