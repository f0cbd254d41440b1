// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/require"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/config"
)

func TestDump_RendersEveryNodeNestedUnderItsDependent(t *testing.T) {
	resources := []config.Resource{
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"},
		{
			Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b",
			Config: map[string]hcl.Expression{"ref": mustExpr(t, "widget.a.id")},
		},
	}
	g, diags := Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	out := g.Dump()
	require.Contains(t, out, "widget.b")
	require.Contains(t, out, "widget.a")

	// widget.a must be nested (indented) under widget.b, not a sibling root,
	// since b depends on a.
	bIdx := strings.Index(out, "widget.b")
	aIdx := strings.Index(out, "widget.a")
	require.Greater(t, aIdx, bIdx, "expected widget.a to appear nested after widget.b in the dump")
}

func TestSortTopological_MatchesReverseOfSortReverse(t *testing.T) {
	resources := []config.Resource{
		{Mode: addrs.ManagedResourceMode, Type: "widget", Name: "a"},
		{
			Mode: addrs.ManagedResourceMode, Type: "widget", Name: "b",
			Config: map[string]hcl.Expression{"ref": mustExpr(t, "widget.a.id")},
		},
	}
	g, diags := Build(resources, nil, nil)
	require.False(t, diags.HasErrors(), "%s", diags)

	fwd := g.SortTopological()
	rev := g.SortReverse()

	reversedFwd := make([]int, len(fwd))
	for i, v := range fwd {
		reversedFwd[len(fwd)-1-i] = v
	}

	if diff := cmp.Diff(reversedFwd, rev); diff != "" {
		t.Errorf("reverse sort does not match reversed forward sort (-want +got):\n%s", diff)
	}
}
