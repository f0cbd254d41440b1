// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package addrs

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTraversal(t *testing.T, src string) hcl.Traversal {
	t.Helper()
	expr, diags := hclsyntax.ParseTraversalAbs([]byte(src), "test.tf", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return expr
}

func TestParseRefResource(t *testing.T) {
	ref, err := ParseRef(parseTraversal(t, "aws_instance.web.id"))
	require.NoError(t, err)

	inst, ok := ref.Subject.(ResourceInstance)
	require.True(t, ok)
	assert.Equal(t, "aws_instance", inst.Resource.Type)
	assert.Equal(t, "web", inst.Resource.Name)
	assert.Equal(t, NoKey, inst.Key)
	assert.Equal(t, ".id", TraversalStr(ref.Remaining))
}

func TestParseRefResourceIndexed(t *testing.T) {
	ref, err := ParseRef(parseTraversal(t, "aws_instance.web[1].id"))
	require.NoError(t, err)

	inst, ok := ref.Subject.(ResourceInstance)
	require.True(t, ok)
	assert.Equal(t, IntKey(1), inst.Key)
}

func TestParseRefDataResource(t *testing.T) {
	ref, err := ParseRef(parseTraversal(t, "data.aws_ami.base.id"))
	require.NoError(t, err)

	inst, ok := ref.Subject.(ResourceInstance)
	require.True(t, ok)
	assert.Equal(t, DataResourceMode, inst.Resource.Mode)
	assert.Equal(t, "aws_ami", inst.Resource.Type)
}

func TestParseRefVar(t *testing.T) {
	ref, err := ParseRef(parseTraversal(t, "var.region"))
	require.NoError(t, err)
	assert.Equal(t, InputVariable{Name: "region"}, ref.Subject)
}

func TestParseRefReservedTokens(t *testing.T) {
	tests := []struct {
		src  string
		want Referenceable
	}{
		{"local.name", LocalValue{Name: "name"}},
		{"count.index", CountAttr{Name: "index"}},
		{"each.key", ForEachAttr{Name: "key"}},
		{"path.module", PathAttr{Name: "module"}},
	}
	for _, tt := range tests {
		ref, err := ParseRef(parseTraversal(t, tt.src))
		require.NoError(t, err)
		assert.Equal(t, tt.want, ref.Subject)
	}
}

func TestParseRefSelf(t *testing.T) {
	ref, err := ParseRef(parseTraversal(t, "self.id"))
	require.NoError(t, err)
	assert.Equal(t, Self, ref.Subject)
}

func TestParseRefUnmodeled(t *testing.T) {
	ref, err := ParseRef(parseTraversal(t, "terraform.workspace"))
	require.NoError(t, err)
	assert.Equal(t, UnmodeledAttr{Name: "terraform.workspace"}, ref.Subject)
}

func TestIsReservedRootName(t *testing.T) {
	assert.True(t, IsReservedRootName("var"))
	assert.True(t, IsReservedRootName("self"))
	assert.False(t, IsReservedRootName("aws_instance"))
}
