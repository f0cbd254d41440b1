// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/opentofu/tofucore/internal/tfplugin"
)

func mustMarshalType(t *testing.T, ty cty.Type) []byte {
	t.Helper()
	b, err := ctyjson.MarshalType(ty)
	require.NoError(t, err)
	return b
}

func TestConvertDiagnostics_MapsSeverityAndFoldsAttributePath(t *testing.T) {
	in := []tfplugin.Diagnostic{
		{Severity: tfplugin.SeverityError, Summary: "bad value", Detail: "must be positive", Attribute: &tfplugin.AttributePath{
			Steps: []tfplugin.AttributePathStep{{AttributeName: "size"}},
		}},
		{Severity: tfplugin.SeverityWarning, Summary: "deprecated", Detail: "use new_field instead"},
	}
	out := convertDiagnostics(in)
	require.Len(t, out, 2)
	assert.Contains(t, out[0].Summary, "bad value")
	assert.Contains(t, out[0].Summary, "size")
	assert.Equal(t, "must be positive", out[0].Detail)
	assert.True(t, out.HasErrors())
}

func TestConvertDiagnostics_EmptyIsNil(t *testing.T) {
	assert.Nil(t, convertDiagnostics(nil))
}

func TestConvertBlock_DecodesAttributeTypesAndNestedBlocks(t *testing.T) {
	wire := &tfplugin.Block{
		Version: 2,
		Attributes: []tfplugin.Attribute{
			{Name: "id", Type: mustMarshalType(t, cty.String), Computed: true},
			{Name: "size", Type: mustMarshalType(t, cty.Number), Optional: true},
		},
		BlockTypes: []tfplugin.NestedBlock{
			{
				TypeName: "network",
				Nesting:  tfplugin.NestingList,
				MinItems: 0,
				MaxItems: 2,
				Block: &tfplugin.Block{
					Attributes: []tfplugin.Attribute{
						{Name: "cidr", Type: mustMarshalType(t, cty.String), Required: true},
					},
				},
			},
		},
	}

	blk, err := convertBlock(wire)
	require.NoError(t, err)
	require.Contains(t, blk.Attributes, "id")
	assert.True(t, blk.Attributes["id"].Computed)
	assert.Equal(t, cty.Number, blk.Attributes["size"].Type)

	require.Contains(t, blk.BlockTypes, "network")
	nb := blk.BlockTypes["network"]
	assert.Equal(t, 2, nb.MaxItems)
	require.Contains(t, nb.Block.Attributes, "cidr")

	ty := blk.ImpliedType()
	assert.True(t, ty.IsObjectType())
	atys := ty.AttributeTypes()
	assert.True(t, atys["network"].IsListType())
}

func TestEncodeDecodeDynamicValue_RoundTrips(t *testing.T) {
	ty := cty.Object(map[string]cty.Type{
		"id":   cty.String,
		"size": cty.Number,
	})
	val := cty.ObjectVal(map[string]cty.Value{
		"id":   cty.StringVal("i-1"),
		"size": cty.NumberIntVal(3),
	})

	dv, err := encodeDynamicValue(val, ty)
	require.NoError(t, err)
	require.NotEmpty(t, dv.Msgpack)

	out, err := decodeDynamicValue(dv, ty)
	require.NoError(t, err)
	assert.True(t, out.RawEquals(val))
}

func TestEncodeDynamicValue_NilBecomesNull(t *testing.T) {
	ty := cty.String
	dv, err := encodeDynamicValue(cty.NilVal, ty)
	require.NoError(t, err)

	out, err := decodeDynamicValue(dv, ty)
	require.NoError(t, err)
	assert.True(t, out.IsNull())
}

func TestDecodeDynamicValue_EmptyMsgpackIsNull(t *testing.T) {
	out, err := decodeDynamicValue(&tfplugin.DynamicValue{}, cty.String)
	require.NoError(t, err)
	assert.True(t, out.IsNull())

	out, err = decodeDynamicValue(nil, cty.String)
	require.NoError(t, err)
	assert.True(t, out.IsNull())
}

func TestConvertRequiresReplace_RendersDottedAndIndexedPaths(t *testing.T) {
	paths := convertRequiresReplace([]*tfplugin.AttributePath{
		{Steps: []tfplugin.AttributePathStep{{AttributeName: "ami"}}},
		{Steps: []tfplugin.AttributePathStep{{AttributeName: "tags"}, {ElementKeyString: "env"}}},
	})
	require.Len(t, paths, 2)

	val := cty.ObjectVal(map[string]cty.Value{
		"ami": cty.StringVal("ami-1"),
		"tags": cty.MapVal(map[string]cty.Value{
			"env": cty.StringVal("prod"),
		}),
	})
	got, err := paths[0].Apply(val)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("ami-1"), got)

	got, err = paths[1].Apply(val)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("prod"), got)
}

func TestIsNullOrNil(t *testing.T) {
	assert.True(t, isNullOrNil(cty.NilVal))
	assert.True(t, isNullOrNil(cty.NullVal(cty.String)))
	assert.False(t, isNullOrNil(cty.StringVal("x")))
}
