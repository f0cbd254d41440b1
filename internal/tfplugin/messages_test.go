// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tfplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicValue_RoundTrips(t *testing.T) {
	in := &DynamicValue{Msgpack: []byte{0x81, 0x01, 0x02}}
	raw, err := in.Marshal()
	require.NoError(t, err)

	out := &DynamicValue{}
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, in.Msgpack, out.Msgpack)
}

func TestPlanResourceChangeRequest_RoundTrips(t *testing.T) {
	in := &PlanResourceChangeRequest{
		TypeName:         "widget",
		PriorState:       &DynamicValue{Msgpack: []byte("prior")},
		ProposedNewState: &DynamicValue{Msgpack: []byte("proposed")},
		Config:           &DynamicValue{Msgpack: []byte("config")},
		PriorPrivate:     []byte("priv"),
	}
	raw, err := in.Marshal()
	require.NoError(t, err)

	out := &PlanResourceChangeRequest{}
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, in.TypeName, out.TypeName)
	assert.Equal(t, in.PriorState.Msgpack, out.PriorState.Msgpack)
	assert.Equal(t, in.ProposedNewState.Msgpack, out.ProposedNewState.Msgpack)
	assert.Equal(t, in.PriorPrivate, out.PriorPrivate)
}

func TestPlanResourceChangeResponse_RoundTripsRequiresReplace(t *testing.T) {
	in := &PlanResourceChangeResponse{
		PlannedState: &DynamicValue{Msgpack: []byte("planned")},
		RequiresReplace: []*AttributePath{
			{Steps: []AttributePathStep{{AttributeName: "ami"}}},
			{Steps: []AttributePathStep{{AttributeName: "tags"}, {ElementKeyString: "env"}}},
		},
		PlannedPrivate: []byte("pp"),
		Diagnostics: []Diagnostic{
			{Severity: SeverityError, Summary: "boom", Detail: "details"},
		},
	}
	raw, err := in.Marshal()
	require.NoError(t, err)

	out := &PlanResourceChangeResponse{}
	require.NoError(t, out.Unmarshal(raw))
	require.Len(t, out.RequiresReplace, 2)
	assert.Equal(t, "ami", out.RequiresReplace[0].String())
	assert.Equal(t, "tags[env]", out.RequiresReplace[1].String())
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, SeverityError, out.Diagnostics[0].Severity)
	assert.Equal(t, "boom", out.Diagnostics[0].Summary)
}

func TestGetProviderSchemaResponse_RoundTrips(t *testing.T) {
	in := &GetProviderSchemaResponse{
		Provider: &Block{Version: 1, Attributes: []Attribute{
			{Name: "region", Type: []byte(`"string"`), Optional: true},
		}},
		ResourceSchemas: map[string]Schema{
			"widget": {Version: 2, Block: &Block{
				Attributes: []Attribute{{Name: "id", Type: []byte(`"string"`), Computed: true}},
				BlockTypes: []NestedBlock{{TypeName: "network", Nesting: NestingList, Block: &Block{}}},
			}},
		},
		ServerCapabilities: ServerCapabilities{PlanDestroy: true},
	}
	raw, err := in.Marshal()
	require.NoError(t, err)

	out := &GetProviderSchemaResponse{}
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, "region", out.Provider.Attributes[0].Name)
	require.Contains(t, out.ResourceSchemas, "widget")
	assert.Equal(t, int64(2), out.ResourceSchemas["widget"].Version)
	assert.Equal(t, "id", out.ResourceSchemas["widget"].Block.Attributes[0].Name)
	assert.Equal(t, "network", out.ResourceSchemas["widget"].Block.BlockTypes[0].TypeName)
	assert.True(t, out.ServerCapabilities.PlanDestroy)
}

func TestImportResourceStateResponse_RoundTrips(t *testing.T) {
	in := &ImportResourceStateResponse{
		ImportedResources: []ImportedResource{
			{TypeName: "widget", State: &DynamicValue{Msgpack: []byte("s1")}, Private: []byte("p1")},
			{TypeName: "widget", State: &DynamicValue{Msgpack: []byte("s2")}},
		},
	}
	raw, err := in.Marshal()
	require.NoError(t, err)

	out := &ImportResourceStateResponse{}
	require.NoError(t, out.Unmarshal(raw))
	require.Len(t, out.ImportedResources, 2)
	assert.Equal(t, []byte("s1"), out.ImportedResources[0].State.Msgpack)
	assert.Equal(t, []byte("p1"), out.ImportedResources[0].Private)
}

func TestClientMethod_PicksProtocolVersion(t *testing.T) {
	c5 := &Client{ProtocolVersion: 5}
	assert.Equal(t, "/tfplugin5.Provider/GetSchema", c5.method("schema"))
	assert.Equal(t, "/tfplugin5.Provider/Stop", c5.method("stop"))

	c6 := &Client{ProtocolVersion: 6}
	assert.Equal(t, "/tfplugin6.Provider/GetProviderSchema", c6.method("schema"))
	assert.Equal(t, "/tfplugin6.Provider/StopProvider", c6.method("stop"))
}
