// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestEncodeDecodeAttributes_RoundTrips(t *testing.T) {
	v := cty.ObjectVal(map[string]cty.Value{
		"id":   cty.StringVal("i-1234"),
		"tags": cty.MapVal(map[string]cty.Value{"env": cty.StringVal("prod")}),
		"size": cty.NumberIntVal(3),
	})

	raw, err := encodeAttributes(v)
	require.NoError(t, err)

	got, err := decodeAttributes(raw)
	require.NoError(t, err)

	assert.Equal(t, cty.StringVal("i-1234"), got.GetAttr("id"))
	assert.True(t, got.GetAttr("size").Equals(cty.NumberIntVal(3)).True())
}

func TestEncodeAttributes_NilValBecomesNull(t *testing.T) {
	raw, err := encodeAttributes(cty.NilVal)
	require.NoError(t, err)

	got, err := decodeAttributes(raw)
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestDecodeAttributes_EmptyStringIsNull(t *testing.T) {
	got, err := decodeAttributes("")
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestEncodeDecodeSensitivePaths_RoundTrips(t *testing.T) {
	paths := []string{"password", "network.0.address"}
	raw, err := encodeSensitivePaths(paths)
	require.NoError(t, err)

	got, err := decodeSensitivePaths(raw)
	require.NoError(t, err)
	assert.Equal(t, paths, got)
}

func TestEncodeSensitivePaths_EmptyIsEmptyArray(t *testing.T) {
	raw, err := encodeSensitivePaths(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	got, err := decodeSensitivePaths(raw)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSniffQueryValue_DecodesNestedJSON(t *testing.T) {
	decoded := sniffQueryValue(`{"id":"i-1","count":2}`)
	m, ok := decoded.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "i-1", m["id"])
}

func TestSniffQueryValue_LeavesPlainStringsAlone(t *testing.T) {
	assert.Equal(t, "just text", sniffQueryValue("just text"))
}

func TestSniffQueryValue_DecodesByteSlices(t *testing.T) {
	decoded := sniffQueryValue([]byte(`["a","b"]`))
	s, ok := decoded.([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a", "b"}, s)
}

func TestSnapshotValueToCty_ConvertsNestedMap(t *testing.T) {
	v, err := snapshotValueToCty(map[string]interface{}{
		"id":   "i-1",
		"tags": map[string]interface{}{"env": "prod"},
	})
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("i-1"), v.GetAttr("id"))
}

func TestSnapshotAddress_NoKeyVsIndexed(t *testing.T) {
	addr, key := snapshotAddress(externalResource{Type: "widget", Name: "a"}, nil)
	assert.Equal(t, "widget.a", addr)
	assert.Equal(t, "", key)

	addr, key = snapshotAddress(externalResource{Type: "widget", Name: "a"}, float64(2))
	assert.Equal(t, "widget.a[2]", addr)
	assert.Equal(t, "2", key)

	addr, key = snapshotAddress(externalResource{Type: "widget", Name: "a"}, "east")
	assert.Equal(t, `widget.a["east"]`, addr)
	assert.Equal(t, "east", key)
}
