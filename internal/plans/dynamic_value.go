// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package plans

import (
	"github.com/zclconf/go-cty/cty"
	ctymsgpack "github.com/zclconf/go-cty/cty/msgpack"
)

// DynamicValue is an encoded cty.Value that can be stored verbatim and
// later decoded against a schema-derived cty.Type, the same representation
// used on the wire by the provider protocol (§4.B) and at rest in the State
// Store (§4.A). Encoding with msgpack rather than plain JSON preserves the
// distinction between "null" and "unknown" via the go-cty msgpack
// extension, which matters for partially-known planned values.
type DynamicValue []byte

// NewDynamicValue encodes the given value, which must conform to the given
// type, into its DynamicValue representation.
func NewDynamicValue(val cty.Value, ty cty.Type) (DynamicValue, error) {
	raw, err := ctymsgpack.Marshal(val, ty)
	if err != nil {
		return nil, err
	}
	return DynamicValue(raw), nil
}

// Decode decodes the receiver against the given type, which should usually
// be the implied type of the schema the value was originally encoded
// against.
func (v DynamicValue) Decode(ty cty.Type) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(ty), nil
	}
	return ctymsgpack.Unmarshal([]byte(v), ty)
}

func (v DynamicValue) IsNull() bool {
	return v == nil
}
