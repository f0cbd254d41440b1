// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// encodeAttributes serializes a resource instance's attribute tree to the
// JSON text the `attributes` column stores (§4.A "attributes as an untyped
// value tree"). Storing JSON text rather than a binary codec is what lets
// query_raw (§4.A) sniff and re-expose nested attributes from an arbitrary
// SQL query without already knowing the resource's schema.
func encodeAttributes(v cty.Value) (string, error) {
	if v == cty.NilVal {
		v = cty.NullVal(cty.DynamicPseudoType)
	}
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", fmt.Errorf("encoding attributes: %w", err)
	}
	return string(raw), nil
}

// decodeAttributes reconstructs a cty.Value from stored JSON without
// requiring the originating provider schema, using cty/json's own
// ImpliedType inference — the same schema-less round-trip this package's
// sibling internal/lang/functions.go jsondecode() builtin relies on. A
// caller that does have the resource's schema at hand (e.g. before calling
// plan_resource_change) is expected to re-shape/coerce the result against
// it; this function only guarantees *a* valid cty.Value comes back.
func decodeAttributes(raw string) (cty.Value, error) {
	if raw == "" {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	ty, err := ctyjson.ImpliedType([]byte(raw))
	if err != nil {
		return cty.NilVal, fmt.Errorf("decoding attributes: %w", err)
	}
	v, err := ctyjson.Unmarshal([]byte(raw), ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("decoding attributes: %w", err)
	}
	return v, nil
}

// encodeSensitivePaths renders a set of sensitive attribute paths (§3
// "list of sensitive attribute paths") as a JSON string array, each entry a
// dotted/indexed path such as "network.0.address".
func encodeSensitivePaths(paths []string) (string, error) {
	if len(paths) == 0 {
		return "[]", nil
	}
	v := cty.ListValEmpty(cty.String)
	if len(paths) > 0 {
		elems := make([]cty.Value, len(paths))
		for i, p := range paths {
			elems[i] = cty.StringVal(p)
		}
		v = cty.ListVal(elems)
	}
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", fmt.Errorf("encoding sensitive_attrs: %w", err)
	}
	return string(raw), nil
}

func decodeSensitivePaths(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	ty, err := ctyjson.ImpliedType([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding sensitive_attrs: %w", err)
	}
	v, err := ctyjson.Unmarshal([]byte(raw), ty)
	if err != nil {
		return nil, fmt.Errorf("decoding sensitive_attrs: %w", err)
	}
	if v.IsNull() {
		return nil, nil
	}
	var out []string
	it := v.ElementIterator()
	for it.Next() {
		_, ev := it.Element()
		out = append(out, ev.AsString())
	}
	return out, nil
}
