// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"github.com/zclconf/go-cty/cty/msgpack"

	"github.com/opentofu/tofucore/internal/providers"
	"github.com/opentofu/tofucore/internal/tfdiags"
	"github.com/opentofu/tofucore/internal/tfplugin"
)

// diagFromErr wraps a Go error from a failed RPC or a failed cty
// conversion into a one-element tfdiags.Diagnostics, matching the shape
// every Provider method returns on local (non-provider) failure.
func diagFromErr(summary string, err error) tfdiags.Diagnostics {
	return tfdiags.Diagnostics{tfdiags.Sourceless(tfdiags.Error, summary, err.Error())}
}

// convertDiagnostics turns the wire Diagnostic list into tfdiags
// diagnostics (§4.B "severity, summary, detail, and optional attribute
// path"), folding the attribute path into the summary since tfdiags has no
// separate attribute-path field for RPC-originated diagnostics.
func convertDiagnostics(in []tfplugin.Diagnostic) tfdiags.Diagnostics {
	if len(in) == 0 {
		return nil
	}
	out := make(tfdiags.Diagnostics, 0, len(in))
	for _, d := range in {
		sev := tfdiags.Error
		if d.Severity == tfplugin.SeverityWarning {
			sev = tfdiags.Warning
		}
		summary := d.Summary
		if d.Attribute != nil {
			if p := d.Attribute.String(); p != "" {
				summary = fmt.Sprintf("%s (at %s)", summary, p)
			}
		}
		out = append(out, tfdiags.Sourceless(sev, summary, d.Detail))
	}
	return out
}

func convertNesting(n tfplugin.NestingMode) providers.NestingMode {
	switch n {
	case tfplugin.NestingList:
		return providers.NestingList
	case tfplugin.NestingSet:
		return providers.NestingSet
	case tfplugin.NestingMap:
		return providers.NestingMap
	case tfplugin.NestingGroup:
		return providers.NestingGroup
	default:
		return providers.NestingSingle
	}
}

// convertBlock decodes a wire Block (whose attribute types are JSON-encoded
// cty.Type, §4.B) into a providers.Block with real cty.Type values.
func convertBlock(b *tfplugin.Block) (*providers.Block, error) {
	blk := &providers.Block{
		Attributes: map[string]*providers.Attribute{},
		BlockTypes: map[string]*providers.NestedBlockType{},
	}
	if b == nil {
		return blk, nil
	}
	for _, a := range b.Attributes {
		ty, err := ctyjson.UnmarshalType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("decoding type of attribute %q: %w", a.Name, err)
		}
		blk.Attributes[a.Name] = &providers.Attribute{
			Type:      ty,
			Required:  a.Required,
			Optional:  a.Optional,
			Computed:  a.Computed,
			Sensitive: a.Sensitive,
		}
	}
	for _, nb := range b.BlockTypes {
		inner, err := convertBlock(nb.Block)
		if err != nil {
			return nil, err
		}
		blk.BlockTypes[nb.TypeName] = &providers.NestedBlockType{
			Block:    inner,
			Nesting:  convertNesting(nb.Nesting),
			MinItems: int(nb.MinItems),
			MaxItems: int(nb.MaxItems),
		}
	}
	return blk, nil
}

func convertSchema(s tfplugin.Schema) (providers.Schema, error) {
	blk, err := convertBlock(s.Block)
	if err != nil {
		return providers.Schema{}, err
	}
	return providers.Schema{Version: s.Version, Block: blk}, nil
}

// encodeDynamicValue msgpack-encodes v against ty, the wire encoding §4.B
// mandates ("every DynamicValue payload is msgpack; the JSON field is not
// populated").
func encodeDynamicValue(v cty.Value, ty cty.Type) (*tfplugin.DynamicValue, error) {
	if v == cty.NilVal {
		v = cty.NullVal(ty)
	}
	raw, err := msgpack.Marshal(v, ty)
	if err != nil {
		return nil, err
	}
	return &tfplugin.DynamicValue{Msgpack: raw}, nil
}

// decodeDynamicValue is the inverse of encodeDynamicValue. go-cty's msgpack
// decoder yields an unknown value for extension type 0 ("unknown"); each
// such value is replaced with a null of the same type, so no unknown value
// reaches the caller.
func decodeDynamicValue(v *tfplugin.DynamicValue, ty cty.Type) (cty.Value, error) {
	if v == nil || len(v.Msgpack) == 0 {
		return cty.NullVal(ty), nil
	}
	val, err := msgpack.Unmarshal(v.Msgpack, ty)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.Transform(val, func(_ cty.Path, elem cty.Value) (cty.Value, error) {
		if !elem.IsKnown() {
			return cty.NullVal(elem.Type()), nil
		}
		return elem, nil
	})
}

// convertRequiresReplace renders each wire AttributePath as a cty.Path so
// callers can compare it against the resource's current state tree.
func convertRequiresReplace(paths []*tfplugin.AttributePath) []cty.Path {
	if len(paths) == 0 {
		return nil
	}
	out := make([]cty.Path, 0, len(paths))
	for _, p := range paths {
		var path cty.Path
		for _, s := range p.Steps {
			switch {
			case s.AttributeName != "":
				path = path.GetAttr(s.AttributeName)
			case s.HasElementKeyInt:
				path = path.Index(cty.NumberIntVal(s.ElementKeyInt))
			default:
				path = path.Index(cty.StringVal(s.ElementKeyString))
			}
		}
		out = append(out, path)
	}
	return out
}

func isNullOrNil(v cty.Value) bool {
	return v == cty.NilVal || v.IsNull()
}
