// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package shape implements the Schema Shaper (spec.md §4.D): transforming
// a sparse user-supplied cty.Value into a value that conforms exactly to a
// provider's schema block, inserting nulls/empty collections for anything
// the user omitted and coercing primitive values to their declared cty
// type along the way.
//
// Grounded on the teacher's internal/plugin/convert package, which performs
// the same "always send every schema-defined attribute" defaulting before
// handing a config to a provider; rewritten here as a standalone pass over
// providers.Block rather than against the teacher's configschema.Block,
// and with the primitive coercion rules spelled out explicitly (§4.D) since
// this engine accepts already-sparse cty.Value trees straight from the
// Expression Evaluator rather than HCL bodies.
package shape

import (
	"strconv"

	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/providers"
)

// Shape coerces val (possibly cty.NilVal/NullVal for a wholly-absent
// config) into a value conforming to block's implied type, per the
// algorithm in §4.D: every attribute present with a null default for
// anything absent, and every nested block type defaulted according to its
// nesting mode.
func Shape(val cty.Value, block *providers.Block) cty.Value {
	if block == nil {
		return val
	}
	return shapeObject(val, block)
}

func shapeObject(val cty.Value, block *providers.Block) cty.Value {
	attrs := map[string]cty.Value{}

	var obj map[string]cty.Value
	if !val.IsNull() && val != cty.NilVal && (val.Type().IsObjectType() || val.Type().IsMapType()) {
		obj = map[string]cty.Value{}
		it := val.ElementIterator()
		for it.Next() {
			k, v := it.Element()
			obj[k.AsString()] = v
		}
	}

	for name, attr := range block.Attributes {
		var v cty.Value
		if obj != nil {
			if found, ok := obj[name]; ok {
				v = found
			} else {
				v = cty.NullVal(attr.Type)
			}
		} else {
			v = cty.NullVal(attr.Type)
		}
		attrs[name] = CoerceToType(v, attr.Type)
	}

	for name, nb := range block.BlockTypes {
		var v cty.Value
		if obj != nil {
			if found, ok := obj[name]; ok {
				v = found
			}
		}
		attrs[name] = shapeNestedBlock(v, nb)
	}

	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

// shapeNestedBlock applies §4.D's per-nesting-mode default: SINGLE/GROUP
// default to null, LIST/SET default to an empty list, MAP defaults to an
// empty map. A single object supplied for a LIST/SET block is wrapped in a
// one-element list before recursing into each element.
func shapeNestedBlock(v cty.Value, nb *providers.NestedBlockType) cty.Value {
	innerTy := nb.Block.ImpliedType()

	switch nb.Nesting {
	case providers.NestingSingle, providers.NestingGroup:
		if v == cty.NilVal || v.IsNull() {
			return cty.NullVal(innerTy)
		}
		return shapeObject(v, nb.Block)

	case providers.NestingList, providers.NestingSet:
		elems := nestedElements(v, innerTy)
		if len(elems) == 0 {
			return cty.ListValEmpty(innerTy)
		}
		shaped := make([]cty.Value, len(elems))
		for i, e := range elems {
			shaped[i] = shapeObject(e, nb.Block)
		}
		if nb.Nesting == providers.NestingSet {
			return cty.SetVal(shaped)
		}
		return cty.ListVal(shaped)

	case providers.NestingMap:
		if v == cty.NilVal || v.IsNull() || !(v.Type().IsObjectType() || v.Type().IsMapType()) {
			return cty.MapValEmpty(innerTy)
		}
		out := map[string]cty.Value{}
		it := v.ElementIterator()
		for it.Next() {
			k, ev := it.Element()
			out[k.AsString()] = shapeObject(ev, nb.Block)
		}
		if len(out) == 0 {
			return cty.MapValEmpty(innerTy)
		}
		return cty.MapVal(out)

	default:
		return cty.NullVal(innerTy)
	}
}

// nestedElements normalizes the user-supplied value for a LIST/SET nested
// block into a slice of per-element values: a single object is wrapped in
// a one-element slice (§4.D), a list/set/tuple is expanded element by
// element, and an absent/null value yields no elements.
func nestedElements(v cty.Value, elemTy cty.Type) []cty.Value {
	if v == cty.NilVal || v.IsNull() {
		return nil
	}
	ty := v.Type()
	if ty.IsObjectType() || ty.IsMapType() {
		return []cty.Value{v}
	}
	if ty.IsListType() || ty.IsSetType() || ty.IsTupleType() {
		var out []cty.Value
		it := v.ElementIterator()
		for it.Next() {
			_, ev := it.Element()
			out = append(out, ev)
		}
		return out
	}
	return []cty.Value{v}
}

// CoerceToType applies the §4.D cty coercion rules for a single
// (value, type) pair: primitive lexical coercion, recursive descent
// through list/set/map/object types, and a pass-through for null and the
// "dynamic" type token.
func CoerceToType(v cty.Value, ty cty.Type) cty.Value {
	if v == cty.NilVal {
		return cty.NullVal(ty)
	}
	if ty == cty.DynamicPseudoType {
		return v
	}
	if v.IsNull() {
		return cty.NullVal(ty)
	}
	if !v.IsKnown() {
		return v
	}

	switch {
	case ty == cty.String:
		return cty.StringVal(coerceToString(v))
	case ty == cty.Number:
		return coerceToNumber(v)
	case ty == cty.Bool:
		return coerceToBool(v)
	case ty.IsListType():
		return coerceCollection(v, ty.ElementType(), cty.ListVal, cty.ListValEmpty)
	case ty.IsSetType():
		return coerceCollection(v, ty.ElementType(), cty.SetVal, cty.SetValEmpty)
	case ty.IsMapType():
		return coerceMap(v, ty.ElementType())
	case ty.IsObjectType():
		return coerceObject(v, ty)
	default:
		return v
	}
}

func coerceToString(v cty.Value) string {
	switch {
	case v.Type() == cty.String:
		return v.AsString()
	case v.Type() == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case v.Type() == cty.Number:
		return v.AsBigFloat().Text('f', -1)
	default:
		return v.GoString()
	}
}

func coerceToNumber(v cty.Value) cty.Value {
	switch {
	case v.Type() == cty.Number:
		return v
	case v.Type() == cty.Bool:
		if v.True() {
			return cty.NumberIntVal(1)
		}
		return cty.NumberIntVal(0)
	case v.Type() == cty.String:
		s := v.AsString()
		switch s {
		case "true":
			return cty.NumberIntVal(1)
		case "false":
			return cty.NumberIntVal(0)
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return cty.NumberFloatVal(n)
		}
		// Unparseable: pass through unchanged per §4.D — the provider
		// will surface a typed diagnostic for the mismatch.
		return v
	default:
		return v
	}
}

func coerceToBool(v cty.Value) cty.Value {
	switch {
	case v.Type() == cty.Bool:
		return v
	case v.Type() == cty.String:
		switch v.AsString() {
		case "true", "1":
			return cty.True
		case "false", "0":
			return cty.False
		default:
			return v
		}
	case v.Type() == cty.Number:
		bf := v.AsBigFloat()
		return cty.BoolVal(bf.Sign() != 0)
	default:
		return v
	}
}

func coerceCollection(v cty.Value, elemTy cty.Type, build func([]cty.Value) cty.Value, empty func(cty.Type) cty.Value) cty.Value {
	ty := v.Type()
	var elems []cty.Value
	if ty.IsObjectType() || ty.IsMapType() {
		// A single object/map supplied where a list/set is expected is
		// wrapped in a one-element list (§4.D).
		elems = []cty.Value{CoerceToType(v, elemTy)}
	} else if ty.IsListType() || ty.IsSetType() || ty.IsTupleType() {
		it := v.ElementIterator()
		for it.Next() {
			_, ev := it.Element()
			elems = append(elems, CoerceToType(ev, elemTy))
		}
	} else {
		elems = []cty.Value{CoerceToType(v, elemTy)}
	}
	if len(elems) == 0 {
		return empty(elemTy)
	}
	return build(elems)
}

func coerceMap(v cty.Value, elemTy cty.Type) cty.Value {
	ty := v.Type()
	if !(ty.IsObjectType() || ty.IsMapType()) {
		return cty.MapValEmpty(elemTy)
	}
	out := map[string]cty.Value{}
	it := v.ElementIterator()
	for it.Next() {
		k, ev := it.Element()
		out[k.AsString()] = CoerceToType(ev, elemTy)
	}
	if len(out) == 0 {
		return cty.MapValEmpty(elemTy)
	}
	return cty.MapVal(out)
}

func coerceObject(v cty.Value, ty cty.Type) cty.Value {
	atys := ty.AttributeTypes()
	var obj map[string]cty.Value
	if (v.Type().IsObjectType() || v.Type().IsMapType()) && !v.IsNull() {
		obj = map[string]cty.Value{}
		it := v.ElementIterator()
		for it.Next() {
			k, ev := it.Element()
			obj[k.AsString()] = ev
		}
	}
	out := map[string]cty.Value{}
	for name, at := range atys {
		if obj != nil {
			if found, ok := obj[name]; ok {
				out[name] = CoerceToType(found, at)
				continue
			}
		}
		out[name] = cty.NullVal(at)
	}
	// Extra keys not declared by the schema are preserved (§4.D) by
	// falling back to cty.ObjectVal's own type, which is derived purely
	// from `out` here — so extra keys from obj that aren't in atys are
	// intentionally not type-coerced against the schema (there is no
	// schema type for them) but are still carried through.
	if obj != nil {
		for k, ev := range obj {
			if _, declared := atys[k]; !declared {
				out[k] = ev
			}
		}
	}
	if len(out) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(out)
}
