// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package providers

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/tfdiags"
)

// NestingMode describes how a nested block within a Block repeats: as a
// single embedded object, a list/set of objects, or a string-keyed map of
// objects. These mirror the provider protocol's own nesting modes (§4.D).
type NestingMode int

const (
	NestingSingle NestingMode = iota
	NestingGroup
	NestingList
	NestingSet
	NestingMap
)

// Attribute is a leaf schema attribute: a name bound to a cty.Type plus the
// protocol's required/optional/computed/sensitive flags.
type Attribute struct {
	Type      cty.Type
	Required  bool
	Optional  bool
	Computed  bool
	Sensitive bool
}

// NestedBlockType describes one nested block type within a Block, along
// with its own nested schema and repetition mode.
type NestedBlockType struct {
	Block   *Block
	Nesting NestingMode
	// MinItems/MaxItems only apply to NestingList and NestingSet.
	MinItems int
	MaxItems int
}

// Block is a schema block: the root of a resource, data source, or
// provider configuration schema, or the schema of one of its nested
// blocks. This is the shape the Schema Shaper (§4.D) walks recursively when
// coercing sparse user configuration into a value that conforms to it.
type Block struct {
	Attributes map[string]*Attribute
	BlockTypes map[string]*NestedBlockType
}

// ImpliedType returns the cty object type implied by the block's schema,
// the same type that the provider protocol's DynamicValue encoding must
// conform to for this block.
func (b *Block) ImpliedType() cty.Type {
	if b == nil {
		return cty.EmptyObject
	}
	atys := make(map[string]cty.Type, len(b.Attributes)+len(b.BlockTypes))
	for name, attr := range b.Attributes {
		atys[name] = attr.Type
	}
	for name, nb := range b.BlockTypes {
		inner := nb.Block.ImpliedType()
		switch nb.Nesting {
		case NestingSingle, NestingGroup:
			atys[name] = inner
		case NestingList:
			atys[name] = cty.List(inner)
		case NestingSet:
			atys[name] = cty.Set(inner)
		case NestingMap:
			atys[name] = cty.Map(inner)
		}
	}
	return cty.Object(atys)
}

// Schema pairs a Block with the protocol version it was declared at,
// matching the per-resource-type schema map returned by GetProviderSchema.
type Schema struct {
	Version int64
	Block   *Block
}

// ServerCapabilities mirrors the optional behavior flags a provider's
// GetProviderSchema response may set, in particular whether the schema
// call is required exactly once before any other RPC (per §4.B/§4.C).
type ServerCapabilities struct {
	PlanDestroy               bool
	GetProviderSchemaOptional bool
}

// FunctionSpec is a placeholder for provider-defined functions. This engine
// does not evaluate provider functions (only the fixed built-in set in
// §4.E), so the spec is carried through schema responses only so that a
// provider's full schema can still be round-tripped and logged; nothing
// in the evaluator dispatches through it.
type FunctionSpec struct {
	Description string
}

// GetProviderSchemaResponse is the domain-level result of calling a
// provider's schema RPC: a Block per resource type and per data source,
// plus the provider's own configuration block.
type GetProviderSchemaResponse struct {
	Provider           Schema
	ProviderMeta       Schema
	ResourceTypes      map[string]Schema
	DataSources        map[string]Schema
	Functions          map[string]FunctionSpec
	ServerCapabilities ServerCapabilities
	Diagnostics        tfdiags.Diagnostics
}
