// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package addrs

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Reference describes a reference to an address with source location
// information, mirroring the teacher's addrs.Reference shape but scoped to
// this system's reduced addressing model (no recursive module instances,
// no provider functions, no checks/ephemeral resources).
type Reference struct {
	Subject     Referenceable
	SourceRange hcl.Range
	Remaining   hcl.Traversal
}

// reservedRootNames are the first-segment identifiers that §4.E and §4.F
// call out as reserved regardless of whether this engine models them. Per
// spec.md §4.E, "local", "each", "count", and "path" are reserved but not
// evaluated (they yield null and are excluded from dependency inference);
// "terraform" and "self" are likewise reserved.
var reservedRootNames = map[string]bool{
	"var":       true,
	"local":     true,
	"each":      true,
	"count":     true,
	"path":      true,
	"terraform": true,
	"self":      true,
	"module":    true,
	"data":      true,
}

// IsReservedRootName reports whether root is one of the first-segment
// identifiers reserved by the expression language, per §4.E.
func IsReservedRootName(root string) bool {
	return reservedRootNames[root]
}

// ParseRef extracts a Referenceable address from the prefix of the given
// absolute traversal, in the style of the teacher's addrs.ParseRef but
// covering only the subjects this system models: input variables, resource
// (and data resource) instances, local values, count/each/path attributes
// and self (each parsed to its own address type: LocalValue, CountAttr,
// ForEachAttr, PathAttr, Self), plus the reserved-but-unmodeled tokens
// terraform and module, which resolve to a UnmodeledAttr placeholder so
// callers can still recognize them as reserved.
func ParseRef(traversal hcl.Traversal) (*Reference, error) {
	if len(traversal) == 0 {
		return nil, fmt.Errorf("empty traversal")
	}
	root := traversal.RootName()
	rootRange := traversal[0].SourceRange()

	switch root {
	case "var":
		return parseSingleAttr(traversal, func(name string) Referenceable {
			return InputVariable{Name: name}
		})
	case "local":
		return parseSingleAttr(traversal, func(name string) Referenceable {
			return LocalValue{Name: name}
		})
	case "count":
		return parseSingleAttr(traversal, func(name string) Referenceable {
			return CountAttr{Name: name}
		})
	case "each":
		return parseSingleAttr(traversal, func(name string) Referenceable {
			return ForEachAttr{Name: name}
		})
	case "path":
		return parseSingleAttr(traversal, func(name string) Referenceable {
			return PathAttr{Name: name}
		})
	case "self":
		rng := rootRange
		remain := traversal[1:]
		if len(remain) > 0 {
			rng = hcl.RangeBetween(rootRange, remain[0].SourceRange())
		}
		return &Reference{Subject: Self, SourceRange: rng, Remaining: remain}, nil
	case "terraform", "module":
		// Reserved but not modeled: the Resource DAG has no concept of
		// nested modules or the "terraform" meta-object, so these resolve
		// to a placeholder that the evaluator turns into null and that
		// dependency inference (§4.F) skips over.
		name := root
		if len(traversal) > 1 {
			if attr, ok := traversal[1].(hcl.TraverseAttr); ok {
				name = root + "." + attr.Name
			}
		}
		return &Reference{
			Subject:     UnmodeledAttr{Name: name},
			SourceRange: rootRange,
		}, nil
	case "data":
		if len(traversal) < 3 {
			return nil, fmt.Errorf("%q must be followed by a type and a name", root)
		}
		return parseResourceRef(DataResourceMode, rootRange, traversal[1:])
	default:
		return parseResourceRef(ManagedResourceMode, rootRange, traversal)
	}
}

func parseResourceRef(mode ResourceMode, startRange hcl.Range, traversal hcl.Traversal) (*Reference, error) {
	if len(traversal) < 2 {
		return nil, fmt.Errorf("a resource reference must include both a type and a name")
	}

	var typeName string
	switch tt := traversal[0].(type) {
	case hcl.TraverseRoot:
		typeName = tt.Name
	case hcl.TraverseAttr:
		typeName = tt.Name
	default:
		return nil, fmt.Errorf("invalid resource reference")
	}

	attrTrav, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return nil, fmt.Errorf("a resource reference must be followed by the resource name")
	}
	name := attrTrav.Name
	rng := hcl.RangeBetween(startRange, attrTrav.SrcRange)
	remain := traversal[2:]

	resourceAddr := Resource{Mode: mode, Type: typeName, Name: name}
	instAddr := ResourceInstance{Resource: resourceAddr, Key: NoKey}

	if len(remain) == 0 {
		// Ambiguous between "the whole resource" and "instance zero";
		// the caller (Resource DAG edge resolution, §4.F) decides which
		// based on whether the target has count/for_each.
		return &Reference{Subject: resourceAddr, SourceRange: rng}, nil
	}

	if idxTrav, ok := remain[0].(hcl.TraverseIndex); ok {
		key, err := ParseInstanceKey(idxTrav.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid index: %w", err)
		}
		instAddr.Key = key
		remain = remain[1:]
		rng = hcl.RangeBetween(rng, idxTrav.SrcRange)
	}

	return &Reference{
		Subject:     instAddr,
		SourceRange: rng,
		Remaining:   remain,
	}, nil
}

func parseSingleAttr(traversal hcl.Traversal, makeAddr func(name string) Referenceable) (*Reference, error) {
	root := traversal.RootName()
	rootRange := traversal[0].SourceRange()
	if len(traversal) < 2 {
		return nil, fmt.Errorf("the %q object cannot be accessed directly", root)
	}
	attrTrav, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return nil, fmt.Errorf("the %q object does not support this operation", root)
	}
	return &Reference{
		Subject:     makeAddr(attrTrav.Name),
		SourceRange: hcl.RangeBetween(rootRange, attrTrav.SrcRange),
		Remaining:   traversal[2:],
	}, nil
}

// InputVariable is the address of a "var.X" reference.
type InputVariable struct {
	referenceable
	Name string
}

func (v InputVariable) String() string { return "var." + v.Name }
func (v InputVariable) UniqueKey() UniqueKey { return inputVariableUniqueKey(v.Name) }

type inputVariableUniqueKey string

func (k inputVariableUniqueKey) uniqueKeySigil() {}

// UnmodeledAttr represents a reference to one of the reserved-but-unmodeled
// root names (terraform, module). Per
// §4.E/§9 these are future work: the evaluator resolves them to null and
// they are excluded from dependency inference.
type UnmodeledAttr struct {
	referenceable
	Name string
}

func (u UnmodeledAttr) String() string { return u.Name }
func (u UnmodeledAttr) UniqueKey() UniqueKey { return unmodeledAttrUniqueKey(u.Name) }

type unmodeledAttrUniqueKey string

func (k unmodeledAttrUniqueKey) uniqueKeySigil() {}
