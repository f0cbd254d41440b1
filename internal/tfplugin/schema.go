// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tfplugin

import "google.golang.org/protobuf/encoding/protowire"

// DynamicValue mirrors the protocol's DynamicValue message: a cty value
// encoded as either msgpack (this engine's only encoding, §4.B) or JSON
// (unused, carried through only so a provider that insists on echoing it
// back doesn't break decoding).
type DynamicValue struct {
	Msgpack []byte
	Json    []byte
}

func (v *DynamicValue) Marshal() ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var b []byte
	b = appendBytes(b, 1, v.Msgpack)
	b = appendBytes(b, 2, v.Json)
	return b, nil
}

func (v *DynamicValue) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			v.Msgpack = append([]byte(nil), val...)
		case 2:
			v.Json = append([]byte(nil), val...)
		}
		return nil
	})
}

// AttributePathStep is one step of an AttributePath: either a named
// attribute, an integer list/set element index, or a string map key.
type AttributePathStep struct {
	AttributeName    string
	ElementKeyInt    int64
	ElementKeyString string
	HasElementKeyInt bool
}

// AttributePath is a path into a value tree, used by RequiresReplace and by
// Diagnostic.Attribute (§4.B "rendered as dotted identifiers with [key] for
// map/list indexes").
type AttributePath struct {
	Steps []AttributePathStep
}

func (p AttributePath) String() string {
	out := ""
	for i, s := range p.Steps {
		switch {
		case s.AttributeName != "":
			if i > 0 {
				out += "."
			}
			out += s.AttributeName
		case s.HasElementKeyInt:
			out += "[" + itoa(s.ElementKeyInt) + "]"
		default:
			out += "[" + s.ElementKeyString + "]"
		}
	}
	return out
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func marshalAttributePath(p *AttributePath) []byte {
	if p == nil {
		return nil
	}
	var b []byte
	for _, s := range p.Steps {
		var step []byte
		switch {
		case s.AttributeName != "":
			step = appendString(step, 1, s.AttributeName)
		case s.HasElementKeyInt:
			step = appendVarint(step, 2, uint64(s.ElementKeyInt))
		default:
			step = appendString(step, 3, s.ElementKeyString)
		}
		b = appendMessage(b, 1, step)
	}
	return b
}

func unmarshalAttributePath(b []byte) (*AttributePath, error) {
	p := &AttributePath{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		if num != 1 {
			return nil
		}
		var step AttributePathStep
		err := walkFields(val, func(snum protowire.Number, _ protowire.Type, sval []byte, svarint uint64) error {
			switch snum {
			case 1:
				step.AttributeName = string(sval)
			case 2:
				step.ElementKeyInt = int64(svarint)
				step.HasElementKeyInt = true
			case 3:
				step.ElementKeyString = string(sval)
			}
			return nil
		})
		if err != nil {
			return err
		}
		p.Steps = append(p.Steps, step)
		return nil
	})
	return p, err
}

// Severity mirrors the protocol's Diagnostic.Severity enum.
type Severity int32

const (
	SeverityInvalid Severity = 0
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
)

// Diagnostic mirrors the protocol's Diagnostic message (§4.B).
type Diagnostic struct {
	Severity  Severity
	Summary   string
	Detail    string
	Attribute *AttributePath
}

func marshalDiagnostic(d Diagnostic) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(d.Severity))
	b = appendString(b, 2, d.Summary)
	b = appendString(b, 3, d.Detail)
	if d.Attribute != nil {
		b = appendMessage(b, 4, marshalAttributePath(d.Attribute))
	}
	return b
}

func unmarshalDiagnostic(b []byte) (Diagnostic, error) {
	var d Diagnostic
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			d.Severity = Severity(varint)
		case 2:
			d.Summary = string(val)
		case 3:
			d.Detail = string(val)
		case 4:
			p, err := unmarshalAttributePath(val)
			if err != nil {
				return err
			}
			d.Attribute = p
		}
		return nil
	})
	return d, err
}

func appendDiagnostics(b []byte, num protowire.Number, diags []Diagnostic) []byte {
	for _, d := range diags {
		b = appendMessage(b, num, marshalDiagnostic(d))
	}
	return b
}

// NestingMode mirrors the protocol's Schema.NestedBlock.NestingMode enum
// (§4.B "SINGLE=1, LIST=2, SET=3, MAP=4, GROUP=5").
type NestingMode int32

const (
	NestingInvalid NestingMode = 0
	NestingSingle  NestingMode = 1
	NestingList    NestingMode = 2
	NestingSet     NestingMode = 3
	NestingMap     NestingMode = 4
	NestingGroup   NestingMode = 5
)

// Attribute mirrors Schema.Attribute: a leaf schema attribute with a
// JSON-encoded cty type.
type Attribute struct {
	Name        string
	Type        []byte // JSON-encoded cty.Type
	Description string
	Required    bool
	Optional    bool
	Computed    bool
	Sensitive   bool
}

func marshalAttribute(a Attribute) []byte {
	var b []byte
	b = appendString(b, 1, a.Name)
	b = appendBytes(b, 2, a.Type)
	b = appendString(b, 3, a.Description)
	b = appendBool(b, 4, a.Required)
	b = appendBool(b, 5, a.Optional)
	b = appendBool(b, 6, a.Computed)
	b = appendBool(b, 7, a.Sensitive)
	return b
}

func unmarshalAttribute(b []byte) (Attribute, error) {
	var a Attribute
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			a.Name = string(val)
		case 2:
			a.Type = append([]byte(nil), val...)
		case 3:
			a.Description = string(val)
		case 4:
			a.Required = varint != 0
		case 5:
			a.Optional = varint != 0
		case 6:
			a.Computed = varint != 0
		case 7:
			a.Sensitive = varint != 0
		}
		return nil
	})
	return a, err
}

// NestedBlock mirrors Schema.NestedBlock: a named nested Block plus its
// repetition mode and item-count bounds.
type NestedBlock struct {
	TypeName string
	Block    *Block
	Nesting  NestingMode
	MinItems int64
	MaxItems int64
}

func marshalNestedBlock(nb NestedBlock) []byte {
	var b []byte
	b = appendString(b, 1, nb.TypeName)
	b = appendMessage(b, 2, marshalBlock(nb.Block))
	b = appendVarint(b, 3, uint64(nb.Nesting))
	b = appendVarint(b, 4, uint64(nb.MinItems))
	b = appendVarint(b, 5, uint64(nb.MaxItems))
	return b
}

func unmarshalNestedBlock(b []byte) (NestedBlock, error) {
	var nb NestedBlock
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			nb.TypeName = string(val)
		case 2:
			blk, err := unmarshalBlock(val)
			if err != nil {
				return err
			}
			nb.Block = blk
		case 3:
			nb.Nesting = NestingMode(varint)
		case 4:
			nb.MinItems = int64(varint)
		case 5:
			nb.MaxItems = int64(varint)
		}
		return nil
	})
	return nb, err
}

// Block mirrors Schema.Block: a version plus a flat attribute list and a
// list of nested block types.
type Block struct {
	Version    int64
	Attributes []Attribute
	BlockTypes []NestedBlock
}

func marshalBlock(blk *Block) []byte {
	if blk == nil {
		return nil
	}
	var b []byte
	b = appendVarint(b, 1, uint64(blk.Version))
	for _, a := range blk.Attributes {
		b = appendMessage(b, 2, marshalAttribute(a))
	}
	for _, nb := range blk.BlockTypes {
		b = appendMessage(b, 3, marshalNestedBlock(nb))
	}
	return b
}

func unmarshalBlock(b []byte) (*Block, error) {
	blk := &Block{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			blk.Version = int64(varint)
		case 2:
			a, err := unmarshalAttribute(val)
			if err != nil {
				return err
			}
			blk.Attributes = append(blk.Attributes, a)
		case 3:
			nb, err := unmarshalNestedBlock(val)
			if err != nil {
				return err
			}
			blk.BlockTypes = append(blk.BlockTypes, nb)
		}
		return nil
	})
	return blk, err
}

// Schema mirrors the top-level Schema message: a version plus its root
// Block.
type Schema struct {
	Version int64
	Block   *Block
}

func marshalSchema(s Schema) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(s.Version))
	b = appendMessage(b, 2, marshalBlock(s.Block))
	return b
}

func unmarshalSchema(b []byte) (Schema, error) {
	var s Schema
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			s.Version = int64(varint)
		case 2:
			blk, err := unmarshalBlock(val)
			if err != nil {
				return err
			}
			s.Block = blk
		}
		return nil
	})
	return s, err
}

// ServerCapabilities mirrors GetProviderSchema.ServerCapabilities (§4.C).
type ServerCapabilities struct {
	PlanDestroy               bool
	GetProviderSchemaOptional bool
}

func marshalServerCapabilities(c ServerCapabilities) []byte {
	var b []byte
	b = appendBool(b, 1, c.PlanDestroy)
	b = appendBool(b, 2, c.GetProviderSchemaOptional)
	return b
}

func unmarshalServerCapabilities(b []byte) (ServerCapabilities, error) {
	var c ServerCapabilities
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			c.PlanDestroy = varint != 0
		case 2:
			c.GetProviderSchemaOptional = varint != 0
		}
		return nil
	})
	return c, err
}
