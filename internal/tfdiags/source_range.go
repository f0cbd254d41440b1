// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tfdiags

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// SourcePos is a single position (line, column, and byte offset) within a
// source file, mirroring hcl.Pos.
type SourcePos struct {
	Line   int
	Column int
	Byte   int
}

// SourceRange is a range within a source file, used to annotate a
// Diagnostic with where in the originating expression it applies.
type SourceRange struct {
	Filename string
	Start    SourcePos
	End      SourcePos
}

func (r SourceRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%s:%d,%d", r.Filename, r.Start.Line, r.Start.Column)
	}
	return fmt.Sprintf("%s:%d,%d-%d,%d", r.Filename, r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
}

// ToHCL converts the receiver back to an hcl.Range.
func (r SourceRange) ToHCL() hcl.Range {
	return hcl.Range{
		Filename: r.Filename,
		Start:    hcl.Pos{Line: r.Start.Line, Column: r.Start.Column, Byte: r.Start.Byte},
		End:      hcl.Pos{Line: r.End.Line, Column: r.End.Column, Byte: r.End.Byte},
	}
}

// SourceRangeFromHCL constructs a SourceRange from an hcl.Range.
func SourceRangeFromHCL(rng hcl.Range) SourceRange {
	return SourceRange{
		Filename: rng.Filename,
		Start:    SourcePos{Line: rng.Start.Line, Column: rng.Start.Column, Byte: rng.Start.Byte},
		End:      SourcePos{Line: rng.End.Line, Column: rng.End.Column, Byte: rng.End.Byte},
	}
}
