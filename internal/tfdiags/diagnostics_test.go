// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tfdiags

import (
	"errors"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticsAppendVariants(t *testing.T) {
	var diags Diagnostics

	diags = diags.Append(Sourceless(Warning, "a warning", "some detail"))
	diags = diags.Append(errors.New("boom"))
	diags = diags.Append(&hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "bad expression",
		Subject:  &hcl.Range{Filename: "x.tf", Start: hcl.Pos{Line: 1}, End: hcl.Pos{Line: 1}},
	})
	diags = diags.Append(nil)

	require.Len(t, diags, 3)
	assert.Equal(t, Warning, diags[0].Severity)
	assert.Equal(t, Error, diags[1].Severity)
	assert.Equal(t, "bad expression", diags[2].Summary)
	assert.Equal(t, "x.tf", diags[2].Subject.Filename)
}

func TestDiagnosticsHasErrorsAndErr(t *testing.T) {
	var diags Diagnostics
	assert.False(t, diags.HasErrors())
	assert.NoError(t, diags.Err())

	diags = diags.Append(Sourceless(Warning, "just a warning", ""))
	assert.False(t, diags.HasErrors())
	assert.NoError(t, diags.Err())

	diags = diags.Append(Sourceless(Error, "something broke", "detail here"))
	assert.True(t, diags.HasErrors())
	require.Error(t, diags.Err())
	assert.Contains(t, diags.Err().Error(), "something broke")
}

func TestDiagnosticsWarnings(t *testing.T) {
	diags := Diagnostics{
		Sourceless(Warning, "w1", ""),
		Sourceless(Error, "e1", ""),
		Sourceless(Warning, "w2", ""),
	}
	warnings := diags.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "w1", warnings[0].Summary)
	assert.Equal(t, "w2", warnings[1].Summary)
}

func TestSeverityToHCL(t *testing.T) {
	assert.Equal(t, hcl.DiagWarning, Warning.ToHCL())
	assert.Equal(t, hcl.DiagError, Error.ToHCL())
}

func TestSourceRangeString(t *testing.T) {
	r := SourceRange{Filename: "x.tf", Start: SourcePos{Line: 1, Column: 2}, End: SourcePos{Line: 1, Column: 2}}
	assert.Equal(t, "x.tf:1,2", r.String())

	r.End = SourcePos{Line: 2, Column: 1}
	assert.Equal(t, "x.tf:1,2-2,1", r.String())
}
