// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tfdiags

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Diagnostics is an ordered collection of diagnostics accumulated while
// evaluating expressions, walking the Resource DAG, or running the Engine's
// plan/apply/destroy operations.
type Diagnostics []*Diagnostic

// Append adds one or more diagnostics to the receiver, accepting the same
// variety of source shapes the rest of the engine naturally produces:
// *Diagnostic, *hcl.Diagnostic, hcl.Diagnostics, error, or another
// Diagnostics value. Anything else is ignored.
func (diags Diagnostics) Append(items ...interface{}) Diagnostics {
	for _, item := range items {
		if item == nil {
			continue
		}
		switch v := item.(type) {
		case *Diagnostic:
			diags = append(diags, v)
		case Diagnostics:
			diags = append(diags, v...)
		case *hcl.Diagnostic:
			diags = append(diags, FromHCL(v))
		case hcl.Diagnostics:
			for _, d := range v {
				diags = append(diags, FromHCL(d))
			}
		case error:
			diags = append(diags, Sourceless(Error, v.Error(), ""))
		}
	}
	return diags
}

// HasErrors reports whether the collection contains at least one
// error-severity diagnostic.
func (diags Diagnostics) HasErrors() bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Err flattens the collection into a single error, or returns nil if there
// are no error-severity diagnostics. This mirrors the convenience method
// callers reach for at an API boundary (e.g. returning from the Engine's
// Plan/Apply/Destroy methods) rather than threading Diagnostics everywhere.
func (diags Diagnostics) Err() error {
	if !diags.HasErrors() {
		return nil
	}
	var msgs []string
	for _, d := range diags {
		if d.Severity == Error {
			msgs = append(msgs, d.Error())
		}
	}
	return diagnosticsError(strings.Join(msgs, "; "))
}

type diagnosticsError string

func (e diagnosticsError) Error() string { return string(e) }

// Warnings returns just the warning-severity diagnostics, for callers that
// report them separately from the fatal error path (e.g. a plan summary
// footer).
func (diags Diagnostics) Warnings() Diagnostics {
	var ret Diagnostics
	for _, d := range diags {
		if d.Severity == Warning {
			ret = append(ret, d)
		}
	}
	return ret
}
