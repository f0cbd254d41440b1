// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package tfdiags carries structured diagnostics (errors and warnings) with
// optional source-range context between the evaluator, the DAG walker, and
// the Engine, in the style of the upstream package this was adapted from.
//
// This is a deliberately smaller surface than the upstream tfdiags: since
// the configuration parser and its CLI-facing diagnostic renderer are out
// of scope here (they belong to an external collaborator), this package
// drops body-contextual elaboration, diagnostic consolidation, the RPC
// wire-friendly diagnostic type, and severity overrides. What remains is
// just enough to construct, accumulate, and render diagnostics produced by
// the core orchestrator itself.
package tfdiags

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Severity indicates whether a Diagnostic describes an error or a warning.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown severity"
	}
}

// ToHCL converts the receiver to the equivalent hcl.DiagnosticSeverity, for
// diagnostics that need to pass through hcl.Diagnostic-shaped APIs.
func (s Severity) ToHCL() hcl.DiagnosticSeverity {
	switch s {
	case Warning:
		return hcl.DiagWarning
	default:
		return hcl.DiagError
	}
}

// Diagnostic is a single error or warning, with an optional summary/detail
// pair and an optional source location.
type Diagnostic struct {
	Severity Severity
	Summary  string
	Detail   string

	// Subject is the specific range the diagnostic refers to, if any.
	// Most diagnostics raised by the evaluator (§4.E) carry one; many
	// raised deeper in the engine (state store errors, provider RPC
	// failures) do not, since they have no expression to point at.
	Subject *SourceRange
}

func (d *Diagnostic) Error() string {
	if d.Detail == "" {
		return d.Summary
	}
	return fmt.Sprintf("%s: %s", d.Summary, d.Detail)
}

func (d *Diagnostic) String() string {
	if d.Subject == nil {
		return fmt.Sprintf("%s: %s", d.Severity, d.Error())
	}
	return fmt.Sprintf("%s: %s (at %s)", d.Severity, d.Error(), d.Subject)
}

// Sourceless builds a Diagnostic with no source-range context, for errors
// that originate outside of any expression (state store I/O, provider RPC
// failures, and similar).
func Sourceless(severity Severity, summary, detail string) *Diagnostic {
	return &Diagnostic{Severity: severity, Summary: summary, Detail: detail}
}

// FromHCL converts an *hcl.Diagnostic, as produced by expression parsing
// and evaluation, into our Diagnostic shape.
func FromHCL(diag *hcl.Diagnostic) *Diagnostic {
	d := &Diagnostic{
		Summary: diag.Summary,
		Detail:  diag.Detail,
	}
	if diag.Severity == hcl.DiagWarning {
		d.Severity = Warning
	} else {
		d.Severity = Error
	}
	if diag.Subject != nil {
		rng := SourceRangeFromHCL(*diag.Subject)
		d.Subject = &rng
	}
	return d
}

// AttributeError builds a sourceless error Diagnostic for an
// attribute-level problem. Diagnostic has no attribute-path field, so any
// offending attribute path has to be written into summary or detail.
func AttributeError(summary, detail string) *Diagnostic {
	return Sourceless(Error, summary, detail)
}
