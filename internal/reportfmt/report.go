// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package reportfmt

import (
	"fmt"
	"io"
)

// Report is the run-level summary counters printed after an apply or
// destroy, mirroring the original output/report.rs's Report struct. The
// Rust original built it by counting module statuses straight out of its
// StateStore; here the counts already exist on the engine's own ApplyResult
// and DestroyResult, so Report is just a rendering-friendly tuple of them.
type Report struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// NewReportFromCounts builds a Report from the succeeded/failed/skipped
// counters present on both engine.ApplyResult and engine.DestroyResult.
func NewReportFromCounts(succeeded, failed, skipped int) Report {
	return Report{Succeeded: succeeded, Failed: failed, Skipped: skipped}
}

// Print renders the one-line pass/fail summary the original formatter
// prints via print_success/print_error after a run completes.
func (r Report) Print(w io.Writer) {
	if r.Failed > 0 {
		fmt.Fprintf(w, "Error: %d succeeded, %d failed, %d skipped.\n", r.Succeeded, r.Failed, r.Skipped)
		return
	}
	fmt.Fprintf(w, "Success: %d succeeded, %d skipped.\n", r.Succeeded, r.Skipped)
}
