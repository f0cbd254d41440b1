// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package reportfmt renders Plan/Apply/Destroy results as plain text, in
// the Terraform-style "# address will be created" layout: a legend of
// action symbols, one block per changed resource showing its attributes,
// a one-line summary, and a resource table for listing state.
//
// Grounded on the original Rust implementation's output/formatter.rs and
// output/report.rs (SPEC_FULL.md Supplemented Features: the distilled
// spec.md has no output-rendering module, but a complete implementation of
// this engine needs one, and the original source already defines its
// shape). Deliberately plain fmt/strings rather than a templating or
// terminal-color library: this is a log/progress-printer concern, which
// spec.md §1 puts out of scope for everything except a minimal plain-text
// rendering, and no library in the pack's dependency graph does this one
// job better than direct Fprintf calls.
package reportfmt
