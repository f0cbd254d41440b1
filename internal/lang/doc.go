// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package lang implements the Expression Evaluator (spec.md §4.E): given an
// already-parsed expression (an hcl.Expression, since the declarative
// config parser that builds these is an out-of-scope external
// collaborator) and an evaluation context of variable defaults plus a
// live-resource-state map, it produces a cty.Value.
//
// This is deliberately much smaller than the teacher's own internal/lang:
// there is no module-instance-scoped compiled graph here (that lives one
// layer up, in internal/dag and internal/engine), just the reference
// resolution, function table, and cty.Value production that every single
// node's config evaluation needs.
package lang
