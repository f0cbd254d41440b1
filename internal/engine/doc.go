// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package engine implements the Engine (spec.md §4.H): the three top-level
// operations — Plan, Apply, Destroy — that orchestrate the Resource DAG
// (internal/dag), the DAG Walker (internal/walker), the Provider Manager
// (internal/providermgr), the Schema Shaper (internal/shape), the
// Expression Evaluator (internal/lang), and the State Store (internal/state)
// into the behavior described by spec.md §2's overall data flow.
//
// Grounded directly on spec.md §4.H and §5 rather than any single teacher
// file: the teacher's nearest equivalent (internal/engine/planning and
// internal/engine/applying, wired through a compiled execgraph over module
// instances) models a much larger system — module calls, ephemeral
// resources, provider-for_each, deferred actions — none of which this core
// supports. What is reused from the teacher is the shape of the
// orchestration itself: a sequential planning pass that talks to providers
// through a cached schema and a pooled connection, and an apply pass that
// walks a dependency graph with a bounded worker pool, recording a run
// record before and after.
package engine
