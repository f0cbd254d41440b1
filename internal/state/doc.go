// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package state implements the State Store (spec.md §4.A): durable
// workspace/resource/run/lock records behind a small operation surface,
// backed by PostgreSQL via database/sql and github.com/lib/pq.
//
// Grounded on the teacher's internal/backend/remote-state/pg, which stores
// a single opaque state blob per workspace name using the same driver and
// the same CREATE TABLE IF NOT EXISTS / advisory-lock idioms; this package
// generalizes that shape to the richer per-resource relational schema
// §4.A names (resources, dependencies, outputs, locks, runs, providers)
// instead of one blob column, since the Engine (§4.H) needs to address,
// filter, and update individual resource instances rather than rewrite an
// entire state document on every change.
package state
