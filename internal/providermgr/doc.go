// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package providermgr implements the Provider Manager (spec.md §4.C): a
// process-wide pool of provider connections keyed by provider address, with
// a startup path that downloads/spawns exactly once per address and a
// concurrency model that lets the DAG Walker drive many outstanding RPCs
// against the same provider without serializing them.
package providermgr
