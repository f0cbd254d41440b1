// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package plans

import "time"

// Plan is the top-level result of the Engine's Plan operation (§4.H): a
// summary of the set of changes required to move a workspace's stored state
// to match the live resource graph, described but not yet applied.
//
// Unlike the upstream type this is adapted from, a Plan here carries no
// reference back to configuration or a backend: the configuration parser
// and state backend selection are both external collaborators, so the
// Engine receives already-parsed resource configuration (from which it
// builds the Resource DAG itself) and an already-opened State Store, and
// only needs to record what it decided to do with them.
type Plan struct {
	UIMode Mode
	Changes *Changes

	// Errored is true if planning stopped partway through because of a
	// fatal diagnostic. An errored plan can still be inspected, but must
	// not be applied.
	Errored bool

	Timestamp time.Time
}

// CanApply reports whether the plan contains any change worth applying.
func (p *Plan) CanApply() bool {
	if p == nil || p.Errored {
		return false
	}
	return !p.Changes.Empty()
}
