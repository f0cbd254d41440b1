// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package engine

import "github.com/opentofu/tofucore/internal/plans"

// PlanSummary tallies a plan's resource changes by action, the counts
// spec.md §8 invariant 5 requires to always reconcile against the number of
// resource instances in the Resource DAG.
type PlanSummary struct {
	Creates       int
	Updates       int
	Deletes       int
	Replaces      int
	NoOps         int
	Reads         int
	OutputChanges int
}

// Total is the number of resource-instance changes the plan recorded,
// excluding no-ops and data-source reads.
func (s PlanSummary) Total() int {
	return s.Creates + s.Updates + s.Deletes + s.Replaces
}

// Summarize tallies changes by action for reporting (internal/reportfmt)
// and for the invariant check in the Engine's own tests.
func Summarize(changes *plans.Changes) PlanSummary {
	var s PlanSummary
	if changes == nil {
		return s
	}
	for _, rc := range changes.Resources {
		switch {
		case rc.Action == plans.Create:
			s.Creates++
		case rc.Action == plans.Update:
			s.Updates++
		case rc.Action == plans.Delete:
			s.Deletes++
		case rc.Action.IsReplace():
			s.Replaces++
		case rc.Action == plans.Read:
			s.Reads++
		default:
			s.NoOps++
		}
	}
	s.OutputChanges = len(changes.Outputs)
	return s
}
