// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package reportfmt

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/plans"
)

// PrintPlan renders changes in the Terraform-style execution-plan layout:
// a legend of the action symbols actually used, one block per changed
// resource, and a final summary line. No-op changes are never printed.
func PrintPlan(w io.Writer, changes []ResourceChange, outputs []*plans.OutputChangeSrc) {
	actionable := make([]ResourceChange, 0, len(changes))
	for _, c := range changes {
		if c.Action != plans.NoOp {
			actionable = append(actionable, c)
		}
	}

	if len(actionable) == 0 {
		fmt.Fprintln(w, "No changes. Infrastructure is up-to-date.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Terraform used the selected providers to generate the following execution plan.")
	fmt.Fprintln(w, "Resource actions are indicated with the following symbols:")
	printLegend(w, actionable)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Terraform will perform the following actions:")
	fmt.Fprintln(w)

	for _, c := range actionable {
		printResourceChange(w, c)
	}

	fmt.Fprintln(w, planSummaryLine(actionable))

	if len(outputs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Changes to Outputs:")
		for _, o := range outputs {
			fmt.Fprintf(w, "  + %s = (known after apply)\n", o.Addr)
		}
		fmt.Fprintln(w)
	}
}

func printLegend(w io.Writer, actionable []ResourceChange) {
	has := func(pred func(plans.Action) bool) bool {
		for _, c := range actionable {
			if pred(c.Action) {
				return true
			}
		}
		return false
	}
	if has(func(a plans.Action) bool { return a == plans.Create }) {
		fmt.Fprintln(w, "  + create")
	}
	if has(func(a plans.Action) bool { return a == plans.Update }) {
		fmt.Fprintln(w, "  ~ update in-place")
	}
	if has(plans.Action.IsReplace) {
		fmt.Fprintln(w, "-/+ destroy and then create replacement")
	}
	if has(func(a plans.Action) bool { return a == plans.Delete }) {
		fmt.Fprintln(w, "  - destroy")
	}
	if has(func(a plans.Action) bool { return a == plans.Read }) {
		fmt.Fprintln(w, " <= read (data resources)")
	}
}

func actionSymbol(a plans.Action) string {
	switch {
	case a == plans.Create:
		return "+"
	case a == plans.Update:
		return "~"
	case a == plans.Delete:
		return "-"
	case a.IsReplace():
		return "-/+"
	case a == plans.Read:
		return "<="
	default:
		return " "
	}
}

func actionDescription(a plans.Action) string {
	switch {
	case a == plans.Create:
		return "will be created"
	case a == plans.Update:
		return "will be updated in-place"
	case a == plans.Delete:
		return "will be destroyed"
	case a.IsReplace():
		return "must be replaced"
	case a == plans.Read:
		return "will be read during apply"
	default:
		return ""
	}
}

// printResourceChange renders one "# address will be created" block in
// the style of the original output/formatter.rs's print_resource_change:
// a header line, a resource/data block with its type and name, every
// planned attribute, and a closing brace.
func printResourceChange(w io.Writer, c ResourceChange) {
	fmt.Fprintf(w, "  # %s %s\n", c.Address, actionDescription(c.Action))

	blockKind, typeName, instName := splitAddress(c.Address, c.ResourceType)
	fmt.Fprintf(w, "  %s %s %q %q {\n", actionSymbol(c.Action), blockKind, typeName, instName)

	printAttributes(w, c)

	fmt.Fprintf(w, "    }\n\n")
}

func splitAddress(address, resourceType string) (blockKind, typeName, instName string) {
	if strings.HasPrefix(address, "data.") {
		stripped := strings.TrimPrefix(address, "data.")
		parts := strings.SplitN(stripped, ".", 2)
		if len(parts) == 2 {
			return "data", parts[0], parts[1]
		}
		return "data", resourceType, stripped
	}
	parts := strings.SplitN(address, ".", 2)
	if len(parts) == 2 {
		return "resource", parts[0], parts[1]
	}
	return "resource", resourceType, address
}

// printAttributes prints one line per top-level attribute, preferring the
// planned value and falling back to the prior value for a pure delete.
// Attributes whose value is unchanged between prior and planned are
// prefixed with a plain indent; changed ones get a "~" marker and new ones
// (null in prior, non-null in planned) get a "+" marker, mirroring the
// per-attribute markers in the original print_resource_change.
func printAttributes(w io.Writer, c ResourceChange) {
	base := c.Planned
	if c.Action == plans.Delete {
		base = c.Prior
	}
	if base == cty.NilVal || base.IsNull() || !base.Type().IsObjectType() {
		return
	}

	keys := make([]string, 0, base.LengthInt())
	for it := base.ElementIterator(); it.Next(); {
		k, _ := it.Element()
		keys = append(keys, k.AsString())
	}
	sort.Strings(keys)

	priorTypes := cty.EmptyObject
	if c.Prior != cty.NilVal && !c.Prior.IsNull() && c.Prior.Type().IsObjectType() {
		priorTypes = c.Prior.Type()
	}

	for _, k := range keys {
		plannedVal := base.GetAttr(k)
		marker := " "
		if c.Action != plans.Delete {
			var priorVal cty.Value
			if priorTypes.HasAttribute(k) {
				priorVal = c.Prior.GetAttr(k)
			} else {
				priorVal = cty.NullVal(plannedVal.Type())
			}
			switch {
			case priorVal.IsNull() && !plannedVal.IsNull():
				marker = "+"
			case !priorVal.RawEquals(plannedVal):
				marker = "~"
			}
		}
		fmt.Fprintf(w, "      %s %s = %s\n", marker, k, formatValue(plannedVal))
	}
}

func planSummaryLine(actionable []ResourceChange) string {
	var add, change, destroy int
	for _, c := range actionable {
		switch {
		case c.Action == plans.Create:
			add++
		case c.Action == plans.Update:
			change++
		case c.Action.IsReplace():
			add++
			destroy++
		case c.Action == plans.Delete:
			destroy++
		}
	}
	return fmt.Sprintf("Plan: %d to add, %d to change, %d to destroy.", add, change, destroy)
}
