// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package reportfmt

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// formatValue renders a cty.Value for inline display within a resource
// block, collapsing large collections the way the original formatter's
// format_value_short does (short lists/objects print inline; larger ones
// collapse to an element count).
func formatValue(v cty.Value) string {
	switch {
	case v == cty.NilVal || !v.IsKnown():
		return "(known after apply)"
	case v.IsNull():
		return "null"
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return fmt.Sprintf("%q", v.AsString())
	case ty == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case ty == cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		return formatCollection(v)
	case ty.IsObjectType() || ty.IsMapType():
		return formatObject(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatCollection(v cty.Value) string {
	if v.LengthInt() == 0 {
		return "[]"
	}
	allStrings := true
	items := make([]string, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		if ev.Type() != cty.String {
			allStrings = false
		}
		items = append(items, formatValue(ev))
	}
	if len(items) <= 4 && allStrings {
		return "[" + strings.Join(items, ", ") + "]"
	}
	return fmt.Sprintf("[...%d items]", len(items))
}

func formatObject(v cty.Value) string {
	if v.LengthInt() == 0 {
		return "{}"
	}
	if v.LengthInt() > 4 {
		return fmt.Sprintf("{...%d keys}", v.LengthInt())
	}
	items := make([]string, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		items = append(items, fmt.Sprintf("%s = %s", k.AsString(), formatValue(ev)))
	}
	return "{ " + strings.Join(items, ", ") + " }"
}
