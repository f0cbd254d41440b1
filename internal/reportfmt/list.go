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

	"github.com/opentofu/tofucore/internal/state"
)

// ListedResource is the subset of state.Resource needed for the table and
// detail renderers below, kept separate from state.Resource so this
// package doesn't need to import providers schema types just to print.
type ListedResource struct {
	Address        string
	ResourceType   string
	Status         state.Status
	ProviderSource string
	Attributes     map[string]string
	SensitiveAttrs []string
}

// PrintResourceList renders a bordered ASCII table, mirroring the original
// print_resource_list: ADDRESS, TYPE, STATUS and PROVIDER columns sized to
// their widest entry.
func PrintResourceList(w io.Writer, resources []ListedResource) {
	if len(resources) == 0 {
		fmt.Fprintln(w, "No resources.")
		return
	}

	headers := []string{"ADDRESS", "TYPE", "STATUS", "PROVIDER"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	rows := make([][4]string, len(resources))
	for i, r := range resources {
		rows[i] = [4]string{r.Address, r.ResourceType, string(r.Status), r.ProviderSource}
		for j, v := range rows[i] {
			if len(v) > widths[j] {
				widths[j] = len(v)
			}
		}
	}

	printBorder(w, widths)
	printRow(w, headers[:], widths)
	printBorder(w, widths)
	for _, row := range rows {
		printRow(w, row[:], widths)
	}
	printBorder(w, widths)
}

func printBorder(w io.Writer, widths []int) {
	fmt.Fprint(w, "+")
	for _, width := range widths {
		fmt.Fprint(w, strings.Repeat("-", width+2), "+")
	}
	fmt.Fprintln(w)
}

func printRow(w io.Writer, cells []string, widths []int) {
	fmt.Fprint(w, "|")
	for i, c := range cells {
		fmt.Fprintf(w, " %-*s |", widths[i], c)
	}
	fmt.Fprintln(w)
}

// PrintResourceDetail renders one resource field-by-field, masking any
// attribute named in SensitiveAttrs, mirroring print_resource_detail.
func PrintResourceDetail(w io.Writer, r ListedResource) {
	fmt.Fprintf(w, "# %s\n", r.Address)
	fmt.Fprintf(w, "resource_type = %s\n", r.ResourceType)
	fmt.Fprintf(w, "status        = %s\n", r.Status)
	fmt.Fprintf(w, "provider      = %s\n", r.ProviderSource)
	fmt.Fprintln(w)

	sensitive := make(map[string]bool, len(r.SensitiveAttrs))
	for _, name := range r.SensitiveAttrs {
		sensitive[name] = true
	}

	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := r.Attributes[k]
		if sensitive[k] {
			v = "(sensitive value)"
		}
		fmt.Fprintf(w, "  %s = %s\n", k, v)
	}
}
