// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"fmt"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/config"
	"github.com/opentofu/tofucore/internal/tfdiags"
)

// checkCycles rejects any cycle in the dependency graph, naming one
// implicated address per §4.F/§8 invariant: "reject cycles with an error
// naming one implicated address".
func checkCycles(g *Graph) tfdiags.Diagnostics {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.Nodes))
	var diags tfdiags.Diagnostics

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = gray
		for _, j := range g.dependsOn[i] {
			switch color[j] {
			case gray:
				diags = diags.Append(tfdiags.Sourceless(tfdiags.Error,
					"Cycle in resource dependencies",
					fmt.Sprintf("%s is part of a dependency cycle involving %s", g.Nodes[i].Key(), g.Nodes[j].Key())))
				return true
			case white:
				if visit(j) {
					return true
				}
			}
		}
		color[i] = black
		return false
	}

	for i := range g.Nodes {
		if color[i] == white {
			if visit(i) {
				break
			}
		}
	}
	return diags
}

// validateMultiInstanceReferences implements §4.F's "multi-instance
// reference check": any bare reference T.N.attr where T.N has count or
// for_each set is an error; callers must use [k] or [*]. Every violation
// is reported; this pass does not abort on the first one.
func validateMultiInstanceReferences(g *Graph, resources map[addrs.Resource]*config.Resource) tfdiags.Diagnostics {
	var diags tfdiags.Diagnostics

	isMultiInstance := func(addr addrs.Resource) bool {
		return hasExplicitRepetition(resources, addr)
	}

	for _, node := range g.Nodes {
		var source string
		var refs []*addrs.Reference

		switch node.Kind {
		case ResourceNode, DataNode:
			source = node.Key()
			for _, expr := range node.Resource.Config {
				if expr == nil {
					continue
				}
				for _, t := range expr.Variables() {
					if ref, err := addrs.ParseRef(t); err == nil {
						refs = append(refs, ref)
					}
				}
			}
		case OutputNode:
			source = "output." + node.OutputName
			if node.Output.ValueExpr != nil {
				for _, t := range node.Output.ValueExpr.Variables() {
					if ref, err := addrs.ParseRef(t); err == nil {
						refs = append(refs, ref)
					}
				}
			}
		}

		for _, ref := range refs {
			inst, ok := ref.Subject.(addrs.ResourceInstance)
			if !ok || inst.Key != addrs.NoKey {
				continue
			}
			res := inst.Resource
			if isMultiInstance(res) {
				diags = diags.Append(tfdiags.Sourceless(tfdiags.Error,
					"Missing resource instance key",
					fmt.Sprintf("%s references %s, which has count or for_each set, without an instance key; use [k] or [*]", source, res.String())))
			}
		}
	}
	return diags
}

// hasExplicitRepetition reports whether addr's declared resource actually
// used count/for_each (as opposed to being a plain singleton that merely
// expanded to exactly one instance, e.g. count = 1), so that a bare
// reference to a single-instance count/for_each resource is still flagged.
func hasExplicitRepetition(resources map[addrs.Resource]*config.Resource, addr addrs.Resource) bool {
	rc, ok := resources[addr]
	if !ok {
		return false
	}
	return rc.CountExpr != nil || rc.ForEachExpr != nil
}
