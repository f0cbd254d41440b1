// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"sort"

	"github.com/xlab/treeprint"
)

// Dump renders the graph as a human-readable dependency tree, rooted at
// every node with no dependents (the graph's "leaves" in walk order —
// outputs and anything nothing else depends on). This is a debug aid only,
// grounded in the original Rust implementation's src/dag/visualizer.rs,
// reworked here as a tree printer rather than full Graphviz DOT output
// since the teacher's own internal/dag/graphviz is one of a dozen
// transform-specific dumpers this package has no equivalent need for
// (§4.F names one small flat graph, not a module-instance transform
// pipeline) — a single tree view covers the same debugging need.
func (g *Graph) Dump() string {
	tree := treeprint.New()
	visited := make([]bool, len(g.Nodes))

	roots := make([]int, 0)
	for i := range g.Nodes {
		if len(g.Dependents(i)) == 0 {
			roots = append(roots, i)
		}
	}
	sort.Slice(roots, func(a, b int) bool { return g.Nodes[roots[a]].Key() < g.Nodes[roots[b]].Key() })

	for _, i := range roots {
		g.dumpNode(tree, i, visited)
	}
	return tree.String()
}

func (g *Graph) dumpNode(parent treeprint.Tree, i int, visited []bool) {
	branch := parent.AddBranch(g.Nodes[i].Key())
	if visited[i] {
		return
	}
	visited[i] = true

	deps := append([]int(nil), g.DependsOn(i)...)
	sort.Slice(deps, func(a, b int) bool { return g.Nodes[deps[a]].Key() < g.Nodes[deps[b]].Key() })
	for _, dep := range deps {
		g.dumpNode(branch, dep, visited)
	}
}
