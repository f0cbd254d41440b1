// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package dag builds the Resource DAG described by spec.md §4.F: one node
// per resource/data-source instance (after count/for_each expansion) and
// per output, with explicit (depends_on), implicit (reference), and cycle
// validation passes. Unlike the teacher's internal/dag (a large generic
// graph-transformation library wired through internal/tofu's much bigger
// plan/apply graph builders, with module-instance expansion,
// provider-inheritance edges, and a dozen graph transform passes), this is
// a small, purpose-built graph over the flat node set spec.md §4.F names —
// no generic graph library in the pack fits a structure this small, so
// this package is necessarily stdlib-only (plain maps/slices), which is
// recorded here rather than silently defaulting to it.
package dag

import (
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/config"
	"github.com/opentofu/tofucore/internal/instances"
	"github.com/opentofu/tofucore/internal/lang"
	"github.com/opentofu/tofucore/internal/tfdiags"
)

// NodeKind distinguishes the three kinds of node the Resource DAG carries,
// per spec.md §3 ("DAG node is one of: resource instance, data-source
// instance, or output").
type NodeKind int

const (
	ResourceNode NodeKind = iota
	DataNode
	OutputNode
)

// Node is one vertex of the Resource DAG.
type Node struct {
	Kind NodeKind

	// Addr is populated for ResourceNode/DataNode.
	Addr addrs.ResourceInstance
	// BaseAddr is the unexpanded resource this instance belongs to.
	BaseAddr addrs.Resource

	// ProviderSource names the provider this node's resource/data source
	// uses (empty for OutputNode).
	ProviderSource string

	// OutputName is populated for OutputNode.
	OutputName string

	// Resource carries the originating config.Resource, used by the
	// Engine when evaluating this node's config. Nil for OutputNode.
	Resource *config.Resource
	// Output carries the originating config.Output. Nil otherwise.
	Output *config.Output
}

// Key is this node's canonical identity within the graph: the instance
// address for resource/data nodes, or "output.<name>" for output nodes.
func (n *Node) Key() string {
	if n.Kind == OutputNode {
		return "output." + n.OutputName
	}
	return n.Addr.String()
}

func (n *Node) String() string { return n.Key() }

// Graph is the built Resource DAG: a node list plus dependency edges keyed
// by node index.
type Graph struct {
	Nodes []*Node

	// Expander carries every node's registered count/for_each expansion,
	// as computed during Build, so the Engine and Expression Evaluator can
	// reuse it to shape multi-instance live-state lookups without
	// re-evaluating count/for_each a second time.
	Expander *instances.Expander

	// dependsOn[i] holds the node indexes that node i depends on.
	dependsOn [][]int
	// dependents[i] is the inverse of dependsOn: nodes depending on i.
	dependents [][]int

	byKey  map[string]int
	byBase map[addrs.Resource][]int
}

// DependsOn returns the node indexes that node i depends on.
func (g *Graph) DependsOn(i int) []int { return g.dependsOn[i] }

// Dependents returns the node indexes that depend on node i.
func (g *Graph) Dependents(i int) []int { return g.dependents[i] }

// NodeIndex looks up a node's index by its Key(), or -1 if not found.
func (g *Graph) NodeIndex(key string) int {
	if i, ok := g.byKey[key]; ok {
		return i
	}
	return -1
}

// Build constructs the Resource DAG from a flat list of declared resources
// and outputs, per §4.F: eager count/for_each expansion using variable
// defaults only (must succeed during plan), then explicit and implicit
// edge construction, then cycle and multi-instance-reference validation.
func Build(resources []config.Resource, outputs []config.Output, varDefaults map[string]cty.Value) (*Graph, tfdiags.Diagnostics) {
	var diags tfdiags.Diagnostics

	expander := instances.NewExpander()
	evaluator := lang.NewEvaluator(varDefaults, nil, nil)

	g := &Graph{
		Expander: expander,
		byKey:    map[string]int{},
		byBase:   map[addrs.Resource][]int{},
	}

	resourceByAddr := map[addrs.Resource]*config.Resource{}

	for i := range resources {
		rc := &resources[i]
		base := rc.Addr()
		resourceByAddr[base] = rc

		switch {
		case rc.CountExpr != nil:
			n, countDiags := evaluator.EvalCount(rc.CountExpr)
			diags = diags.Append(countDiags)
			if countDiags.HasErrors() {
				continue
			}
			expander.SetResourceCount(base, n)
		case rc.ForEachExpr != nil:
			m, feDiags := evaluator.EvalForEach(rc.ForEachExpr)
			diags = diags.Append(feDiags)
			if feDiags.HasErrors() {
				continue
			}
			expander.SetResourceForEach(base, m)
		default:
			expander.SetResourceSingle(base)
		}

		for _, inst := range expander.ExpandResource(base) {
			kind := ResourceNode
			if rc.Mode == addrs.DataResourceMode {
				kind = DataNode
			}
			node := &Node{
				Kind:           kind,
				Addr:           inst,
				BaseAddr:       base,
				ProviderSource: rc.ProviderSource,
				Resource:       rc,
			}
			idx := len(g.Nodes)
			g.Nodes = append(g.Nodes, node)
			g.byKey[node.Key()] = idx
			g.byBase[base] = append(g.byBase[base], idx)
		}
	}

	for i := range outputs {
		oc := &outputs[i]
		node := &Node{Kind: OutputNode, OutputName: oc.Name, Output: oc}
		idx := len(g.Nodes)
		g.Nodes = append(g.Nodes, node)
		g.byKey[node.Key()] = idx
	}

	g.dependsOn = make([][]int, len(g.Nodes))
	g.dependents = make([][]int, len(g.Nodes))

	for i, node := range g.Nodes {
		deps := map[int]bool{}

		addEdge := func(target int) {
			if target == i {
				return // self-loops suppressed (§4.F)
			}
			deps[target] = true
		}

		addBaseEdge := func(base addrs.Resource) {
			if base == node.BaseAddr {
				return
			}
			for _, j := range g.byBase[base] {
				addEdge(j)
			}
		}

		addRefEdge := func(ref *addrs.Reference) {
			switch subj := ref.Subject.(type) {
			case addrs.Resource:
				addBaseEdge(subj)
			case addrs.ResourceInstance:
				if j, ok := g.byKey[subj.String()]; ok {
					addEdge(j)
				} else {
					addBaseEdge(subj.Resource)
				}
			}
		}

		switch node.Kind {
		case ResourceNode, DataNode:
			for _, expr := range node.Resource.Config {
				if expr == nil {
					continue
				}
				for _, t := range expr.Variables() {
					if ref, err := addrs.ParseRef(t); err == nil {
						addRefEdge(ref)
					}
				}
			}
			for _, t := range node.Resource.DependsOn {
				if ref, err := addrs.ParseRef(t); err == nil {
					addRefEdge(ref)
				}
			}
		case OutputNode:
			if node.Output.ValueExpr != nil {
				for _, t := range node.Output.ValueExpr.Variables() {
					if ref, err := addrs.ParseRef(t); err == nil {
						addRefEdge(ref)
					}
				}
			}
			for _, t := range node.Output.DependsOn {
				if ref, err := addrs.ParseRef(t); err == nil {
					addRefEdge(ref)
				}
			}
		}

		for j := range deps {
			g.dependsOn[i] = append(g.dependsOn[i], j)
		}
		sort.Ints(g.dependsOn[i])
	}

	for i := range g.Nodes {
		for _, j := range g.dependsOn[i] {
			g.dependents[j] = append(g.dependents[j], i)
		}
	}
	for i := range g.dependents {
		sort.Ints(g.dependents[i])
	}

	diags = diags.Append(checkCycles(g))
	diags = diags.Append(validateMultiInstanceReferences(g, resourceByAddr))

	return g, diags
}

// SortTopological returns node indexes in dependency-first order: every
// dependency strictly before every dependent (§8 invariant 4). Ties are
// broken by address string for deterministic test output.
func (g *Graph) SortTopological() []int {
	return g.sortKahn(g.dependsOn, g.dependents)
}

// SortReverse returns node indexes for the Destroy walk (§4.H.3): every
// dependent strictly before every dependency.
func (g *Graph) SortReverse() []int {
	return g.sortKahn(g.dependents, g.dependsOn)
}

// Reversed returns a new Graph over the same nodes with every dependency
// edge inverted, used to build the Destroy walk (§4.H.3 "build a reversed
// copy (every edge inverted)"): a node that depended on nothing now depends
// on everything that used to depend on it. The returned Graph shares the
// receiver's node slice and lookup maps, which Walk only ever reads.
func (g *Graph) Reversed() *Graph {
	return &Graph{
		Nodes:      g.Nodes,
		Expander:   g.Expander,
		dependsOn:  g.dependents,
		dependents: g.dependsOn,
		byKey:      g.byKey,
		byBase:     g.byBase,
	}
}

func (g *Graph) sortKahn(before, after [][]int) []int {
	n := len(g.Nodes)
	indeg := make([]int, n)
	for i := range before {
		indeg[i] = len(before[i])
	}

	var ready []int
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	var order []int
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool { return g.Nodes[ready[a]].Key() < g.Nodes[ready[b]].Key() })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dep := range after[next] {
			indeg[dep]--
			if indeg[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return order
}
