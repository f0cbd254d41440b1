// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/dag"
	"github.com/opentofu/tofucore/internal/lang"
	"github.com/opentofu/tofucore/internal/plans"
	"github.com/opentofu/tofucore/internal/providers"
	"github.com/opentofu/tofucore/internal/shape"
	"github.com/opentofu/tofucore/internal/state"
	"github.com/opentofu/tofucore/internal/tfdiags"
)

// Plan implements §4.H.1: a single sequential pass over the Resource DAG in
// topological order, producing a description of the changes Apply would
// make without making any of them. Planning is sequential (rather than
// walker-driven, like Apply) because user-visible progress during plan only
// needs to be reported one node at a time, and sequential evaluation keeps
// diagnostics ordering simple.
func (e *Engine) Plan(ctx context.Context, in Inputs) (*plans.Plan, tfdiags.Diagnostics) {
	var diags tfdiags.Diagnostics

	g, buildDiags := dag.Build(in.Resources, in.Outputs, in.VarDefaults)
	diags = diags.Append(buildDiags)
	if buildDiags.HasErrors() {
		return &plans.Plan{UIMode: plans.NormalMode, Changes: plans.NewChanges(), Errored: true, Timestamp: time.Now()}, diags
	}

	// Plan never has live state to offer forward references (§4.H.1 "with
	// no live states during plan → forward references null"), so the
	// shared Evaluator is constructed with a nil InstanceValueFunc, which
	// NewEvaluator turns into an always-absent lookup.
	evaluator := lang.NewEvaluator(in.VarDefaults, g.Expander, nil)
	changes := plans.NewChanges()

	for _, i := range g.SortTopological() {
		node := g.Nodes[i]
		switch node.Kind {
		case dag.ResourceNode:
			rc, rcDiags := e.planResource(ctx, node, evaluator)
			diags = diags.Append(rcDiags)
			if rc != nil {
				changes.Resources = append(changes.Resources, rc)
			}
		case dag.DataNode:
			rc, rcDiags := e.planDataSource(ctx, node, evaluator)
			diags = diags.Append(rcDiags)
			if rc != nil {
				changes.Resources = append(changes.Resources, rc)
			}
		case dag.OutputNode:
			changes.Outputs = append(changes.Outputs, e.planOutput(node))
		}
	}

	return &plans.Plan{
		UIMode:    plans.NormalMode,
		Changes:   changes,
		Errored:   false,
		Timestamp: time.Now(),
	}, diags
}

func (e *Engine) planResource(ctx context.Context, node *dag.Node, evaluator *lang.Evaluator) (*plans.ResourceInstanceChangeSrc, tfdiags.Diagnostics) {
	var diags tfdiags.Diagnostics

	conn, err := e.Providers.GetConnection(node.ProviderSource, "")
	if err != nil {
		e.Log.Error("planning resource: provider unavailable", "address", node.Key(), "err", err)
		return nil, diags.Append(err)
	}
	schema, err := e.Providers.Schema(node.ProviderSource)
	if err != nil {
		e.Log.Error("planning resource: schema unavailable", "address", node.Key(), "err", err)
		return nil, diags.Append(err)
	}
	block := schema.ResourceTypes[node.BaseAddr.Type].Block

	cfg, cfgDiags := evalConfig(evaluator, node.Resource.Config)
	diags = diags.Append(cfgDiags)
	shaped := shape.Shape(cfg, block)

	providerAddr, _ := providerAddrFor(node.ProviderSource)
	address := resourceAddress(node)

	var prior cty.Value
	row, err := e.Store.GetResource(ctx, e.WorkspaceID, address)
	switch {
	case err == nil:
		prior = shape.CoerceToType(row.Attributes, block.ImpliedType())
	case isNotFound(err):
		prior = cty.NullVal(block.ImpliedType())
	default:
		e.Log.Error("planning resource: loading prior state", "address", address, "err", err)
		return nil, diags.Append(err)
	}

	resp := conn.PlanResourceChange(providers.PlanResourceChangeRequest{
		TypeName:         node.BaseAddr.Type,
		PriorState:       prior,
		ProposedNewState: shaped,
		Config:           shaped,
	})
	diags = diags.Append(resp.Diagnostics)
	if resp.Diagnostics.HasErrors() {
		// §4.H.1 "Failure to plan logs and continues": the resource is
		// simply omitted from the recorded changes.
		e.Log.Error("planning resource: provider rejected plan", "address", address)
		return nil, diags
	}

	action := classifyAction(prior, resp.PlannedState, resp.RequiresReplace)

	before, err := plans.NewDynamicValue(prior, block.ImpliedType())
	if err != nil {
		return nil, diags.Append(err)
	}
	after, err := plans.NewDynamicValue(resp.PlannedState, block.ImpliedType())
	if err != nil {
		return nil, diags.Append(err)
	}

	return &plans.ResourceInstanceChangeSrc{
		Addr:            node.Addr,
		ModulePath:      node.Resource.ModulePath,
		ProviderAddr:    providerAddr,
		Action:          action,
		Before:          before,
		After:           after,
		RequiresReplace: resp.RequiresReplace,
		Private:         resp.PlannedPrivate,
	}, diags
}

func (e *Engine) planDataSource(ctx context.Context, node *dag.Node, evaluator *lang.Evaluator) (*plans.ResourceInstanceChangeSrc, tfdiags.Diagnostics) {
	var diags tfdiags.Diagnostics

	conn, err := e.Providers.GetConnection(node.ProviderSource, "")
	if err != nil {
		e.Log.Error("planning data source: provider unavailable", "address", node.Key(), "err", err)
		return nil, diags.Append(err)
	}
	schema, err := e.Providers.Schema(node.ProviderSource)
	if err != nil {
		return nil, diags.Append(err)
	}
	block := schema.DataSources[node.BaseAddr.Type].Block

	cfg, cfgDiags := evalConfig(evaluator, node.Resource.Config)
	diags = diags.Append(cfgDiags)
	shaped := shape.Shape(cfg, block)

	resp := conn.ReadDataSource(providers.ReadDataSourceRequest{
		TypeName: node.BaseAddr.Type,
		Config:   shaped,
	})
	diags = diags.Append(resp.Diagnostics)
	if resp.Diagnostics.HasErrors() {
		e.Log.Error("planning data source: read failed", "address", node.Key())
		return nil, diags
	}

	providerAddr, _ := providerAddrFor(node.ProviderSource)
	after, err := plans.NewDynamicValue(resp.State, block.ImpliedType())
	if err != nil {
		return nil, diags.Append(err)
	}

	return &plans.ResourceInstanceChangeSrc{
		Addr:         node.Addr,
		ModulePath:   node.Resource.ModulePath,
		ProviderAddr: providerAddr,
		Action:       plans.Read,
		Before:       nil,
		After:        after,
	}, diags
}

// planOutput records §4.H.1's "create-with-unknown-value entry": the
// output's eventual value can't be known until Apply actually runs, so the
// plan records it as an unknown value of dynamic type, which the msgpack
// encoding (§6 "extension type 0 = unknown") round-trips losslessly.
func (e *Engine) planOutput(node *dag.Node) *plans.OutputChangeSrc {
	after, err := plans.NewDynamicValue(cty.UnknownVal(cty.DynamicPseudoType), cty.DynamicPseudoType)
	if err != nil {
		e.Log.Error("planning output: encoding unknown value", "name", node.OutputName, "err", err)
	}
	return &plans.OutputChangeSrc{
		Addr:      node.OutputName,
		After:     after,
		Sensitive: node.Output.Sensitive,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, state.ErrNotFound)
}
