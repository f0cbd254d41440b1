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
	"github.com/opentofu/tofucore/internal/walker"
)

// ApplyResult is the outcome of one Apply call, per §4.H.2's post-walk
// summary.
type ApplyResult struct {
	RunID string

	Added     int
	Changed   int
	Destroyed int
	Failed    int
	Skipped   int

	Elapsed time.Duration
	Changes *plans.Changes
}

// Apply implements §4.H.2: initialize every declared provider once, then
// walk the full Resource DAG with a bounded-concurrency executor that
// plans-then-applies each resource/data node, recording a run before and
// after.
func (e *Engine) Apply(ctx context.Context, in Inputs) (*ApplyResult, tfdiags.Diagnostics) {
	start := time.Now()
	var diags tfdiags.Diagnostics

	diags = diags.Append(e.initializeProviders(ctx, in)...)

	g, buildDiags := dag.Build(in.Resources, in.Outputs, in.VarDefaults)
	diags = diags.Append(buildDiags)
	if buildDiags.HasErrors() {
		return nil, diags
	}

	runID, err := e.Store.StartRun(ctx, e.WorkspaceID, state.OpApply)
	if err != nil {
		return nil, diags.Append(err)
	}

	live := walker.NewLiveState()
	evaluator := lang.NewEvaluator(in.VarDefaults, g.Expander, live.Lookup)
	changesSync := plans.NewChangesSync(plans.NewChanges())

	exec := func(ctx context.Context, node *dag.Node) (cty.Value, error) {
		switch node.Kind {
		case dag.ResourceNode:
			return e.applyResourceNode(ctx, runID, node, evaluator, changesSync)
		case dag.DataNode:
			return e.applyDataNode(ctx, node, evaluator)
		default:
			return cty.NilVal, nil
		}
	}

	result := walker.Walk(ctx, g, exec, walker.Options{
		MaxParallelism: e.MaxParallelism,
		Mode:           walker.ApplyMode,
		LiveState:      live,
	})

	changes := changesSync.Changes()
	planSummary := Summarize(changes)

	status := state.RunSucceeded
	if result.Failed > 0 {
		status = state.RunFailed
	}
	if err := e.Store.CompleteRun(ctx, runID, status, state.RunSummary{
		Planned:   len(g.Nodes),
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
	}); err != nil {
		diags = diags.Append(err)
	}

	diags = diags.Append(e.persistOutputs(ctx, g, evaluator))

	return &ApplyResult{
		RunID:     runID,
		Added:     planSummary.Creates + planSummary.Replaces,
		Changed:   planSummary.Updates,
		Destroyed: planSummary.Deletes,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		Elapsed:   time.Since(start),
		Changes:   changes,
	}, diags
}

// initializeProviders is §4.H.2 step 1: every declared provider is started
// and configured exactly once, before any resource node is walked, using an
// evaluator scoped to variable defaults only (no resource in the graph has
// live state yet, so no provider config expression can reference one).
func (e *Engine) initializeProviders(ctx context.Context, in Inputs) tfdiags.Diagnostics {
	var diags tfdiags.Diagnostics
	evaluator := lang.NewEvaluator(in.VarDefaults, nil, nil)

	for _, p := range in.Providers {
		if _, err := e.Providers.GetConnection(p.Source, ""); err != nil {
			e.Log.Error("initializing provider", "source", p.Source, "err", err)
			diags = diags.Append(err)
			continue
		}
		schema, err := e.Providers.Schema(p.Source)
		if err != nil {
			diags = diags.Append(err)
			continue
		}
		cfg, cfgDiags := evalConfig(evaluator, p.Config)
		diags = diags.Append(cfgDiags)
		shaped := shape.Shape(cfg, schema.Provider.Block)

		resp := e.Providers.Configure(p.Source, e.TerraformVersion, shaped)
		diags = diags.Append(resp.Diagnostics)
	}
	return diags
}

func (e *Engine) applyResourceNode(ctx context.Context, runID string, node *dag.Node, evaluator *lang.Evaluator, changesSync *plans.ChangesSync) (cty.Value, error) {
	address := resourceAddress(node)

	lock, err := e.Store.AcquireLock(ctx, address, e.WorkspaceID, state.LockInfo{
		Holder:    "engine",
		Operation: string(state.OpApply),
	})
	if err != nil {
		return cty.NilVal, err
	}
	defer func() {
		if relErr := e.Store.ReleaseLock(ctx, lock.ID); relErr != nil {
			e.Log.Warn("releasing lock", "address", address, "err", relErr)
		}
	}()

	conn, err := e.Providers.GetConnection(node.ProviderSource, "")
	if err != nil {
		return cty.NilVal, err
	}
	schemaResp, err := e.Providers.Schema(node.ProviderSource)
	if err != nil {
		return cty.NilVal, err
	}
	resourceSchema := schemaResp.ResourceTypes[node.BaseAddr.Type]
	block := resourceSchema.Block

	cfg, cfgDiags := evalConfig(evaluator, node.Resource.Config)
	if cfgDiags.HasErrors() {
		return cty.NilVal, cfgDiags.Err()
	}
	shaped := shape.Shape(cfg, block)

	prior, priorExists, err := e.loadPrior(ctx, address, block)
	if err != nil {
		return cty.NilVal, err
	}

	planResp := conn.PlanResourceChange(providers.PlanResourceChangeRequest{
		TypeName:         node.BaseAddr.Type,
		PriorState:       prior,
		ProposedNewState: shaped,
		Config:           shaped,
	})
	if planResp.Diagnostics.HasErrors() {
		e.recordRunResource(ctx, runID, address, "plan", "failed", planResp.Diagnostics.Err())
		return cty.NilVal, planResp.Diagnostics.Err()
	}

	var newState cty.Value
	action := classifyAction(prior, planResp.PlannedState, planResp.RequiresReplace)

	if len(planResp.RequiresReplace) > 0 && priorExists {
		newState, err = e.replaceResource(ctx, conn, node, address, prior, shaped, block)
	} else {
		applyResp := conn.ApplyResourceChange(providers.ApplyResourceChangeRequest{
			TypeName:       node.BaseAddr.Type,
			PriorState:     prior,
			PlannedState:   planResp.PlannedState,
			Config:         shaped,
			PlannedPrivate: planResp.PlannedPrivate,
		})
		if applyResp.Diagnostics.HasErrors() {
			err = applyResp.Diagnostics.Err()
		} else {
			newState = applyResp.NewState
		}
	}

	if err != nil {
		e.recordRunResource(ctx, runID, address, action.String(), "failed", err)
		return cty.NilVal, err
	}

	changesSync.AppendResourceInstanceChange(&plans.ResourceInstanceChangeSrc{
		Addr:       node.Addr,
		ModulePath: node.Resource.ModulePath,
		Action:     action,
	})

	if newState != cty.NilVal && !newState.IsNull() {
		if err := e.Store.UpsertResource(ctx, &state.Resource{
			WorkspaceID:    e.WorkspaceID,
			ModulePath:     node.Resource.ModulePath,
			ResourceType:   node.BaseAddr.Type,
			ResourceName:   node.BaseAddr.Name,
			Mode:           "managed",
			ProviderSource: node.ProviderSource,
			IndexKey:       indexKeyString(node.Addr.Key),
			Address:        address,
			Status:         state.StatusCreated,
			Attributes:     newState,
			SchemaVersion:  resourceSchema.Version,
		}); err != nil {
			return cty.NilVal, err
		}
	}

	e.recordRunResource(ctx, runID, address, action.String(), "succeeded", nil)
	return newState, nil
}

// replaceResource executes §4.H.2.d's replacement sub-protocol: plan and
// apply a destroy against the prior state, delete the row, then plan and
// apply a create against the shaped config.
func (e *Engine) replaceResource(ctx context.Context, conn providers.Interface, node *dag.Node, address string, prior, shaped cty.Value, block *providers.Block) (cty.Value, error) {
	destroyPlan := conn.PlanResourceChange(providers.PlanResourceChangeRequest{
		TypeName:         node.BaseAddr.Type,
		PriorState:       prior,
		ProposedNewState: cty.NullVal(block.ImpliedType()),
		Config:           cty.NullVal(block.ImpliedType()),
	})
	if destroyPlan.Diagnostics.HasErrors() {
		return cty.NilVal, destroyPlan.Diagnostics.Err()
	}
	destroyApply := conn.ApplyResourceChange(providers.ApplyResourceChangeRequest{
		TypeName:       node.BaseAddr.Type,
		PriorState:     prior,
		PlannedState:   cty.NullVal(block.ImpliedType()),
		Config:         cty.NullVal(block.ImpliedType()),
		PlannedPrivate: destroyPlan.PlannedPrivate,
	})
	if destroyApply.Diagnostics.HasErrors() {
		return cty.NilVal, destroyApply.Diagnostics.Err()
	}
	if err := e.Store.DeleteResource(ctx, e.WorkspaceID, address); err != nil {
		return cty.NilVal, err
	}

	createPlan := conn.PlanResourceChange(providers.PlanResourceChangeRequest{
		TypeName:         node.BaseAddr.Type,
		PriorState:       cty.NullVal(block.ImpliedType()),
		ProposedNewState: shaped,
		Config:           shaped,
	})
	if createPlan.Diagnostics.HasErrors() {
		return cty.NilVal, createPlan.Diagnostics.Err()
	}
	createApply := conn.ApplyResourceChange(providers.ApplyResourceChangeRequest{
		TypeName:       node.BaseAddr.Type,
		PriorState:     cty.NullVal(block.ImpliedType()),
		PlannedState:   createPlan.PlannedState,
		Config:         shaped,
		PlannedPrivate: createPlan.PlannedPrivate,
	})
	if createApply.Diagnostics.HasErrors() {
		return cty.NilVal, createApply.Diagnostics.Err()
	}
	return createApply.NewState, nil
}

func (e *Engine) applyDataNode(ctx context.Context, node *dag.Node, evaluator *lang.Evaluator) (cty.Value, error) {
	conn, err := e.Providers.GetConnection(node.ProviderSource, "")
	if err != nil {
		return cty.NilVal, err
	}
	schemaResp, err := e.Providers.Schema(node.ProviderSource)
	if err != nil {
		return cty.NilVal, err
	}
	block := schemaResp.DataSources[node.BaseAddr.Type].Block

	cfg, cfgDiags := evalConfig(evaluator, node.Resource.Config)
	if cfgDiags.HasErrors() {
		return cty.NilVal, cfgDiags.Err()
	}
	shaped := shape.Shape(cfg, block)

	resp := conn.ReadDataSource(providers.ReadDataSourceRequest{
		TypeName: node.BaseAddr.Type,
		Config:   shaped,
	})
	if resp.Diagnostics.HasErrors() {
		return cty.NilVal, resp.Diagnostics.Err()
	}
	return resp.State, nil
}

// loadPrior loads the resource's stored state, coerced against its current
// schema type (the store's own decode is schema-less, §4.A/§4.D), or a null
// value of that type if no row exists yet.
func (e *Engine) loadPrior(ctx context.Context, address string, block *providers.Block) (cty.Value, bool, error) {
	row, err := e.Store.GetResource(ctx, e.WorkspaceID, address)
	switch {
	case err == nil:
		return shape.CoerceToType(row.Attributes, block.ImpliedType()), true, nil
	case errors.Is(err, state.ErrNotFound):
		return cty.NullVal(block.ImpliedType()), false, nil
	default:
		return cty.NilVal, false, err
	}
}

func (e *Engine) recordRunResource(ctx context.Context, runID, address, action, status string, resultErr error) {
	now := time.Now()
	msg := ""
	if resultErr != nil {
		msg = resultErr.Error()
	}
	if err := e.Store.RecordRunResource(ctx, runID, state.RunResourceResult{
		Address:     address,
		Action:      action,
		Status:      status,
		StartedAt:   &now,
		CompletedAt: &now,
		Error:       msg,
	}); err != nil {
		e.Log.Warn("recording run resource", "address", address, "err", err)
	}
}

// persistOutputs evaluates every declared output against the walk's final
// live-state map and persists the results. §9's design notes leave output
// persistence optional; this Engine does persist them since the State
// Store already models an Output record for exactly this purpose and a
// caller has no other way to retrieve an apply's output values afterward.
func (e *Engine) persistOutputs(ctx context.Context, g *dag.Graph, evaluator *lang.Evaluator) tfdiags.Diagnostics {
	var diags tfdiags.Diagnostics
	var outputs []*dag.Node
	for _, node := range g.Nodes {
		if node.Kind == dag.OutputNode {
			outputs = append(outputs, node)
		}
	}
	if len(outputs) == 0 {
		return diags
	}
	if err := e.Store.ClearOutputs(ctx, e.WorkspaceID); err != nil {
		e.Log.Warn("clearing outputs", "err", err)
		return diags.Append(err)
	}
	for _, node := range outputs {
		val, evalDiags := evaluator.Eval(node.Output.ValueExpr)
		diags = diags.Append(evalDiags)
		if err := e.Store.SetOutput(ctx, state.Output{
			WorkspaceID: e.WorkspaceID,
			ModulePath:  node.Output.ModulePath,
			Name:        node.OutputName,
			Value:       val,
			Sensitive:   node.Output.Sensitive,
		}); err != nil {
			e.Log.Warn("setting output", "name", node.OutputName, "err", err)
		}
	}
	return diags
}
