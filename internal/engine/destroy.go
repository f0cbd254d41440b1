// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/dag"
	"github.com/opentofu/tofucore/internal/providers"
	"github.com/opentofu/tofucore/internal/shape"
	"github.com/opentofu/tofucore/internal/state"
	"github.com/opentofu/tofucore/internal/tfdiags"
	"github.com/opentofu/tofucore/internal/walker"
)

// DestroyResult is the outcome of one Destroy call.
type DestroyResult struct {
	RunID string

	Destroyed int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
}

// Destroy implements §4.H.3: build the Resource DAG, walk a reversed copy
// of it (every dependent destroyed before the thing it depends on), and
// delete every resource whose state is present. A resource absent from
// state is silently skipped, since there is nothing to destroy.
//
// Providers are initialized the same way Apply does (§4.H.2 step 1) even
// though §4.H.3's prose doesn't repeat that requirement: a real destroy RPC
// needs a configured provider connection exactly as much as an apply does,
// so this Engine performs the same step here (recorded in DESIGN.md).
func (e *Engine) Destroy(ctx context.Context, in Inputs) (*DestroyResult, tfdiags.Diagnostics) {
	start := time.Now()
	var diags tfdiags.Diagnostics

	diags = diags.Append(e.initializeProviders(ctx, in)...)

	g, buildDiags := dag.Build(in.Resources, in.Outputs, in.VarDefaults)
	diags = diags.Append(buildDiags)
	if buildDiags.HasErrors() {
		return nil, diags
	}
	rg := g.Reversed()

	runID, err := e.Store.StartRun(ctx, e.WorkspaceID, state.OpDestroy)
	if err != nil {
		return nil, diags.Append(err)
	}

	// destroyed counts actual deletions. The walker's own Succeeded count
	// also includes resources silently skipped for being absent from state
	// (§4.H.3), which reach a terminal Succeeded status without destroying
	// anything, so it is not a usable proxy for "how many things did this
	// Destroy actually remove".
	var destroyed int64

	exec := func(ctx context.Context, node *dag.Node) (cty.Value, error) {
		if node.Kind != dag.ResourceNode {
			return cty.NilVal, nil
		}
		did, err := e.destroyResourceNode(ctx, runID, node)
		if err == nil && did {
			atomic.AddInt64(&destroyed, 1)
		}
		return cty.NilVal, err
	}

	result := walker.Walk(ctx, rg, exec, walker.Options{
		MaxParallelism: e.MaxParallelism,
		Mode:           walker.DestroyMode,
	})

	status := state.RunSucceeded
	if result.Failed > 0 {
		status = state.RunFailed
	}
	if err := e.Store.CompleteRun(ctx, runID, status, state.RunSummary{
		Planned:   len(rg.Nodes),
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
	}); err != nil {
		diags = diags.Append(err)
	}

	return &DestroyResult{
		RunID:     runID,
		Destroyed: int(atomic.LoadInt64(&destroyed)),
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		Elapsed:   time.Since(start),
	}, diags
}

// destroyResourceNode destroys the single resource node addresses, and
// reports whether a deletion actually happened (false for a resource
// already absent from state, §4.H.3).
func (e *Engine) destroyResourceNode(ctx context.Context, runID string, node *dag.Node) (bool, error) {
	address := resourceAddress(node)

	row, err := e.Store.GetResource(ctx, e.WorkspaceID, address)
	if errors.Is(err, state.ErrNotFound) {
		// §4.H.3 "resources absent from state are silently skipped".
		return false, nil
	}
	if err != nil {
		return false, err
	}

	lock, err := e.Store.AcquireLock(ctx, address, e.WorkspaceID, state.LockInfo{
		Holder:    "engine",
		Operation: string(state.OpDestroy),
	})
	if err != nil {
		return false, err
	}
	defer func() {
		if relErr := e.Store.ReleaseLock(ctx, lock.ID); relErr != nil {
			e.Log.Warn("releasing lock", "address", address, "err", relErr)
		}
	}()

	conn, err := e.Providers.GetConnection(node.ProviderSource, "")
	if err != nil {
		return false, err
	}
	schemaResp, err := e.Providers.Schema(node.ProviderSource)
	if err != nil {
		return false, err
	}
	block := schemaResp.ResourceTypes[node.BaseAddr.Type].Block

	prior := shape.CoerceToType(row.Attributes, block.ImpliedType())

	planResp := conn.PlanResourceChange(providers.PlanResourceChangeRequest{
		TypeName:         node.BaseAddr.Type,
		PriorState:       prior,
		ProposedNewState: cty.NullVal(block.ImpliedType()),
		Config:           cty.NullVal(block.ImpliedType()),
	})
	if planResp.Diagnostics.HasErrors() {
		e.recordRunResource(ctx, runID, address, "destroy", "failed", planResp.Diagnostics.Err())
		return false, planResp.Diagnostics.Err()
	}

	applyResp := conn.ApplyResourceChange(providers.ApplyResourceChangeRequest{
		TypeName:       node.BaseAddr.Type,
		PriorState:     prior,
		PlannedState:   cty.NullVal(block.ImpliedType()),
		Config:         cty.NullVal(block.ImpliedType()),
		PlannedPrivate: planResp.PlannedPrivate,
	})
	if applyResp.Diagnostics.HasErrors() {
		e.recordRunResource(ctx, runID, address, "destroy", "failed", applyResp.Diagnostics.Err())
		return false, applyResp.Diagnostics.Err()
	}

	if err := e.Store.DeleteResource(ctx, e.WorkspaceID, address); err != nil {
		return false, err
	}

	e.recordRunResource(ctx, runID, address, "destroy", "succeeded", nil)
	return true, nil
}
