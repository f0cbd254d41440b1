// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/config"
	"github.com/opentofu/tofucore/internal/dag"
	"github.com/opentofu/tofucore/internal/lang"
	"github.com/opentofu/tofucore/internal/plans"
	"github.com/opentofu/tofucore/internal/providers"
	"github.com/opentofu/tofucore/internal/state"
	"github.com/opentofu/tofucore/internal/tfdiags"
)

// StateStore is the slice of internal/state.Store's method set the Engine
// actually calls. *state.Store satisfies it automatically; tests substitute
// a hand-rolled in-memory double, since the real Store needs a live
// Postgres connection (database/sql has no fake driver in this dependency
// graph, and none of the pack's examples carry a SQL-mocking library). This
// mirrors the internal/providermgr "entry.conn is providers.Interface, not
// the concrete provider client" seam already used for the same reason.
type StateStore interface {
	GetResource(ctx context.Context, workspaceID, address string) (*state.Resource, error)
	UpsertResource(ctx context.Context, r *state.Resource) error
	DeleteResource(ctx context.Context, workspaceID, address string) error

	AcquireLock(ctx context.Context, address, workspaceID string, info state.LockInfo) (*state.Lock, error)
	ReleaseLock(ctx context.Context, lockID string) error

	StartRun(ctx context.Context, workspaceID string, op state.Operation) (string, error)
	CompleteRun(ctx context.Context, runID string, status state.RunStatus, summary state.RunSummary) error
	RecordRunResource(ctx context.Context, runID string, r state.RunResourceResult) error

	SetOutput(ctx context.Context, o state.Output) error
	ClearOutputs(ctx context.Context, workspaceID string) error
}

// ProviderManager is the slice of internal/providermgr.Manager's method set
// the Engine calls, narrowed to an interface for the same testability
// reason as StateStore: tests wire up a fake provider connection without
// spawning a real plugin subprocess. *providermgr.Manager satisfies it
// automatically.
type ProviderManager interface {
	GetConnection(source, constraint string) (providers.Interface, error)
	Provider(source string) (providers.Interface, error)
	Schema(source string) (providers.GetProviderSchemaResponse, error)
	Configure(source, terraformVersion string, config cty.Value) providers.ConfigureProviderResponse
}

// Inputs is the already-resolved configuration the Engine orchestrates for
// one Plan, Apply, or Destroy call: the declared resources/outputs/provider
// blocks the declarative-config parser produced, plus the variable defaults
// the Expression Evaluator needs (§4.E). The Engine builds its own Resource
// DAG from this on every call rather than caching one, since a changed
// count/for_each expression between calls must re-expand.
type Inputs struct {
	Resources   []config.Resource
	Outputs     []config.Output
	Providers   []config.Provider
	VarDefaults map[string]cty.Value
}

// Engine implements spec.md §4.H: Plan, Apply, and Destroy, each building a
// Resource DAG from Inputs and orchestrating it against the Provider
// Manager and the State Store.
type Engine struct {
	Store     StateStore
	Providers ProviderManager

	// WorkspaceID scopes every State Store call this Engine makes.
	WorkspaceID string
	// TerraformVersion is reported to providers during ConfigureProvider.
	TerraformVersion string
	// MaxParallelism bounds the DAG Walker's concurrent node executors
	// during Apply/Destroy (§4.G). Zero means unbounded.
	MaxParallelism int

	Log hclog.Logger
}

// New constructs an Engine. A nil log discards all logging, matching the
// rest of this module's logger-optional convention (internal/state.Open,
// internal/provider.Spawn).
func New(store StateStore, providerMgr ProviderManager, workspaceID, terraformVersion string, maxParallelism int, log hclog.Logger) *Engine {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Engine{
		Store:            store,
		Providers:        providerMgr,
		WorkspaceID:      workspaceID,
		TerraformVersion: terraformVersion,
		MaxParallelism:   maxParallelism,
		Log:              log.Named("engine"),
	}
}

// resourceAddress is the single canonical form this package uses for every
// State Store lookup and write: addrs.ResourceInstance.ModuleQualifiedString.
// internal/state.ImportSnapshot happens to use a different bracketed form
// for resource addresses; that inconsistency predates this package and is
// deliberately not threaded through here.
func resourceAddress(node *dag.Node) string {
	modulePath := ""
	if node.Resource != nil {
		modulePath = node.Resource.ModulePath
	}
	return node.Addr.ModuleQualifiedString(modulePath)
}

// providerAddrFor parses a provider source string into its addrs.Provider
// form for recording on a ResourceInstanceChangeSrc. A parse failure (which
// should not happen for a source the Provider Manager already resolved)
// degrades to the zero Provider rather than aborting the change record.
func providerAddrFor(source string) (addrs.Provider, error) {
	return addrs.ParseProviderSource(source)
}

// indexKeyString renders an addrs.InstanceKey into the "int or quoted
// string form" state.Resource.IndexKey documents, or "" for NoKey.
func indexKeyString(key addrs.InstanceKey) string {
	switch k := key.(type) {
	case addrs.IntKey:
		return strconv.Itoa(int(k))
	case addrs.StringKey:
		return strconv.Quote(string(k))
	default:
		return ""
	}
}

// evalConfig evaluates every attribute expression in cfg against evaluator
// and assembles the results into a single cty object, the sparse
// pre-shaping value the Schema Shaper (§4.D) then conforms to the
// provider's schema block. A nil/empty cfg evaluates to an empty object
// rather than null, since an empty resource block is valid configuration,
// not an absent one.
func evalConfig(evaluator *lang.Evaluator, cfg map[string]hcl.Expression) (cty.Value, tfdiags.Diagnostics) {
	var diags tfdiags.Diagnostics
	if len(cfg) == 0 {
		return cty.EmptyObjectVal, diags
	}
	attrs := map[string]cty.Value{}
	for name, expr := range cfg {
		v, exprDiags := evaluator.Eval(expr)
		diags = diags.Append(exprDiags)
		attrs[name] = v
	}
	return cty.ObjectVal(attrs), diags
}

// classifyAction implements §4.H.1's action table: given a resource's prior
// state, its freshly planned state, and the set of attribute paths the
// provider (or the prior-vs-planned comparison) flagged as forcing
// replacement, decide which plans.Action describes the change.
func classifyAction(prior, planned cty.Value, requiresReplace []cty.Path) plans.Action {
	priorNull := prior == cty.NilVal || prior.IsNull()
	plannedNull := planned == cty.NilVal || planned.IsNull()

	switch {
	case priorNull && plannedNull:
		return plans.NoOp
	case priorNull && !plannedNull:
		return plans.Create
	case !priorNull && plannedNull:
		return plans.Delete
	case prior.RawEquals(planned):
		return plans.NoOp
	case len(requiresReplace) == 0:
		return plans.Update
	default:
		return plans.DeleteThenCreate
	}
}
