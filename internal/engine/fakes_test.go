// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/providers"
	"github.com/opentofu/tofucore/internal/state"
)

// mustExpr mirrors internal/dag's own test helper: parse an HCL expression
// from source rather than hand-building an hclsyntax tree.
func mustExpr(t require.TestingT, src string) hcl.Expression {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.tf", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "%s", diags)
	return expr
}

// fakeStore is an in-memory StateStore double. Every method locks the same
// mutex, matching the real Store's single *sql.DB serialization without
// needing one.
type fakeStore struct {
	mu sync.Mutex

	resources map[string]*state.Resource
	outputs   map[string]state.Output
	locks     map[string]string // address -> lock id
	runs      map[string]*state.Run
	runRes    map[string][]state.RunResourceResult

	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		resources: map[string]*state.Resource{},
		outputs:   map[string]state.Output{},
		locks:     map[string]string{},
		runs:      map[string]*state.Run{},
		runRes:    map[string][]state.RunResourceResult{},
	}
}

func (f *fakeStore) genID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeStore) GetResource(ctx context.Context, workspaceID, address string) (*state.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resources[address]
	if !ok {
		return nil, fmt.Errorf("%w: resource %s", state.ErrNotFound, address)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) UpsertResource(ctx context.Context, r *state.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = f.genID()
	}
	cp := *r
	f.resources[r.Address] = &cp
	return nil
}

func (f *fakeStore) DeleteResource(ctx context.Context, workspaceID, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.resources, address)
	return nil
}

func (f *fakeStore) AcquireLock(ctx context.Context, address, workspaceID string, info state.LockInfo) (*state.Lock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.locks[address]; held {
		return nil, fmt.Errorf("%w: %s", state.ErrAlreadyLocked, address)
	}
	id := f.genID()
	f.locks[address] = id
	return &state.Lock{ID: id, Address: address, WorkspaceID: workspaceID, Holder: info.Holder, Operation: info.Operation}, nil
}

func (f *fakeStore) ReleaseLock(ctx context.Context, lockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for addr, id := range f.locks {
		if id == lockID {
			delete(f.locks, addr)
			return nil
		}
	}
	return fmt.Errorf("%w: lock %s", state.ErrNotFound, lockID)
}

func (f *fakeStore) StartRun(ctx context.Context, workspaceID string, op state.Operation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.genID()
	f.runs[id] = &state.Run{ID: id, WorkspaceID: workspaceID, Operation: op, Status: state.RunRunning}
	return id, nil
}

func (f *fakeStore) CompleteRun(ctx context.Context, runID string, status state.RunStatus, summary state.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok {
		return fmt.Errorf("%w: run %s", state.ErrNotFound, runID)
	}
	run.Status = status
	run.Planned, run.Succeeded, run.Failed, run.Skipped = summary.Planned, summary.Succeeded, summary.Failed, summary.Skipped
	run.Error = summary.Error
	return nil
}

func (f *fakeStore) RecordRunResource(ctx context.Context, runID string, r state.RunResourceResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runRes[runID] = append(f.runRes[runID], r)
	return nil
}

func (f *fakeStore) SetOutput(ctx context.Context, o state.Output) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[o.Name] = o
	return nil
}

func (f *fakeStore) ClearOutputs(ctx context.Context, workspaceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs = map[string]state.Output{}
	return nil
}

// fakeProviderManager is an in-memory ProviderManager double, backed by
// pre-registered schemas and a connection double per source. Mirrors
// internal/providermgr/manager_test.go's seedConnection/stubProvider
// pattern, just one level up.
type fakeProviderManager struct {
	mu            sync.Mutex
	schemas       map[string]providers.GetProviderSchemaResponse
	conns         map[string]providers.Interface
	configureLog  []string
	connectionErr error
}

func newFakeProviderManager() *fakeProviderManager {
	return &fakeProviderManager{
		schemas: map[string]providers.GetProviderSchemaResponse{},
		conns:   map[string]providers.Interface{},
	}
}

func (f *fakeProviderManager) register(source string, schema providers.GetProviderSchemaResponse, conn providers.Interface) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas[source] = schema
	f.conns[source] = conn
}

func (f *fakeProviderManager) GetConnection(source, constraint string) (providers.Interface, error) {
	if f.connectionErr != nil {
		return nil, f.connectionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[source]
	if !ok {
		return nil, fmt.Errorf("no connection registered for %s", source)
	}
	return conn, nil
}

func (f *fakeProviderManager) Provider(source string) (providers.Interface, error) {
	return f.GetConnection(source, "")
}

func (f *fakeProviderManager) Schema(source string) (providers.GetProviderSchemaResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	schema, ok := f.schemas[source]
	if !ok {
		return providers.GetProviderSchemaResponse{}, fmt.Errorf("no schema registered for %s", source)
	}
	return schema, nil
}

func (f *fakeProviderManager) Configure(source, terraformVersion string, config cty.Value) providers.ConfigureProviderResponse {
	f.mu.Lock()
	f.configureLog = append(f.configureLog, source)
	f.mu.Unlock()
	return providers.ConfigureProviderResponse{}
}

// stubResourceProvider is a providers.Interface double that tracks what it
// was asked to plan/apply/read and, for the managed resource type "widget",
// behaves like a real provider computing a "computed_id" attribute.
type stubResourceProvider struct {
	mu sync.Mutex

	planCalls  int
	applyCalls int
	readCalls  int

	requireReplaceOn string // attribute name; non-empty forces RequiresReplace
}

var _ providers.Interface = (*stubResourceProvider)(nil)

func (s *stubResourceProvider) GetProviderSchema() providers.GetProviderSchemaResponse {
	return providers.GetProviderSchemaResponse{}
}

func (s *stubResourceProvider) ValidateProviderConfig(req providers.ValidateProviderConfigRequest) providers.ValidateProviderConfigResponse {
	return providers.ValidateProviderConfigResponse{PreparedConfig: req.Config}
}

func (s *stubResourceProvider) ValidateResourceConfig(providers.ValidateResourceConfigRequest) providers.ValidateResourceConfigResponse {
	return providers.ValidateResourceConfigResponse{}
}

func (s *stubResourceProvider) ValidateDataResourceConfig(providers.ValidateDataResourceConfigRequest) providers.ValidateDataResourceConfigResponse {
	return providers.ValidateDataResourceConfigResponse{}
}

func (s *stubResourceProvider) ConfigureProvider(providers.ConfigureProviderRequest) providers.ConfigureProviderResponse {
	return providers.ConfigureProviderResponse{}
}

func (s *stubResourceProvider) PlanResourceChange(req providers.PlanResourceChangeRequest) providers.PlanResourceChangeResponse {
	s.mu.Lock()
	s.planCalls++
	s.mu.Unlock()

	planned := req.ProposedNewState
	var requiresReplace []cty.Path
	if !req.ProposedNewState.IsNull() && s.requireReplaceOn != "" && !req.PriorState.IsNull() {
		priorAttr := req.PriorState.GetAttr(s.requireReplaceOn)
		newAttr := req.ProposedNewState.GetAttr(s.requireReplaceOn)
		if !priorAttr.RawEquals(newAttr) {
			requiresReplace = []cty.Path{cty.GetAttrPath(s.requireReplaceOn)}
		}
	}
	if !planned.IsNull() {
		attrs := planned.AsValueMap()
		if attrs == nil {
			attrs = map[string]cty.Value{}
		}
		attrs["computed_id"] = cty.StringVal("computed-" + attrs["name"].AsString())
		planned = cty.ObjectVal(attrs)
	}
	return providers.PlanResourceChangeResponse{
		PlannedState:    planned,
		RequiresReplace: requiresReplace,
	}
}

func (s *stubResourceProvider) ApplyResourceChange(req providers.ApplyResourceChangeRequest) providers.ApplyResourceChangeResponse {
	s.mu.Lock()
	s.applyCalls++
	s.mu.Unlock()
	return providers.ApplyResourceChangeResponse{NewState: req.PlannedState}
}

func (s *stubResourceProvider) ReadResource(req providers.ReadResourceRequest) providers.ReadResourceResponse {
	return providers.ReadResourceResponse{NewState: req.PriorState}
}

func (s *stubResourceProvider) ReadDataSource(req providers.ReadDataSourceRequest) providers.ReadDataSourceResponse {
	s.mu.Lock()
	s.readCalls++
	s.mu.Unlock()
	return providers.ReadDataSourceResponse{State: req.Config}
}

func (s *stubResourceProvider) ImportResourceState(providers.ImportResourceStateRequest) providers.ImportResourceStateResponse {
	return providers.ImportResourceStateResponse{}
}

func (s *stubResourceProvider) Stop() error  { return nil }
func (s *stubResourceProvider) Close() error { return nil }

// widgetBlock is the shared provider-schema block every test wires up: a
// single "name" (required string) attribute plus a "computed_id" computed
// attribute the stub provider fills in.
func widgetBlock() *providers.Block {
	return &providers.Block{
		Attributes: map[string]*providers.Attribute{
			"name":        {Type: cty.String, Required: true},
			"computed_id": {Type: cty.String, Computed: true},
		},
	}
}

func widgetSchemaResponse() providers.GetProviderSchemaResponse {
	return providers.GetProviderSchemaResponse{
		ResourceTypes: map[string]providers.Schema{
			"widget": {Version: 1, Block: widgetBlock()},
		},
		DataSources: map[string]providers.Schema{
			"widget": {Version: 1, Block: widgetBlock()},
		},
	}
}
