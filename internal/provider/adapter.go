// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	plugin "github.com/hashicorp/go-plugin"
	"github.com/zclconf/go-cty/cty"
	"google.golang.org/grpc"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/providers"
	"github.com/opentofu/tofucore/internal/shape"
	"github.com/opentofu/tofucore/internal/tfdiags"
	"github.com/opentofu/tofucore/internal/tfplugin"
)

const (
	// The magic cookie values should NEVER be changed: they identify the
	// Terraform provider protocol itself, not this engine.
	magicCookieKey   = "TF_PLUGIN_MAGIC_COOKIE"
	magicCookieValue = "d602bf8f470bc67ca7faa0386276bbdd4330efaf76d1a219cb4d6991ca9872b2"

	minPluginPort = 10000
	maxPluginPort = 25000

	handshakeTimeout = 30 * time.Second
	shortCallTimeout = 30 * time.Second
	applyCallTimeout = 600 * time.Second
	schemaCallTimeout = 300 * time.Second

	// maxMessageSize and initialWindowSize match §4.B: "the schema of the
	// largest known provider exceeds 200 MiB".
	maxMessageSize    = 256 << 20
	initialWindowSize = (1 << 31) - 1
)

// Config names the provider binary to spawn and the address it is served
// under, for logging and schema-cache keying by the Provider Manager.
type Config struct {
	Addr    addrs.Provider
	Command string
	Args    []string
}

// Provider implements providers.Interface over a single external provider
// process, spawned and handshaked via github.com/hashicorp/go-plugin
// (§4.B "Provider Adapter").
type Provider struct {
	addr   addrs.Provider
	client *plugin.Client
	rpc    *tfplugin.Client

	mu     sync.Mutex
	schema providers.GetProviderSchemaResponse
	cached bool
}

var _ providers.Interface = (*Provider)(nil)

// Spawn starts the provider binary and completes the plugin handshake. It
// blocks until the handshake line has been read and the gRPC channel is
// dialed, or handshakeTimeout elapses.
func Spawn(cfg Config) (*Provider, error) {
	logger := hclog.New(&hclog.LoggerOptions{
		Name: "provider." + cfg.Addr.String(),
		// Only warn/error/fatal from the child's stderr are surfaced;
		// everything finer goes to Debug, matching §4.B's stderr sink
		// rule.
		Level:  hclog.Warn,
		Output: os.Stderr,
	})

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%s", magicCookieKey, magicCookieValue),
		fmt.Sprintf("PLUGIN_MIN_PORT=%d", minPluginPort),
		fmt.Sprintf("PLUGIN_MAX_PORT=%d", maxPluginPort),
	)

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: plugin.HandshakeConfig{
			MagicCookieKey:   magicCookieKey,
			MagicCookieValue: magicCookieValue,
		},
		VersionedPlugins: map[int]plugin.PluginSet{
			5: {"provider": &grpcPlugin{}},
			6: {"provider": &grpcPlugin{}},
		},
		Cmd:              cmd,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Managed:          true,
		Logger:           logger,
		StartTimeout:     handshakeTimeout,
		GRPCDialOptions: []grpc.DialOption{
			grpc.WithInitialWindowSize(initialWindowSize),
			grpc.WithInitialConnWindowSize(initialWindowSize),
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMessageSize),
				grpc.MaxCallSendMsgSize(maxMessageSize),
			),
		},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("provider: starting %s: %w", cfg.Addr, err)
	}

	raw, err := rpcClient.Dispense("provider")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("provider: dispensing %s: %w", cfg.Addr, err)
	}
	conn, ok := raw.(*grpc.ClientConn)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("provider: unexpected connection type %T for %s", raw, cfg.Addr)
	}

	protocolVersion := client.NegotiatedVersion()
	if protocolVersion != 5 && protocolVersion != 6 {
		client.Kill()
		return nil, fmt.Errorf("provider: unsupported protocol version %d for %s", protocolVersion, cfg.Addr)
	}

	return &Provider{
		addr:   cfg.Addr,
		client: client,
		rpc:    &tfplugin.Client{Conn: conn, ProtocolVersion: protocolVersion},
	}, nil
}

// Close kills the child process unconditionally, per §4.B "the child is
// killed on drop".
func (p *Provider) Close() error {
	p.client.Kill()
	return nil
}

// Stop sends a best-effort graceful stop RPC, then always kills the child.
func (p *Provider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shortCallTimeout)
	defer cancel()
	_, _ = p.rpc.Stop(ctx)
	p.client.Kill()
	return nil
}

func (p *Provider) ensureSchema() {
	p.mu.Lock()
	cached := p.cached
	p.mu.Unlock()
	if !cached {
		p.GetProviderSchema()
	}
}

func (p *Provider) resourceBlock(typeName string) *providers.Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.schema.ResourceTypes[typeName]; ok {
		return s.Block
	}
	return nil
}

func (p *Provider) dataSourceBlock(typeName string) *providers.Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.schema.DataSources[typeName]; ok {
		return s.Block
	}
	return nil
}

// GetProviderSchema returns, and caches, the full provider schema. Once a
// non-error schema has been fetched, subsequent calls return the cached
// copy (§4.B "returns, and caches, the full provider schema").
func (p *Provider) GetProviderSchema() providers.GetProviderSchemaResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached {
		return p.schema
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaCallTimeout)
	defer cancel()

	protoResp, err := p.rpc.GetSchema(ctx)
	if err != nil {
		return providers.GetProviderSchemaResponse{Diagnostics: diagFromErr("failed to read provider schema", err)}
	}

	resp := providers.GetProviderSchemaResponse{
		ResourceTypes: make(map[string]providers.Schema, len(protoResp.ResourceSchemas)),
		DataSources:   make(map[string]providers.Schema, len(protoResp.DataSourceSchemas)),
		Functions:     make(map[string]providers.FunctionSpec),
		ServerCapabilities: providers.ServerCapabilities{
			PlanDestroy:               protoResp.ServerCapabilities.PlanDestroy,
			GetProviderSchemaOptional: protoResp.ServerCapabilities.GetProviderSchemaOptional,
		},
	}
	resp.Diagnostics = convertDiagnostics(protoResp.Diagnostics)
	if resp.Diagnostics.HasErrors() {
		return resp
	}

	providerBlock, err := convertBlock(protoResp.Provider)
	if err != nil {
		resp.Diagnostics = resp.Diagnostics.Append(tfdiags.Sourceless(tfdiags.Error, "invalid provider schema", err.Error()))
		return resp
	}
	resp.Provider = providers.Schema{Block: providerBlock}

	if protoResp.ProviderMeta != nil {
		metaBlock, err := convertBlock(protoResp.ProviderMeta)
		if err != nil {
			resp.Diagnostics = resp.Diagnostics.Append(tfdiags.Sourceless(tfdiags.Error, "invalid provider_meta schema", err.Error()))
			return resp
		}
		resp.ProviderMeta = providers.Schema{Block: metaBlock}
	}

	for name, s := range protoResp.ResourceSchemas {
		schema, err := convertSchema(s)
		if err != nil {
			resp.Diagnostics = resp.Diagnostics.Append(tfdiags.Sourceless(tfdiags.Error, fmt.Sprintf("invalid schema for resource %q", name), err.Error()))
			continue
		}
		resp.ResourceTypes[name] = schema
	}
	for name, s := range protoResp.DataSourceSchemas {
		schema, err := convertSchema(s)
		if err != nil {
			resp.Diagnostics = resp.Diagnostics.Append(tfdiags.Sourceless(tfdiags.Error, fmt.Sprintf("invalid schema for data source %q", name), err.Error()))
			continue
		}
		resp.DataSources[name] = schema
	}

	if !resp.Diagnostics.HasErrors() {
		p.schema = resp
		p.cached = true
	}
	return resp
}

// ValidateProviderConfig is part of providers.Interface for parity with a
// real provider client; this engine never invokes it (§4.B names
// validation only at the resource level), so it passes the config through
// unchanged rather than round-tripping an RPC this package never wires up.
func (p *Provider) ValidateProviderConfig(req providers.ValidateProviderConfigRequest) providers.ValidateProviderConfigResponse {
	return providers.ValidateProviderConfigResponse{PreparedConfig: req.Config}
}

func (p *Provider) ValidateResourceConfig(req providers.ValidateResourceConfigRequest) providers.ValidateResourceConfigResponse {
	p.ensureSchema()
	block := p.resourceBlock(req.TypeName)
	if block == nil {
		return providers.ValidateResourceConfigResponse{Diagnostics: diagFromErr("validating resource config", fmt.Errorf("unknown resource type %q", req.TypeName))}
	}
	shaped := shape.Shape(req.Config, block)
	dv, err := encodeDynamicValue(shaped, block.ImpliedType())
	if err != nil {
		return providers.ValidateResourceConfigResponse{Diagnostics: diagFromErr("encoding resource config", err)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shortCallTimeout)
	defer cancel()
	resp, err := p.rpc.ValidateResourceTypeConfig(ctx, &tfplugin.ValidateResourceTypeConfigRequest{TypeName: req.TypeName, Config: dv})
	if err != nil {
		return providers.ValidateResourceConfigResponse{Diagnostics: diagFromErr("validating resource config", err)}
	}
	return providers.ValidateResourceConfigResponse{Diagnostics: convertDiagnostics(resp.Diagnostics)}
}

// ValidateDataResourceConfig is part of providers.Interface for parity;
// this engine never invokes it, since §4.B names validation only for
// managed resources.
func (p *Provider) ValidateDataResourceConfig(req providers.ValidateDataResourceConfigRequest) providers.ValidateDataResourceConfigResponse {
	return providers.ValidateDataResourceConfigResponse{}
}

func (p *Provider) ConfigureProvider(req providers.ConfigureProviderRequest) providers.ConfigureProviderResponse {
	p.ensureSchema()
	p.mu.Lock()
	block := p.schema.Provider.Block
	p.mu.Unlock()

	shaped := shape.Shape(req.Config, block)
	dv, err := encodeDynamicValue(shaped, block.ImpliedType())
	if err != nil {
		return providers.ConfigureProviderResponse{Diagnostics: diagFromErr("encoding provider config", err)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shortCallTimeout)
	defer cancel()
	resp, err := p.rpc.Configure(ctx, &tfplugin.ConfigureRequest{TerraformVersion: req.TerraformVersion, Config: dv})
	if err != nil {
		return providers.ConfigureProviderResponse{Diagnostics: diagFromErr("configuring provider", err)}
	}
	return providers.ConfigureProviderResponse{Diagnostics: convertDiagnostics(resp.Diagnostics)}
}

func (p *Provider) PlanResourceChange(req providers.PlanResourceChangeRequest) providers.PlanResourceChangeResponse {
	p.ensureSchema()
	block := p.resourceBlock(req.TypeName)
	if block == nil {
		return providers.PlanResourceChangeResponse{Diagnostics: diagFromErr("planning resource change", fmt.Errorf("unknown resource type %q", req.TypeName))}
	}
	ty := block.ImpliedType()

	priorDV, err := encodeDynamicValue(req.PriorState, ty)
	if err != nil {
		return providers.PlanResourceChangeResponse{Diagnostics: diagFromErr("encoding prior state", err)}
	}

	// A null proposed state signals a destroy plan (§4.B).
	isDestroy := isNullOrNil(req.ProposedNewState)

	var proposedDV, configDV *tfplugin.DynamicValue
	if isDestroy {
		proposedDV = &tfplugin.DynamicValue{}
		configDV = &tfplugin.DynamicValue{}
	} else {
		proposedDV, err = encodeDynamicValue(req.ProposedNewState, ty)
		if err != nil {
			return providers.PlanResourceChangeResponse{Diagnostics: diagFromErr("encoding proposed state", err)}
		}
		shapedConfig := shape.Shape(req.Config, block)
		configDV, err = encodeDynamicValue(shapedConfig, ty)
		if err != nil {
			return providers.PlanResourceChangeResponse{Diagnostics: diagFromErr("encoding resource config", err)}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shortCallTimeout)
	defer cancel()
	resp, err := p.rpc.PlanResourceChange(ctx, &tfplugin.PlanResourceChangeRequest{
		TypeName:         req.TypeName,
		PriorState:       priorDV,
		ProposedNewState: proposedDV,
		Config:           configDV,
		PriorPrivate:     req.PriorPrivate,
	})
	if err != nil {
		return providers.PlanResourceChangeResponse{Diagnostics: diagFromErr("planning resource change", err)}
	}

	out := providers.PlanResourceChangeResponse{
		RequiresReplace: convertRequiresReplace(resp.RequiresReplace),
		PlannedPrivate:  resp.PlannedPrivate,
		Diagnostics:     convertDiagnostics(resp.Diagnostics),
	}
	if out.Diagnostics.HasErrors() {
		return out
	}
	plannedState, err := decodeDynamicValue(resp.PlannedState, ty)
	if err != nil {
		out.Diagnostics = out.Diagnostics.Append(tfdiags.Sourceless(tfdiags.Error, "decoding planned state", err.Error()))
		return out
	}
	out.PlannedState = plannedState
	return out
}

func (p *Provider) ApplyResourceChange(req providers.ApplyResourceChangeRequest) providers.ApplyResourceChangeResponse {
	p.ensureSchema()
	block := p.resourceBlock(req.TypeName)
	if block == nil {
		return providers.ApplyResourceChangeResponse{Diagnostics: diagFromErr("applying resource change", fmt.Errorf("unknown resource type %q", req.TypeName))}
	}
	ty := block.ImpliedType()

	priorDV, err := encodeDynamicValue(req.PriorState, ty)
	if err != nil {
		return providers.ApplyResourceChangeResponse{Diagnostics: diagFromErr("encoding prior state", err)}
	}

	// A null planned state signals a destroy (§4.B); the response's
	// new_state must be null on a successful destroy.
	isDestroy := isNullOrNil(req.PlannedState)

	var plannedDV, configDV *tfplugin.DynamicValue
	if isDestroy {
		plannedDV = &tfplugin.DynamicValue{}
		configDV = &tfplugin.DynamicValue{}
	} else {
		plannedDV, err = encodeDynamicValue(req.PlannedState, ty)
		if err != nil {
			return providers.ApplyResourceChangeResponse{Diagnostics: diagFromErr("encoding planned state", err)}
		}
		shapedConfig := shape.Shape(req.Config, block)
		configDV, err = encodeDynamicValue(shapedConfig, ty)
		if err != nil {
			return providers.ApplyResourceChangeResponse{Diagnostics: diagFromErr("encoding resource config", err)}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), applyCallTimeout)
	defer cancel()
	resp, err := p.rpc.ApplyResourceChange(ctx, &tfplugin.ApplyResourceChangeRequest{
		TypeName:       req.TypeName,
		PriorState:     priorDV,
		PlannedState:   plannedDV,
		Config:         configDV,
		PlannedPrivate: req.PlannedPrivate,
	})
	if err != nil {
		return providers.ApplyResourceChangeResponse{Diagnostics: diagFromErr("applying resource change", err)}
	}

	out := providers.ApplyResourceChangeResponse{
		Private:     resp.Private,
		Diagnostics: convertDiagnostics(resp.Diagnostics),
	}
	if out.Diagnostics.HasErrors() {
		return out
	}
	if isDestroy {
		out.NewState = cty.NullVal(ty)
		return out
	}
	newState, err := decodeDynamicValue(resp.NewState, ty)
	if err != nil {
		out.Diagnostics = out.Diagnostics.Append(tfdiags.Sourceless(tfdiags.Error, "decoding new state", err.Error()))
		return out
	}
	out.NewState = newState
	return out
}

func (p *Provider) ReadResource(req providers.ReadResourceRequest) providers.ReadResourceResponse {
	p.ensureSchema()
	block := p.resourceBlock(req.TypeName)
	if block == nil {
		return providers.ReadResourceResponse{Diagnostics: diagFromErr("reading resource", fmt.Errorf("unknown resource type %q", req.TypeName))}
	}
	ty := block.ImpliedType()

	currentDV, err := encodeDynamicValue(req.PriorState, ty)
	if err != nil {
		return providers.ReadResourceResponse{Diagnostics: diagFromErr("encoding current state", err)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shortCallTimeout)
	defer cancel()
	resp, err := p.rpc.ReadResource(ctx, &tfplugin.ReadResourceRequest{TypeName: req.TypeName, CurrentState: currentDV, Private: req.Private})
	if err != nil {
		return providers.ReadResourceResponse{Diagnostics: diagFromErr("reading resource", err)}
	}

	out := providers.ReadResourceResponse{Private: resp.Private, Diagnostics: convertDiagnostics(resp.Diagnostics)}
	if out.Diagnostics.HasErrors() {
		return out
	}
	// A nil response signals the real resource is gone (§4.B).
	if resp.NewState == nil || len(resp.NewState.Msgpack) == 0 {
		out.NewState = cty.NullVal(ty)
		return out
	}
	newState, err := decodeDynamicValue(resp.NewState, ty)
	if err != nil {
		out.Diagnostics = out.Diagnostics.Append(tfdiags.Sourceless(tfdiags.Error, "decoding resource state", err.Error()))
		return out
	}
	out.NewState = newState
	return out
}

func (p *Provider) ReadDataSource(req providers.ReadDataSourceRequest) providers.ReadDataSourceResponse {
	p.ensureSchema()
	block := p.dataSourceBlock(req.TypeName)
	if block == nil {
		return providers.ReadDataSourceResponse{Diagnostics: diagFromErr("reading data source", fmt.Errorf("unknown data source type %q", req.TypeName))}
	}
	ty := block.ImpliedType()

	shaped := shape.Shape(req.Config, block)
	configDV, err := encodeDynamicValue(shaped, ty)
	if err != nil {
		return providers.ReadDataSourceResponse{Diagnostics: diagFromErr("encoding data source config", err)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shortCallTimeout)
	defer cancel()
	resp, err := p.rpc.ReadDataSource(ctx, &tfplugin.ReadDataSourceRequest{TypeName: req.TypeName, Config: configDV})
	if err != nil {
		return providers.ReadDataSourceResponse{Diagnostics: diagFromErr("reading data source", err)}
	}

	out := providers.ReadDataSourceResponse{Diagnostics: convertDiagnostics(resp.Diagnostics)}
	if out.Diagnostics.HasErrors() {
		return out
	}
	state, err := decodeDynamicValue(resp.State, ty)
	if err != nil {
		out.Diagnostics = out.Diagnostics.Append(tfdiags.Sourceless(tfdiags.Error, "decoding data source state", err.Error()))
		return out
	}
	out.State = state
	return out
}

func (p *Provider) ImportResourceState(req providers.ImportResourceStateRequest) providers.ImportResourceStateResponse {
	p.ensureSchema()

	ctx, cancel := context.WithTimeout(context.Background(), shortCallTimeout)
	defer cancel()
	resp, err := p.rpc.ImportResourceState(ctx, &tfplugin.ImportResourceStateRequest{TypeName: req.TypeName, ID: req.ID})
	if err != nil {
		return providers.ImportResourceStateResponse{Diagnostics: diagFromErr("importing resource", err)}
	}

	out := providers.ImportResourceStateResponse{Diagnostics: convertDiagnostics(resp.Diagnostics)}
	if out.Diagnostics.HasErrors() {
		return out
	}
	for _, ir := range resp.ImportedResources {
		block := p.resourceBlock(ir.TypeName)
		if block == nil {
			out.Diagnostics = out.Diagnostics.Append(tfdiags.Sourceless(tfdiags.Error, "importing resource", fmt.Sprintf("unknown resource type %q in import result", ir.TypeName)))
			continue
		}
		state, err := decodeDynamicValue(ir.State, block.ImpliedType())
		if err != nil {
			out.Diagnostics = out.Diagnostics.Append(tfdiags.Sourceless(tfdiags.Error, "decoding imported state", err.Error()))
			continue
		}
		out.ImportedResources = append(out.ImportedResources, providers.ImportedResource{
			TypeName: ir.TypeName,
			State:    state,
			Private:  ir.Private,
		})
	}
	return out
}
