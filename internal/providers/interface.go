// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package providers

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/tfdiags"
)

// Interface is the domain-level contract the Provider Adapter (spec.md
// §4.B) implements: every request/response pair is already decoded to
// cty.Value, with wire encoding and gRPC dispatch entirely hidden behind
// it. Grounded on the teacher's internal/providers.Interface (filtered from
// this retrieval pack down to its addressed_types_test.go; the method set
// below is reconstructed from internal/plugin/grpc_provider.go's
// implementation of it), trimmed to exactly the operations §4.B names —
// no provisioner hooks, no UI input/output callbacks, no workspace-state
// passthrough methods the teacher's CLI-facing surface needs but this core
// does not.
type Interface interface {
	GetProviderSchema() GetProviderSchemaResponse
	ValidateProviderConfig(ValidateProviderConfigRequest) ValidateProviderConfigResponse
	ValidateResourceConfig(ValidateResourceConfigRequest) ValidateResourceConfigResponse
	ValidateDataResourceConfig(ValidateDataResourceConfigRequest) ValidateDataResourceConfigResponse
	ConfigureProvider(ConfigureProviderRequest) ConfigureProviderResponse
	PlanResourceChange(PlanResourceChangeRequest) PlanResourceChangeResponse
	ApplyResourceChange(ApplyResourceChangeRequest) ApplyResourceChangeResponse
	ReadResource(ReadResourceRequest) ReadResourceResponse
	ReadDataSource(ReadDataSourceRequest) ReadDataSourceResponse
	ImportResourceState(ImportResourceStateRequest) ImportResourceStateResponse
	Stop() error
	Close() error
}

// ValidateProviderConfigRequest/Response shape the provider-block
// validation call; this core does not currently invoke it (§4.B names
// get_schema/configure/plan/apply/read/import/validate at the *resource*
// level), but it is part of Interface for parity with a real provider
// client and so a future caller can validate provider blocks the same way
// resource blocks are validated.
type ValidateProviderConfigRequest struct {
	Config cty.Value
}

type ValidateProviderConfigResponse struct {
	PreparedConfig cty.Value
	Diagnostics    tfdiags.Diagnostics
}

type ValidateResourceConfigRequest struct {
	TypeName string
	Config   cty.Value
}

type ValidateResourceConfigResponse struct {
	Diagnostics tfdiags.Diagnostics
}

type ValidateDataResourceConfigRequest struct {
	TypeName string
	Config   cty.Value
}

type ValidateDataResourceConfigResponse struct {
	Diagnostics tfdiags.Diagnostics
}

type ConfigureProviderRequest struct {
	TerraformVersion string
	Config           cty.Value
}

type ConfigureProviderResponse struct {
	Diagnostics tfdiags.Diagnostics
}

type PlanResourceChangeRequest struct {
	TypeName         string
	PriorState       cty.Value
	ProposedNewState cty.Value
	Config           cty.Value
	PriorPrivate     []byte
	ProviderMeta     cty.Value
}

type PlanResourceChangeResponse struct {
	PlannedState     cty.Value
	RequiresReplace  []cty.Path
	PlannedPrivate   []byte
	LegacyTypeSystem bool
	Diagnostics      tfdiags.Diagnostics
}

type ApplyResourceChangeRequest struct {
	TypeName       string
	PriorState     cty.Value
	PlannedState   cty.Value
	Config         cty.Value
	PlannedPrivate []byte
	ProviderMeta   cty.Value
}

type ApplyResourceChangeResponse struct {
	NewState         cty.Value
	Private          []byte
	LegacyTypeSystem bool
	Diagnostics      tfdiags.Diagnostics
}

type ReadResourceRequest struct {
	TypeName     string
	PriorState   cty.Value
	Private      []byte
	ProviderMeta cty.Value
}

type ReadResourceResponse struct {
	NewState    cty.Value
	Private     []byte
	Diagnostics tfdiags.Diagnostics
}

type ReadDataSourceRequest struct {
	TypeName     string
	Config       cty.Value
	ProviderMeta cty.Value
}

type ReadDataSourceResponse struct {
	State       cty.Value
	Diagnostics tfdiags.Diagnostics
}

type ImportResourceStateRequest struct {
	TypeName string
	ID       string
}

type ImportedResource struct {
	TypeName string
	State    cty.Value
	Private  []byte
}

type ImportResourceStateResponse struct {
	ImportedResources []ImportedResource
	Diagnostics       tfdiags.Diagnostics
}
