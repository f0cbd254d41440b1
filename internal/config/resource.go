// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config defines the seam between this core orchestrator and the
// declarative-configuration parser named as an out-of-scope external
// collaborator in spec.md §1: the in-memory resource model the parser
// produces and the Resource DAG (§4.F) consumes. The teacher bundles this
// into its much larger internal/configs package (HCL file loading, module
// call resolution, variable/provider block parsing); this is the minimal
// contract this core actually needs from that layer.
package config

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/opentofu/tofucore/internal/addrs"
)

// Resource is one declared resource or data source block: unexpanded, with
// its count/for_each expressions (if any) left unevaluated and its
// attribute values as hcl.Expression (possibly nil for attributes the user
// didn't set), exactly as spec.md §3's Resource instance describes prior
// to the Resource DAG's expansion pass.
type Resource struct {
	Mode           addrs.ResourceMode
	Type           string
	Name           string
	ModulePath     string
	ProviderSource string

	CountExpr   hcl.Expression
	ForEachExpr hcl.Expression

	// Config holds every attribute the user set, by name. Values may
	// themselves be nested object/list expressions; the Schema Shaper
	// (§4.D) is what reconciles this sparse tree against the provider's
	// full schema, not this package.
	Config map[string]hcl.Expression

	// DependsOn lists the traversals behind explicit "depends_on" entries
	// (§4.F explicit edges).
	DependsOn []hcl.Traversal
}

func (r Resource) Addr() addrs.Resource {
	return addrs.Resource{Mode: r.Mode, Type: r.Type, Name: r.Name}
}

// Output is a declared output value block.
type Output struct {
	Name        string
	ModulePath  string
	ValueExpr   hcl.Expression
	Sensitive   bool
	DependsOn   []hcl.Traversal
}

// Provider is a declared provider configuration block: a source plus the
// sparse config to send through Configure (§4.B/§4.C) once shaped.
type Provider struct {
	Source string
	Config map[string]hcl.Expression
}
