// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package reportfmt

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/plans"
)

// ResourceChange is one decoded resource-instance change ready for
// rendering: plans.ResourceInstanceChangeSrc carries its prior/planned
// values as opaque plans.DynamicValue bytes, which need a schema's implied
// type to decode. Building a []ResourceChange is the caller's job (it has
// the schema the Provider Manager cached); this package only renders.
type ResourceChange struct {
	Address         string
	ResourceType    string
	Action          plans.Action
	Prior           cty.Value
	Planned         cty.Value
	RequiresReplace []cty.Path
}

// BuildResourceChanges decodes every plans.ResourceInstanceChangeSrc in
// changes against the implied type its resource type names in types,
// keyed by the bare resource type name (e.g. "aws_instance"). A change
// whose type isn't in the map is skipped with an error rather than
// aborting the whole batch, mirroring Plan's own "log and continue" policy
// (§4.H.1).
func BuildResourceChanges(changes *plans.Changes, types map[string]cty.Type) ([]ResourceChange, []error) {
	if changes == nil {
		return nil, nil
	}
	var out []ResourceChange
	var errs []error
	for _, rc := range changes.Resources {
		resourceType := rc.Addr.Resource.Type
		ty, ok := types[resourceType]
		if !ok {
			errs = append(errs, fmt.Errorf("no schema type registered for %s", resourceType))
			continue
		}
		prior, err := decodeOrNull(rc.Before, ty)
		if err != nil {
			errs = append(errs, fmt.Errorf("decoding prior state for %s: %w", rc.Addr, err))
			continue
		}
		planned, err := decodeOrNull(rc.After, ty)
		if err != nil {
			errs = append(errs, fmt.Errorf("decoding planned state for %s: %w", rc.Addr, err))
			continue
		}
		out = append(out, ResourceChange{
			Address:         rc.Addr.ModuleQualifiedString(rc.ModulePath),
			ResourceType:    resourceType,
			Action:          rc.Action,
			Prior:           prior,
			Planned:         planned,
			RequiresReplace: rc.RequiresReplace,
		})
	}
	return out, errs
}

func decodeOrNull(v plans.DynamicValue, ty cty.Type) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(ty), nil
	}
	return v.Decode(ty)
}
