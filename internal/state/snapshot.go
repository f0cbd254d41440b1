// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// externalSnapshot mirrors the subset of a Terraform/OpenTofu JSON state
// file (format_version "1.0") that import_snapshot understands: top-level
// resources with their instances, and a flat outputs map.
type externalSnapshot struct {
	FormatVersion string             `mapstructure:"terraform_version,omitempty"`
	Resources     []externalResource `mapstructure:"resources"`
	Outputs       map[string]externalOutput `mapstructure:"outputs"`
}

type externalResource struct {
	Module    string             `mapstructure:"module"`
	Mode      string             `mapstructure:"mode"`
	Type      string             `mapstructure:"type"`
	Name      string             `mapstructure:"name"`
	Provider  string             `mapstructure:"provider"`
	Instances []externalInstance `mapstructure:"instances"`
}

type externalInstance struct {
	IndexKey      interface{}            `mapstructure:"index_key"`
	SchemaVersion int64                  `mapstructure:"schema_version"`
	Attributes    map[string]interface{} `mapstructure:"attributes"`
	Sensitive     []interface{}          `mapstructure:"sensitive_paths"`
}

type externalOutput struct {
	Value     interface{} `mapstructure:"value"`
	Sensitive bool        `mapstructure:"sensitive"`
}

// SnapshotResult tallies what ImportSnapshot did, for a caller to report.
type SnapshotResult struct {
	ResourcesImported int
	OutputsImported   int
	Skipped           []string
}

// ImportSnapshot decodes raw (a parsed JSON document, e.g. from
// encoding/json.Unmarshal into map[string]interface{}) as an external state
// snapshot and upserts every resource instance and output it describes into
// workspaceID (§4.A "import_snapshot(workspace, external_state)"). Resources
// already present at the same address are overwritten; instances whose
// attributes can't be decoded are skipped and recorded in
// SnapshotResult.Skipped rather than aborting the whole import.
//
// Decoding uses github.com/go-viper/mapstructure/v2, the same
// loosely-typed-JSON-to-struct library the rest of this module's dependency
// graph already carries as a direct requirement.
func (s *Store) ImportSnapshot(ctx context.Context, workspaceID string, raw map[string]interface{}) (*SnapshotResult, error) {
	var snap externalSnapshot
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &snap,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: building snapshot decoder: %w", ErrIo, err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: decoding external state snapshot: %w", ErrIo, err)
	}

	result := &SnapshotResult{}

	for _, res := range snap.Resources {
		for _, inst := range res.Instances {
			addr, key := snapshotAddress(res, inst.IndexKey)

			attrsVal, err := snapshotAttributesToCty(inst.Attributes)
			if err != nil {
				result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", addr, err))
				continue
			}

			sensitivePaths := make([]string, 0, len(inst.Sensitive))
			for _, p := range inst.Sensitive {
				sensitivePaths = append(sensitivePaths, fmt.Sprintf("%v", p))
			}

			mode := "managed"
			if res.Mode == "data" {
				mode = "data"
			}

			r := &Resource{
				WorkspaceID:    workspaceID,
				ModulePath:     res.Module,
				ResourceType:   res.Type,
				ResourceName:   res.Name,
				Mode:           mode,
				ProviderSource: res.Provider,
				IndexKey:       key,
				Address:        addr,
				Status:         StatusCreated,
				Attributes:     attrsVal,
				SensitiveAttrs: sensitivePaths,
				SchemaVersion:  inst.SchemaVersion,
			}
			if err := s.UpsertResource(ctx, r); err != nil {
				return result, err
			}
			result.ResourcesImported++
		}
	}

	for name, out := range snap.Outputs {
		v, err := snapshotValueToCty(out.Value)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("output.%s: %v", name, err))
			continue
		}
		if err := s.SetOutput(ctx, Output{
			WorkspaceID: workspaceID,
			Name:        name,
			Value:       v,
			Sensitive:   out.Sensitive,
		}); err != nil {
			return result, err
		}
		result.OutputsImported++
	}

	return result, nil
}

// snapshotAddress builds the type.name[index] canonical form an index key
// implies, matching addrs.ResourceInstance.String() conventions.
func snapshotAddress(res externalResource, indexKey interface{}) (addr, key string) {
	base := fmt.Sprintf("%s.%s", res.Type, res.Name)
	switch k := indexKey.(type) {
	case nil:
		return base, ""
	case float64:
		return fmt.Sprintf("%s[%d]", base, int(k)), fmt.Sprintf("%d", int(k))
	case string:
		return fmt.Sprintf("%s[%q]", base, k), k
	default:
		return base, ""
	}
}

func snapshotAttributesToCty(attrs map[string]interface{}) (cty.Value, error) {
	return snapshotValueToCty(attrs)
}

// snapshotValueToCty converts an arbitrary decoded-JSON value (map, slice,
// string, float64, bool, nil) into a cty.Value with an implied type, reusing
// the same ctyjson round-trip technique attributes.go uses for the store's
// own on-disk representation.
func snapshotValueToCty(v interface{}) (cty.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("marshaling snapshot value: %w", err)
	}
	impliedType, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, fmt.Errorf("inferring snapshot value type: %w", err)
	}
	val, err := ctyjson.Unmarshal(raw, impliedType)
	if err != nil {
		return cty.NilVal, fmt.Errorf("decoding snapshot value: %w", err)
	}
	return val, nil
}
