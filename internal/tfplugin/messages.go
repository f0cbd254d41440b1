// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tfplugin

import "google.golang.org/protobuf/encoding/protowire"

func unmarshalDynamicValue(val []byte) (*DynamicValue, error) {
	if val == nil {
		return nil, nil
	}
	v := &DynamicValue{}
	if err := v.Unmarshal(val); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalDynamicValue(v *DynamicValue) []byte {
	if v == nil {
		return nil
	}
	b, _ := v.Marshal()
	return b
}

// --- GetSchema ---

type GetProviderSchemaRequest struct{}

func (r *GetProviderSchemaRequest) Marshal() ([]byte, error) { return nil, nil }
func (r *GetProviderSchemaRequest) Unmarshal(b []byte) error { return nil }

type GetProviderSchemaResponse struct {
	Provider           *Block
	ProviderMeta       *Block
	ResourceSchemas    map[string]Schema
	DataSourceSchemas  map[string]Schema
	Diagnostics        []Diagnostic
	ServerCapabilities ServerCapabilities
}

func (r *GetProviderSchemaResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendMessage(b, 1, marshalBlock(r.Provider))
	for name, s := range r.ResourceSchemas {
		entry := appendString(nil, 1, name)
		entry = appendMessage(entry, 2, marshalSchema(s))
		b = appendMessage(b, 2, entry)
	}
	for name, s := range r.DataSourceSchemas {
		entry := appendString(nil, 1, name)
		entry = appendMessage(entry, 2, marshalSchema(s))
		b = appendMessage(b, 3, entry)
	}
	b = appendDiagnostics(b, 4, r.Diagnostics)
	b = appendMessage(b, 5, marshalBlock(r.ProviderMeta))
	b = appendMessage(b, 6, marshalServerCapabilities(r.ServerCapabilities))
	return b, nil
}

func (r *GetProviderSchemaResponse) Unmarshal(b []byte) error {
	r.ResourceSchemas = map[string]Schema{}
	r.DataSourceSchemas = map[string]Schema{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			blk, err := unmarshalBlock(val)
			if err != nil {
				return err
			}
			r.Provider = blk
		case 2, 3:
			var name string
			var schema Schema
			err := walkFields(val, func(enum protowire.Number, _ protowire.Type, eval []byte, _ uint64) error {
				switch enum {
				case 1:
					name = string(eval)
				case 2:
					s, err := unmarshalSchema(eval)
					if err != nil {
						return err
					}
					schema = s
				}
				return nil
			})
			if err != nil {
				return err
			}
			if num == 2 {
				r.ResourceSchemas[name] = schema
			} else {
				r.DataSourceSchemas[name] = schema
			}
		case 4:
			d, err := unmarshalDiagnostic(val)
			if err != nil {
				return err
			}
			r.Diagnostics = append(r.Diagnostics, d)
		case 5:
			blk, err := unmarshalBlock(val)
			if err != nil {
				return err
			}
			r.ProviderMeta = blk
		case 6:
			c, err := unmarshalServerCapabilities(val)
			if err != nil {
				return err
			}
			r.ServerCapabilities = c
		}
		return nil
	})
}

// --- Configure ---

type ConfigureRequest struct {
	TerraformVersion string
	Config           *DynamicValue
}

func (r *ConfigureRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, r.TerraformVersion)
	b = appendMessage(b, 2, marshalDynamicValue(r.Config))
	return b, nil
}

func (r *ConfigureRequest) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			r.TerraformVersion = string(val)
		case 2:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.Config = v
		}
		return nil
	})
}

type ConfigureResponse struct {
	Diagnostics []Diagnostic
}

func (r *ConfigureResponse) Marshal() ([]byte, error) {
	return appendDiagnostics(nil, 1, r.Diagnostics), nil
}

func (r *ConfigureResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		if num == 1 {
			d, err := unmarshalDiagnostic(val)
			if err != nil {
				return err
			}
			r.Diagnostics = append(r.Diagnostics, d)
		}
		return nil
	})
}

// --- ValidateResourceTypeConfig ---

type ValidateResourceTypeConfigRequest struct {
	TypeName string
	Config   *DynamicValue
}

func (r *ValidateResourceTypeConfigRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, r.TypeName)
	b = appendMessage(b, 2, marshalDynamicValue(r.Config))
	return b, nil
}

func (r *ValidateResourceTypeConfigRequest) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			r.TypeName = string(val)
		case 2:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.Config = v
		}
		return nil
	})
}

type ValidateResourceTypeConfigResponse struct {
	Diagnostics []Diagnostic
}

func (r *ValidateResourceTypeConfigResponse) Marshal() ([]byte, error) {
	return appendDiagnostics(nil, 1, r.Diagnostics), nil
}

func (r *ValidateResourceTypeConfigResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		if num == 1 {
			d, err := unmarshalDiagnostic(val)
			if err != nil {
				return err
			}
			r.Diagnostics = append(r.Diagnostics, d)
		}
		return nil
	})
}

// --- PlanResourceChange ---

type PlanResourceChangeRequest struct {
	TypeName         string
	PriorState       *DynamicValue
	ProposedNewState *DynamicValue
	Config           *DynamicValue
	PriorPrivate     []byte
}

func (r *PlanResourceChangeRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, r.TypeName)
	b = appendMessage(b, 2, marshalDynamicValue(r.PriorState))
	b = appendMessage(b, 3, marshalDynamicValue(r.ProposedNewState))
	b = appendMessage(b, 4, marshalDynamicValue(r.Config))
	b = appendBytes(b, 5, r.PriorPrivate)
	return b, nil
}

func (r *PlanResourceChangeRequest) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			r.TypeName = string(val)
		case 2:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.PriorState = v
		case 3:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.ProposedNewState = v
		case 4:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.Config = v
		case 5:
			r.PriorPrivate = append([]byte(nil), val...)
		}
		return nil
	})
}

type PlanResourceChangeResponse struct {
	PlannedState    *DynamicValue
	RequiresReplace []*AttributePath
	PlannedPrivate  []byte
	Diagnostics     []Diagnostic
}

func (r *PlanResourceChangeResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendMessage(b, 1, marshalDynamicValue(r.PlannedState))
	for _, p := range r.RequiresReplace {
		b = appendMessage(b, 2, marshalAttributePath(p))
	}
	b = appendBytes(b, 3, r.PlannedPrivate)
	b = appendDiagnostics(b, 4, r.Diagnostics)
	return b, nil
}

func (r *PlanResourceChangeResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.PlannedState = v
		case 2:
			p, err := unmarshalAttributePath(val)
			if err != nil {
				return err
			}
			r.RequiresReplace = append(r.RequiresReplace, p)
		case 3:
			r.PlannedPrivate = append([]byte(nil), val...)
		case 4:
			d, err := unmarshalDiagnostic(val)
			if err != nil {
				return err
			}
			r.Diagnostics = append(r.Diagnostics, d)
		}
		return nil
	})
}

// --- ApplyResourceChange ---

type ApplyResourceChangeRequest struct {
	TypeName       string
	PriorState     *DynamicValue
	PlannedState   *DynamicValue
	Config         *DynamicValue
	PlannedPrivate []byte
}

func (r *ApplyResourceChangeRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, r.TypeName)
	b = appendMessage(b, 2, marshalDynamicValue(r.PriorState))
	b = appendMessage(b, 3, marshalDynamicValue(r.PlannedState))
	b = appendMessage(b, 4, marshalDynamicValue(r.Config))
	b = appendBytes(b, 5, r.PlannedPrivate)
	return b, nil
}

func (r *ApplyResourceChangeRequest) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			r.TypeName = string(val)
		case 2:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.PriorState = v
		case 3:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.PlannedState = v
		case 4:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.Config = v
		case 5:
			r.PlannedPrivate = append([]byte(nil), val...)
		}
		return nil
	})
}

type ApplyResourceChangeResponse struct {
	NewState    *DynamicValue
	Private     []byte
	Diagnostics []Diagnostic
}

func (r *ApplyResourceChangeResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendMessage(b, 1, marshalDynamicValue(r.NewState))
	b = appendBytes(b, 2, r.Private)
	b = appendDiagnostics(b, 3, r.Diagnostics)
	return b, nil
}

func (r *ApplyResourceChangeResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.NewState = v
		case 2:
			r.Private = append([]byte(nil), val...)
		case 3:
			d, err := unmarshalDiagnostic(val)
			if err != nil {
				return err
			}
			r.Diagnostics = append(r.Diagnostics, d)
		}
		return nil
	})
}

// --- ReadResource ---

type ReadResourceRequest struct {
	TypeName     string
	CurrentState *DynamicValue
	Private      []byte
}

func (r *ReadResourceRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, r.TypeName)
	b = appendMessage(b, 2, marshalDynamicValue(r.CurrentState))
	b = appendBytes(b, 3, r.Private)
	return b, nil
}

func (r *ReadResourceRequest) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			r.TypeName = string(val)
		case 2:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.CurrentState = v
		case 3:
			r.Private = append([]byte(nil), val...)
		}
		return nil
	})
}

type ReadResourceResponse struct {
	NewState    *DynamicValue
	Private     []byte
	Diagnostics []Diagnostic
}

func (r *ReadResourceResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendMessage(b, 1, marshalDynamicValue(r.NewState))
	b = appendDiagnostics(b, 2, r.Diagnostics)
	b = appendBytes(b, 3, r.Private)
	return b, nil
}

func (r *ReadResourceResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.NewState = v
		case 2:
			d, err := unmarshalDiagnostic(val)
			if err != nil {
				return err
			}
			r.Diagnostics = append(r.Diagnostics, d)
		case 3:
			r.Private = append([]byte(nil), val...)
		}
		return nil
	})
}

// --- ReadDataSource ---

type ReadDataSourceRequest struct {
	TypeName string
	Config   *DynamicValue
}

func (r *ReadDataSourceRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, r.TypeName)
	b = appendMessage(b, 2, marshalDynamicValue(r.Config))
	return b, nil
}

func (r *ReadDataSourceRequest) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			r.TypeName = string(val)
		case 2:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.Config = v
		}
		return nil
	})
}

type ReadDataSourceResponse struct {
	State       *DynamicValue
	Diagnostics []Diagnostic
}

func (r *ReadDataSourceResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendMessage(b, 1, marshalDynamicValue(r.State))
	b = appendDiagnostics(b, 2, r.Diagnostics)
	return b, nil
}

func (r *ReadDataSourceResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			r.State = v
		case 2:
			d, err := unmarshalDiagnostic(val)
			if err != nil {
				return err
			}
			r.Diagnostics = append(r.Diagnostics, d)
		}
		return nil
	})
}

// --- ImportResourceState ---

type ImportResourceStateRequest struct {
	TypeName string
	ID       string
}

func (r *ImportResourceStateRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, r.TypeName)
	b = appendString(b, 2, r.ID)
	return b, nil
}

func (r *ImportResourceStateRequest) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			r.TypeName = string(val)
		case 2:
			r.ID = string(val)
		}
		return nil
	})
}

type ImportedResource struct {
	TypeName string
	State    *DynamicValue
	Private  []byte
}

func marshalImportedResource(ir ImportedResource) []byte {
	var b []byte
	b = appendString(b, 1, ir.TypeName)
	b = appendMessage(b, 2, marshalDynamicValue(ir.State))
	b = appendBytes(b, 3, ir.Private)
	return b
}

func unmarshalImportedResource(b []byte) (ImportedResource, error) {
	var ir ImportedResource
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			ir.TypeName = string(val)
		case 2:
			v, err := unmarshalDynamicValue(val)
			if err != nil {
				return err
			}
			ir.State = v
		case 3:
			ir.Private = append([]byte(nil), val...)
		}
		return nil
	})
	return ir, err
}

type ImportResourceStateResponse struct {
	ImportedResources []ImportedResource
	Diagnostics       []Diagnostic
}

func (r *ImportResourceStateResponse) Marshal() ([]byte, error) {
	var b []byte
	for _, ir := range r.ImportedResources {
		b = appendMessage(b, 1, marshalImportedResource(ir))
	}
	b = appendDiagnostics(b, 2, r.Diagnostics)
	return b, nil
}

func (r *ImportResourceStateResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		switch num {
		case 1:
			ir, err := unmarshalImportedResource(val)
			if err != nil {
				return err
			}
			r.ImportedResources = append(r.ImportedResources, ir)
		case 2:
			d, err := unmarshalDiagnostic(val)
			if err != nil {
				return err
			}
			r.Diagnostics = append(r.Diagnostics, d)
		}
		return nil
	})
}

// --- Stop ---

type StopRequest struct{}

func (r *StopRequest) Marshal() ([]byte, error) { return nil, nil }
func (r *StopRequest) Unmarshal(b []byte) error { return nil }

type StopResponse struct {
	Error string
}

func (r *StopResponse) Marshal() ([]byte, error) {
	return appendString(nil, 1, r.Error), nil
}

func (r *StopResponse) Unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, varint uint64) error {
		if num == 1 {
			r.Error = string(val)
		}
		return nil
	})
}
