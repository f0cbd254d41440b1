// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package plans

import (
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/addrs"
)

// ResourceInstanceChangeSrc describes a proposed change to a single resource
// instance, as produced during Plan (§4.H) and consumed during Apply. It is
// "Src" in the same sense as the upstream type it's adapted from: the
// Before/After values are left in their encoded DynamicValue form so that a
// Changes value can be handed across a walker boundary (or persisted to a
// run record) without forcing every caller to carry the resource's schema
// around just to copy it.
type ResourceInstanceChangeSrc struct {
	Addr         addrs.ResourceInstance
	ModulePath   string
	ProviderAddr addrs.Provider

	Action Action
	Before DynamicValue
	After  DynamicValue

	// RequiresReplace lists the attribute paths that the provider (or the
	// Schema Shaper's own prior-vs-planned comparison, §4.H) flagged as
	// forcing replacement rather than an in-place update.
	RequiresReplace []cty.Path

	// Private is opaque data round-tripped from the provider's plan
	// response into its matching apply request, per the provider protocol
	// (§4.B). The core orchestrator never inspects its contents.
	Private []byte
}

// DeepCopy returns a copy of the receiver that shares no mutable state with
// it, so that a caller can safely continue mutating a change after handing
// a copy of it off to a Changes accumulator.
func (rcs *ResourceInstanceChangeSrc) DeepCopy() *ResourceInstanceChangeSrc {
	if rcs == nil {
		return nil
	}
	ret := *rcs
	if rcs.RequiresReplace != nil {
		ret.RequiresReplace = make([]cty.Path, len(rcs.RequiresReplace))
		copy(ret.RequiresReplace, rcs.RequiresReplace)
	}
	if rcs.Before != nil {
		ret.Before = append(DynamicValue(nil), rcs.Before...)
	}
	if rcs.After != nil {
		ret.After = append(DynamicValue(nil), rcs.After...)
	}
	return &ret
}

// OutputChangeSrc describes a proposed change to a root-module output
// value.
type OutputChangeSrc struct {
	Addr      string
	Before    DynamicValue
	After     DynamicValue
	Sensitive bool
}

func (ocs *OutputChangeSrc) DeepCopy() *OutputChangeSrc {
	if ocs == nil {
		return nil
	}
	ret := *ocs
	return &ret
}

// Changes describes a set of proposed changes, gathered either during a
// Plan walk or reconstructed from a persisted run record.
type Changes struct {
	Resources []*ResourceInstanceChangeSrc
	Outputs   []*OutputChangeSrc
}

// NewChanges returns a valid, empty Changes.
func NewChanges() *Changes {
	return &Changes{}
}

// Empty returns false if there is at least one change in the set that is
// not a no-op (a resource change whose action is not NoOp, or an output
// change with a before or after value), and true otherwise.
func (c *Changes) Empty() bool {
	if c == nil {
		return true
	}
	for _, rc := range c.Resources {
		if rc.Action != NoOp {
			return false
		}
	}
	for _, oc := range c.Outputs {
		if oc.Before == nil && oc.After == nil {
			continue
		}
		return false
	}
	return true
}

// ResourceInstance returns the change recorded for the given address, or
// nil if there is none.
func (c *Changes) ResourceInstance(addr addrs.ResourceInstance) *ResourceInstanceChangeSrc {
	for _, rc := range c.Resources {
		if rc.Addr == addr {
			return rc
		}
	}
	return nil
}

// ChangesSync is a concurrency-safe wrapper around a Changes, used by the
// DAG Walker (§4.G) so that each node goroutine can record its own
// resource's change without a data race on the shared slice.
type ChangesSync struct {
	lock    sync.Mutex
	changes *Changes
}

// NewChangesSync wraps the given Changes (which may be freshly created via
// NewChanges) for concurrent use.
func NewChangesSync(changes *Changes) *ChangesSync {
	return &ChangesSync{changes: changes}
}

func (cs *ChangesSync) AppendResourceInstanceChange(changeSrc *ResourceInstanceChangeSrc) {
	if cs == nil {
		panic("AppendResourceInstanceChange on nil ChangesSync")
	}
	cs.lock.Lock()
	defer cs.lock.Unlock()

	cs.changes.Resources = append(cs.changes.Resources, changeSrc.DeepCopy())
}

func (cs *ChangesSync) GetResourceInstanceChange(addr addrs.ResourceInstance) *ResourceInstanceChangeSrc {
	if cs == nil {
		panic("GetResourceInstanceChange on nil ChangesSync")
	}
	cs.lock.Lock()
	defer cs.lock.Unlock()

	return cs.changes.ResourceInstance(addr).DeepCopy()
}

func (cs *ChangesSync) AppendOutputChange(changeSrc *OutputChangeSrc) {
	if cs == nil {
		panic("AppendOutputChange on nil ChangesSync")
	}
	cs.lock.Lock()
	defer cs.lock.Unlock()

	cs.changes.Outputs = append(cs.changes.Outputs, changeSrc.DeepCopy())
}

// Changes returns a snapshot copy of the accumulated changes. Safe to call
// after the walk that was populating it has completed.
func (cs *ChangesSync) Changes() *Changes {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	ret := &Changes{
		Resources: make([]*ResourceInstanceChangeSrc, len(cs.changes.Resources)),
		Outputs:   make([]*OutputChangeSrc, len(cs.changes.Outputs)),
	}
	for i, rc := range cs.changes.Resources {
		ret.Resources[i] = rc.DeepCopy()
	}
	for i, oc := range cs.changes.Outputs {
		ret.Outputs[i] = oc.DeepCopy()
	}
	return ret
}
