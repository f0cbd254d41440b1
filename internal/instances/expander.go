// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package instances implements the count/for_each expansion referenced by
// the Resource DAG (spec §4.F): turning one configured resource into the set
// of resource instances that actually exist, given a repetition value.
//
// Unlike the upstream package this is adapted from, there is no concept of
// module nesting here, since this engine has no recursive module-instance
// addressing (addrs.ResourceInstance carries no module path; a resource's
// module path is a flat string on config.Resource). Expansion is therefore tracked per addrs.Resource directly rather
// than per module-instance-and-resource pair.
package instances

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/addrs"
)

// RepetitionData describes the values that should be available for
// each.key, each.value, and count.index while evaluating the configuration
// of a particular resource instance.
type RepetitionData struct {
	CountIndex cty.Value
	EachKey    cty.Value
	EachValue  cty.Value
}

// expansion describes one resource's chosen repetition mode: none (a
// singleton), count, for_each, or the "enabled" boolean meta-argument.
type expansion interface {
	instanceKeys() []addrs.InstanceKey
	repetitionData(key addrs.InstanceKey) RepetitionData
}

type expansionSingle struct{}

func (expansionSingle) instanceKeys() []addrs.InstanceKey {
	return []addrs.InstanceKey{addrs.NoKey}
}

func (expansionSingle) repetitionData(addrs.InstanceKey) RepetitionData {
	return RepetitionData{}
}

type expansionCount int

func (e expansionCount) instanceKeys() []addrs.InstanceKey {
	keys := make([]addrs.InstanceKey, int(e))
	for i := range keys {
		keys[i] = addrs.IntKey(i)
	}
	return keys
}

func (e expansionCount) repetitionData(key addrs.InstanceKey) RepetitionData {
	return RepetitionData{CountIndex: key.Value()}
}

type expansionForEach map[string]cty.Value

func (e expansionForEach) instanceKeys() []addrs.InstanceKey {
	keys := make([]addrs.InstanceKey, 0, len(e))
	for k := range e {
		keys = append(keys, addrs.StringKey(k))
	}
	sort.Slice(keys, func(i, j int) bool {
		return addrs.InstanceKeyLess(keys[i], keys[j])
	})
	return keys
}

func (e expansionForEach) repetitionData(key addrs.InstanceKey) RepetitionData {
	sk, _ := key.(addrs.StringKey)
	return RepetitionData{
		EachKey:   cty.StringVal(string(sk)),
		EachValue: e[string(sk)],
	}
}

// expansionEnabled represents the "enabled" meta-argument: a resource that
// either has exactly one instance (NoKey) or zero instances.
type expansionEnabled bool

func (e expansionEnabled) instanceKeys() []addrs.InstanceKey {
	if bool(e) {
		return []addrs.InstanceKey{addrs.NoKey}
	}
	return nil
}

func (expansionEnabled) repetitionData(addrs.InstanceKey) RepetitionData {
	return RepetitionData{}
}

// Expander is a coordination point for gathering resource repetition values
// (count, for_each, and enabled) and then enumerating the resulting
// instances. It expects each resource's repetition mode to be set exactly
// once before any Expand or repetition-data call for that resource; an
// ordering violation panics rather than producing a silently wrong answer.
type Expander struct {
	mu        sync.RWMutex
	resources map[addrs.Resource]expansion
}

// NewExpander initializes and returns a new Expander, empty and ready to use.
func NewExpander() *Expander {
	return &Expander{
		resources: make(map[addrs.Resource]expansion),
	}
}

// SetResourceSingle records that the given resource does not use any
// repetition argument and is therefore a singleton.
func (e *Expander) SetResourceSingle(addr addrs.Resource) {
	e.set(addr, expansionSingle{})
}

// SetResourceCount records that the given resource uses the "count"
// repetition argument, with the given value.
func (e *Expander) SetResourceCount(addr addrs.Resource, count int) {
	e.set(addr, expansionCount(count))
}

// SetResourceForEach records that the given resource uses the "for_each"
// repetition argument, with the given map value. Configuration-level sets
// must already have been converted to an identity map by the caller.
func (e *Expander) SetResourceForEach(addr addrs.Resource, mapping map[string]cty.Value) {
	e.set(addr, expansionForEach(mapping))
}

// SetResourceEnabled records that the given resource uses the "enabled"
// meta-argument, with the given value.
func (e *Expander) SetResourceEnabled(addr addrs.Resource, enabled bool) {
	e.set(addr, expansionEnabled(enabled))
}

func (e *Expander) set(addr addrs.Resource, exp expansion) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.resources[addr]; exists {
		panic(fmt.Sprintf("expansion already registered for %s", addr))
	}
	e.resources[addr] = exp
}

// ExpandResource finds the set of resource instances resulting from the
// expansion of the given resource. The resource's repetition mode must
// already have been registered via one of the Set* methods, or this method
// will panic.
func (e *Expander) ExpandResource(addr addrs.Resource) []addrs.ResourceInstance {
	e.mu.RLock()
	defer e.mu.RUnlock()

	exp, ok := e.resources[addr]
	if !ok {
		panic(fmt.Sprintf("no expansion has been registered for %s", addr))
	}

	keys := exp.instanceKeys()
	ret := make([]addrs.ResourceInstance, len(keys))
	for i, k := range keys {
		ret[i] = addr.Instance(k)
	}
	sort.SliceStable(ret, func(i, j int) bool {
		return addrs.InstanceKeyLess(ret[i].Key, ret[j].Key)
	})
	return ret
}

// GetResourceInstanceRepetitionData returns the values that should be
// available for each.key, each.value, and count.index within the
// definition block for the given resource instance.
func (e *Expander) GetResourceInstanceRepetitionData(addr addrs.ResourceInstance) RepetitionData {
	e.mu.RLock()
	defer e.mu.RUnlock()

	exp, ok := e.resources[addr.Resource]
	if !ok {
		panic(fmt.Sprintf("no expansion has been registered for %s", addr.Resource))
	}
	return exp.repetitionData(addr.Key)
}

// KnowsResource reports whether the given resource has had a repetition
// mode registered yet.
func (e *Expander) KnowsResource(addr addrs.Resource) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.resources[addr]
	return ok
}
