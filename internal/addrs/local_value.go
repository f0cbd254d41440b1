// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package addrs

import (
	"github.com/zclconf/go-cty/cty"
)

// LocalValue is the address of a local value.
type LocalValue struct {
	referenceable
	Name string
}

func (v LocalValue) String() string {
	return "local." + v.Name
}

func (v LocalValue) Path() cty.Path {
	return cty.GetAttrPath("local").GetAttr(v.Name)
}

// Equal is primarily here for go-cmp to use. Use the == operator directly in
// normal code, because LocalValue is naturally comparable.
func (v LocalValue) Equal(other LocalValue) bool {
	return v == other
}

func (v LocalValue) UniqueKey() UniqueKey {
	return v // A LocalValue is its own UniqueKey
}

func (v LocalValue) uniqueKeySigil() {}
