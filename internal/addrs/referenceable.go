// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package addrs

// Referenceable is an interface implemented by all address types that can
// appear as references in expressions evaluated by the Expression
// Evaluator (§4.E). Concrete types are resolved by a type switch in
// lang.Evaluator rather than by any generic path-based traversal, so unlike
// the upstream type this interface does not require a cty.Path conversion.
type Referenceable interface {
	referenceableSigil()

	// All Referenceable address types must have unique keys.
	UniqueKeyer

	// String produces a string representation of the address.
	String() string
}

type referenceable struct {
}

func (r referenceable) referenceableSigil() {
}
