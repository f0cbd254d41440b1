// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package addrs

// UniqueKey is implemented by the comparable values returned by
// UniqueKeyer.UniqueKey. Two addresses that produce equal UniqueKey values
// refer to the same object, even if the address values themselves aren't
// directly comparable with ==.
type UniqueKey interface {
	uniqueKeySigil()
}

// UniqueKeyer is implemented by address types that can produce a unique,
// comparable key for themselves, for use as a map key or set element.
type UniqueKeyer interface {
	UniqueKey() UniqueKey
}
