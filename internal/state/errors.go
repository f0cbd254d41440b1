// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import "errors"

// The State Store's closed set of sentinel errors (§4.A "Failure model"):
// driver and lookup failures the store surfaces wrap exactly one of these
// via fmt.Errorf("...: %w", ...), so callers can distinguish them with
// errors.Is regardless of the underlying driver error text. Errors from
// encoding attribute values or sensitive paths, and row-iteration errors
// in ListResources, ListOutputs and QueryRaw, are returned without a
// sentinel.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyLocked       = errors.New("already locked")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrIo                  = errors.New("state store io error")
)
