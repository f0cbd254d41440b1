// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package plans contains the types that are used to represent OpenTF plans.
//
// A plan describes a set of changes that OpenTF will make to update remote
// objects to match with changes to the configuration.
package plans
