// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package provider implements the Provider Adapter: it owns a single
// external provider process (spawned and handshaked via
// github.com/hashicorp/go-plugin, the same library internal/plugin's
// GRPCProvider is built on) and presents providers.Interface over it,
// translating every call through internal/tfplugin's hand-rolled wire
// messages and zclconf/go-cty's msgpack codec.
package provider
