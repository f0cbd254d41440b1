// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"errors"

	plugin "github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
)

// grpcPlugin is the minimal plugin.GRPCPlugin this side of the handshake
// needs: it never serves anything (this process is always the client half
// of the provider protocol), and on the client side it just hands back the
// dialed *grpc.ClientConn so Spawn can wrap it in a tfplugin.Client.
//
// Grounded on internal/plugin/grpc_provider.go's GRPCProviderPlugin, which
// implements the same plugin.GRPCPlugin interface against the real
// generated proto.ProviderClient; this engine has no generated stubs (see
// internal/tfplugin/doc.go), so GRPCClient returns the raw connection
// instead of a typed RPC client.
type grpcPlugin struct {
	plugin.Plugin
}

func (p *grpcPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, c *grpc.ClientConn) (interface{}, error) {
	return c, nil
}

func (p *grpcPlugin) GRPCServer(_ *plugin.GRPCBroker, _ *grpc.Server) error {
	return errors.New("provider: this process never serves a provider plugin")
}
