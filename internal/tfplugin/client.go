// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tfplugin

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// serviceName is the protocol buffer service tfplugin5/6 both expose under
// their respective package name.
func serviceName(protocolVersion int) string {
	if protocolVersion == 6 {
		return "tfplugin6.Provider"
	}
	return "tfplugin5.Provider"
}

// methodNames maps the operations this engine drives to their RPC method
// name per protocol version — protocol 6 renamed a handful of RPCs when it
// introduced first-class functions and write-only attributes, but the
// request/response shapes this engine touches are unchanged (§6 "Names and
// field layouts follow the published plugin proto files").
var methodNamesV5 = map[string]string{
	"schema":    "GetSchema",
	"configure": "Configure",
	"validate":  "ValidateResourceTypeConfig",
	"plan":      "PlanResourceChange",
	"apply":     "ApplyResourceChange",
	"read":      "ReadResource",
	"readData":  "ReadDataSource",
	"import":    "ImportResourceState",
	"stop":      "Stop",
}

var methodNamesV6 = map[string]string{
	"schema":    "GetProviderSchema",
	"configure": "ConfigureProvider",
	"validate":  "ValidateResourceConfig",
	"plan":      "PlanResourceChange",
	"apply":     "ApplyResourceChange",
	"read":      "ReadResource",
	"readData":  "ReadDataSource",
	"import":    "ImportResourceState",
	"stop":      "StopProvider",
}

// Client calls the provider protocol's gRPC service directly using the
// hand-rolled messages in this package rather than generated stubs (see
// doc.go). One Client is bound to a single provider process's *grpc.ClientConn
// and protocol version (5 or 6).
type Client struct {
	Conn            *grpc.ClientConn
	ProtocolVersion int
}

func (c *Client) method(op string) string {
	names := methodNamesV5
	if c.ProtocolVersion == 6 {
		names = methodNamesV6
	}
	name, ok := names[op]
	if !ok {
		panic(fmt.Sprintf("tfplugin: unknown operation %q", op))
	}
	return "/" + serviceName(c.ProtocolVersion) + "/" + name
}

func (c *Client) invoke(ctx context.Context, op string, req, resp Message, opts ...grpc.CallOption) error {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	return c.Conn.Invoke(ctx, c.method(op), req, resp, opts...)
}

func (c *Client) GetSchema(ctx context.Context, opts ...grpc.CallOption) (*GetProviderSchemaResponse, error) {
	resp := &GetProviderSchemaResponse{}
	if err := c.invoke(ctx, "schema", &GetProviderSchemaRequest{}, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Configure(ctx context.Context, req *ConfigureRequest) (*ConfigureResponse, error) {
	resp := &ConfigureResponse{}
	if err := c.invoke(ctx, "configure", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ValidateResourceTypeConfig(ctx context.Context, req *ValidateResourceTypeConfigRequest) (*ValidateResourceTypeConfigResponse, error) {
	resp := &ValidateResourceTypeConfigResponse{}
	if err := c.invoke(ctx, "validate", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) PlanResourceChange(ctx context.Context, req *PlanResourceChangeRequest) (*PlanResourceChangeResponse, error) {
	resp := &PlanResourceChangeResponse{}
	if err := c.invoke(ctx, "plan", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ApplyResourceChange(ctx context.Context, req *ApplyResourceChangeRequest) (*ApplyResourceChangeResponse, error) {
	resp := &ApplyResourceChangeResponse{}
	if err := c.invoke(ctx, "apply", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ReadResource(ctx context.Context, req *ReadResourceRequest) (*ReadResourceResponse, error) {
	resp := &ReadResourceResponse{}
	if err := c.invoke(ctx, "read", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ReadDataSource(ctx context.Context, req *ReadDataSourceRequest) (*ReadDataSourceResponse, error) {
	resp := &ReadDataSourceResponse{}
	if err := c.invoke(ctx, "readData", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ImportResourceState(ctx context.Context, req *ImportResourceStateRequest) (*ImportResourceStateResponse, error) {
	resp := &ImportResourceStateResponse{}
	if err := c.invoke(ctx, "import", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Stop(ctx context.Context) (*StopResponse, error) {
	resp := &StopResponse{}
	if err := c.invoke(ctx, "stop", &StopRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
