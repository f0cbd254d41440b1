// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tfplugin

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is registered with grpc's global encoding registry at package
// init and selected per-call via grpc.CallContentSubtype, so Client's
// conn.Invoke calls marshal/unmarshal through this package's hand-written
// Message.Marshal/Unmarshal instead of expecting generated protobuf
// message types.
const CodecName = "tfplugin"

func init() {
	encoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Name() string { return CodecName }

func (codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("tfplugin: %T does not implement Message", v)
	}
	return m.Marshal()
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("tfplugin: %T does not implement Message", v)
	}
	return m.Unmarshal(data)
}
