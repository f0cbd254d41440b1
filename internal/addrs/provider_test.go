// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package addrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderSource(t *testing.T) {
	tests := []struct {
		source  string
		want    Provider
		wantErr bool
	}{
		{source: "aws", want: Provider{Namespace: "hashicorp", Type: "aws"}},
		{source: "hashicorp/aws", want: Provider{Namespace: "hashicorp", Type: "aws"}},
		{source: "acme/widget", want: Provider{Namespace: "acme", Type: "widget"}},
		{source: "acme/widget/extra", wantErr: true},
		{source: "/aws", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseProviderSource(tt.source)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestProviderKey(t *testing.T) {
	p := Provider{Namespace: "hashicorp", Type: "aws"}
	assert.Equal(t, "hashicorp/aws", p.Key())
	assert.Equal(t, p.String(), p.Key())
	assert.False(t, p.IsZero())
	assert.True(t, Provider{}.IsZero())
}
