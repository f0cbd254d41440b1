// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package providermgr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/providers"
)

func TestGetConnection_PropagatesResolverError(t *testing.T) {
	mgr := New(ResolverFunc(func(source, constraint string) (string, []string, error) {
		return "", nil, errors.New("no such provider in registry")
	}))

	_, err := mgr.GetConnection("hashicorp/aws", "~> 5.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such provider in registry")
}

func TestGetConnection_RejectsInvalidSource(t *testing.T) {
	mgr := New(ResolverFunc(func(source, constraint string) (string, []string, error) {
		t.Fatal("resolver should not be called for an invalid source")
		return "", nil, nil
	}))

	_, err := mgr.GetConnection("too/many/segments", "")
	require.Error(t, err)
}

func TestProvider_ErrorsWhenNotYetStarted(t *testing.T) {
	mgr := New(ResolverFunc(func(source, constraint string) (string, []string, error) {
		return "", nil, nil
	}))

	_, err := mgr.Provider("hashicorp/aws")
	require.Error(t, err)
}

// seedConnection injects a pre-built provider connection directly into the
// pool, bypassing Spawn, so pool-bookkeeping behavior (Provider, Schema,
// Configure, Stop, StopAll) can be tested without launching a real
// provider process.
func seedConnection(t *testing.T, mgr *Manager, source string, conn providers.Interface) {
	t.Helper()
	addr, err := addrs.ParseProviderSource(source)
	require.NoError(t, err)
	mgr.conns[source] = &entry{addr: addr, conn: conn}
}

func TestManager_PoolBookkeeping(t *testing.T) {
	mgr := New(ResolverFunc(func(source, constraint string) (string, []string, error) {
		return "", nil, nil
	}))

	double := &stubProvider{}
	seedConnection(t, mgr, "hashicorp/null", double)

	conn, err := mgr.Provider("hashicorp/null")
	require.NoError(t, err)
	assert.Same(t, providers.Interface(double), conn)

	schema, err := mgr.Schema("hashicorp/null")
	require.NoError(t, err)
	assert.Equal(t, 1, double.schemaCalls)
	assert.Equal(t, "null", func() string {
		for name := range schema.ResourceTypes {
			return name
		}
		return ""
	}())

	resp := mgr.Configure("hashicorp/null", "1.9.0", cty.EmptyObjectVal)
	require.False(t, resp.Diagnostics.HasErrors())
	assert.Equal(t, 1, double.configureCalls)

	resp2 := mgr.Configure("hashicorp/null", "1.9.0", cty.EmptyObjectVal)
	require.False(t, resp2.Diagnostics.HasErrors())
	assert.Equal(t, 2, double.configureCalls, "second Configure call must re-send, not no-op")

	require.NoError(t, mgr.Stop("hashicorp/null"))
	assert.Equal(t, 1, double.stopCalls)

	_, err = mgr.Provider("hashicorp/null")
	assert.Error(t, err, "Stop must remove the connection from the pool")
}

func TestManager_StopAll_StopsEveryEntry(t *testing.T) {
	mgr := New(ResolverFunc(func(source, constraint string) (string, []string, error) {
		return "", nil, nil
	}))
	a := &stubProvider{}
	b := &stubProvider{}
	seedConnection(t, mgr, "hashicorp/null", a)
	seedConnection(t, mgr, "hashicorp/random", b)

	require.NoError(t, mgr.StopAll())
	assert.Equal(t, 1, a.stopCalls)
	assert.Equal(t, 1, b.stopCalls)

	_, err := mgr.Provider("hashicorp/null")
	assert.Error(t, err)
	_, err = mgr.Provider("hashicorp/random")
	assert.Error(t, err)
}

// stubProvider is a minimal providers.Interface double for pool-bookkeeping
// tests; it tracks call counts rather than simulating any real RPC.
type stubProvider struct {
	schemaCalls    int
	configureCalls int
	stopCalls      int
}

var _ providers.Interface = (*stubProvider)(nil)

func (s *stubProvider) GetProviderSchema() providers.GetProviderSchemaResponse {
	s.schemaCalls++
	return providers.GetProviderSchemaResponse{
		ResourceTypes: map[string]providers.Schema{"null": {}},
	}
}

func (s *stubProvider) ValidateProviderConfig(req providers.ValidateProviderConfigRequest) providers.ValidateProviderConfigResponse {
	return providers.ValidateProviderConfigResponse{PreparedConfig: req.Config}
}

func (s *stubProvider) ValidateResourceConfig(providers.ValidateResourceConfigRequest) providers.ValidateResourceConfigResponse {
	return providers.ValidateResourceConfigResponse{}
}

func (s *stubProvider) ValidateDataResourceConfig(providers.ValidateDataResourceConfigRequest) providers.ValidateDataResourceConfigResponse {
	return providers.ValidateDataResourceConfigResponse{}
}

func (s *stubProvider) ConfigureProvider(providers.ConfigureProviderRequest) providers.ConfigureProviderResponse {
	s.configureCalls++
	return providers.ConfigureProviderResponse{}
}

func (s *stubProvider) PlanResourceChange(providers.PlanResourceChangeRequest) providers.PlanResourceChangeResponse {
	return providers.PlanResourceChangeResponse{}
}

func (s *stubProvider) ApplyResourceChange(providers.ApplyResourceChangeRequest) providers.ApplyResourceChangeResponse {
	return providers.ApplyResourceChangeResponse{}
}

func (s *stubProvider) ReadResource(providers.ReadResourceRequest) providers.ReadResourceResponse {
	return providers.ReadResourceResponse{}
}

func (s *stubProvider) ReadDataSource(providers.ReadDataSourceRequest) providers.ReadDataSourceResponse {
	return providers.ReadDataSourceResponse{}
}

func (s *stubProvider) ImportResourceState(providers.ImportResourceStateRequest) providers.ImportResourceStateResponse {
	return providers.ImportResourceStateResponse{}
}

func (s *stubProvider) Stop() error {
	s.stopCalls++
	return nil
}

func (s *stubProvider) Close() error {
	return nil
}
