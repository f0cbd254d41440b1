// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package providermgr

import (
	"fmt"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/provider"
	"github.com/opentofu/tofucore/internal/providers"
	"github.com/opentofu/tofucore/internal/tfdiags"
)

// Resolver locates and caches a provider binary for a source/constraint
// pair, delegating to the external "registry + cache" collaborator (§4.C
// "ensures a provider is downloaded and cached... before first use"). This
// engine does not implement a registry client; callers supply one.
type Resolver interface {
	Resolve(source, constraint string) (command string, args []string, err error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(source, constraint string) (string, []string, error)

func (f ResolverFunc) Resolve(source, constraint string) (string, []string, error) {
	return f(source, constraint)
}

type entry struct {
	addr addrs.Provider
	conn providers.Interface
}

// Manager is the process-wide pool of provider connections (§4.C). The
// zero value is not usable; construct with New.
type Manager struct {
	resolver Resolver

	mu    sync.RWMutex
	conns map[string]*entry
}

// New builds a Manager that resolves provider binaries through resolver.
func New(resolver Resolver) *Manager {
	return &Manager{resolver: resolver, conns: map[string]*entry{}}
}

// GetConnection is idempotent: the first caller for a given source starts
// the process and stores it under a write lock; subsequent callers take
// the fast read-lock path (§4.C).
func (m *Manager) GetConnection(source, constraint string) (providers.Interface, error) {
	m.mu.RLock()
	if e, ok := m.conns[source]; ok {
		m.mu.RUnlock()
		return e.conn, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.conns[source]; ok {
		return e.conn, nil
	}

	addr, err := addrs.ParseProviderSource(source)
	if err != nil {
		return nil, fmt.Errorf("providermgr: %w", err)
	}
	command, args, err := m.resolver.Resolve(source, constraint)
	if err != nil {
		return nil, fmt.Errorf("providermgr: resolving %s: %w", source, err)
	}
	conn, err := provider.Spawn(provider.Config{Addr: addr, Command: command, Args: args})
	if err != nil {
		return nil, fmt.Errorf("providermgr: starting %s: %w", source, err)
	}

	m.conns[source] = &entry{addr: addr, conn: conn}
	return conn, nil
}

// Provider returns the already-started connection for source. Plan, apply,
// read, and import hold only the Manager's read lock to fetch this handle
// and then release it immediately — the RPC itself runs outside the lock,
// since a *provider.Provider's gRPC channel is safe for concurrent use
// (§4.C "this lets the walker run many concurrent RPCs against the same
// provider without serializing them").
func (m *Manager) Provider(source string) (providers.Interface, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.conns[source]
	if !ok {
		return nil, fmt.Errorf("providermgr: no connection established for %s", source)
	}
	return e.conn, nil
}

// Schema fetches (and, on the provider side, caches) the provider's full
// schema. Schema-caching takes the Manager's write lock per §4.C, even
// though the per-provider cache itself lives in internal/provider.
func (m *Manager) Schema(source string) (providers.GetProviderSchemaResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.conns[source]
	if !ok {
		return providers.GetProviderSchemaResponse{}, fmt.Errorf("providermgr: no connection established for %s", source)
	}
	return e.conn.GetProviderSchema(), nil
}

// Configure fetches the provider's schema, shapes config against its
// provider block, and sends a configure RPC. Calling Configure twice for
// the same source is permitted: the second call simply re-sends with the
// new config (§4.C).
func (m *Manager) Configure(source, terraformVersion string, config cty.Value) providers.ConfigureProviderResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.conns[source]
	if !ok {
		return providers.ConfigureProviderResponse{
			Diagnostics: tfdiags.Diagnostics{tfdiags.Sourceless(tfdiags.Error, "provider not started", source)},
		}
	}
	return e.conn.ConfigureProvider(providers.ConfigureProviderRequest{
		TerraformVersion: terraformVersion,
		Config:           config,
	})
}

// Stop sends a best-effort graceful stop to source's provider, kills the
// child, and removes it from the pool.
func (m *Manager) Stop(source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.conns[source]
	if !ok {
		return nil
	}
	delete(m.conns, source)
	return e.conn.Stop()
}

// StopAll stops every provider currently pooled, collecting the first
// error encountered but always attempting every stop.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for source, e := range m.conns {
		if err := e.conn.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("providermgr: stopping %s: %w", source, err)
		}
		delete(m.conns, source)
	}
	return firstErr
}
