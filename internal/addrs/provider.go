// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package addrs

import (
	"fmt"
	"strings"
)

// Provider is the address of a provider, such as "hashicorp/aws". The full
// registry-hostname/namespace/type addressing scheme used by the real
// registry client is out of scope here (the registry-download HTTP client is
// an external collaborator); this engine only needs enough of the address to
// key the Provider Manager's connection pool and resolve an already-cached
// binary.
type Provider struct {
	Namespace string
	Type      string
}

// ParseProviderSource parses a "namespace/type" source string. A bare type
// name with no namespace is assumed to be in the implicit "hashicorp"
// namespace, matching the real registry's legacy default.
func ParseProviderSource(source string) (Provider, error) {
	parts := strings.Split(source, "/")
	switch len(parts) {
	case 1:
		return Provider{Namespace: "hashicorp", Type: parts[0]}, nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Provider{}, fmt.Errorf("invalid provider source %q", source)
		}
		return Provider{Namespace: parts[0], Type: parts[1]}, nil
	default:
		return Provider{}, fmt.Errorf("invalid provider source %q: expected namespace/type", source)
	}
}

func (p Provider) String() string {
	return p.Namespace + "/" + p.Type
}

// Key is the string form used to key the Provider Manager's pool and
// schema cache, per §4.C ("namespace/type").
func (p Provider) Key() string {
	return p.String()
}

func (p Provider) IsZero() bool {
	return p.Namespace == "" && p.Type == ""
}
