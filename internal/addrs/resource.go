// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package addrs

import (
	"fmt"
	"strings"
)

// ResourceMode distinguishes a managed resource (one whose lifecycle this
// engine drives via create/update/delete) from a data resource (one that is
// only ever read).
type ResourceMode rune

const (
	ManagedResourceMode ResourceMode = 'M'
	DataResourceMode    ResourceMode = 'D'
)

func (m ResourceMode) String() string {
	switch m {
	case ManagedResourceMode:
		return "managed"
	case DataResourceMode:
		return "data"
	default:
		return "invalid"
	}
}

// Resource is the address of a resource or data source, without any
// information about which module it lives in or which instance of it
// (if any) is being referred to.
type Resource struct {
	referenceable
	Mode ResourceMode
	Type string
	Name string
}

func (r Resource) String() string {
	switch r.Mode {
	case DataResourceMode:
		return fmt.Sprintf("data.%s.%s", r.Type, r.Name)
	default:
		return fmt.Sprintf("%s.%s", r.Type, r.Name)
	}
}

func (r Resource) UniqueKey() UniqueKey {
	return resourceUniqueKey(r.String())
}

// Instance produces the address of a specific instance of the receiving
// resource, identified by the given key (which may be NoKey for an
// unexpanded resource).
func (r Resource) Instance(key InstanceKey) ResourceInstance {
	return ResourceInstance{Resource: r, Key: key}
}

// ResourceInstance is the address of one instance of a resource. It carries
// no module path; ModuleQualifiedString takes the module path (a dotted
// sequence of module call names, e.g. "child.grandchild", empty for the
// root module) as an argument.
type ResourceInstance struct {
	referenceable
	Resource Resource
	Key      InstanceKey
}

func (r ResourceInstance) String() string {
	if r.Key == NoKey {
		return r.Resource.String()
	}
	return r.Resource.String() + r.Key.String()
}

func (r ResourceInstance) UniqueKey() UniqueKey {
	return resourceUniqueKey(r.ModuleQualifiedString(""))
}

// ModuleQualifiedString renders the canonical address form described by the
// Address glossary entry: "[module.X.]type.name[(index)]", using "(index)"
// rather than HCL's "[index]" syntax to keep the on-disk/CLI-facing address
// distinguishable from an HCL traversal, while still round-tripping via
// ParseResourceInstanceAddress.
func (r ResourceInstance) ModuleQualifiedString(modulePath string) string {
	var buf strings.Builder
	if modulePath != "" {
		for _, step := range strings.Split(modulePath, ".") {
			buf.WriteString("module.")
			buf.WriteString(step)
			buf.WriteByte('.')
		}
	}
	buf.WriteString(r.Resource.String())
	if r.Key != NoKey {
		buf.WriteByte('(')
		buf.WriteString(strings.Trim(r.Key.String(), "[]"))
		buf.WriteByte(')')
	}
	return buf.String()
}

type resourceUniqueKey string

func (k resourceUniqueKey) uniqueKeySigil() {}

// ParseResourceInstanceAddress parses the canonical on-disk address form
// "[module.X.]type.name[(index)]" produced by ModuleQualifiedString.
//
// This is intentionally a much smaller grammar than HCL traversal parsing:
// the configuration-language parser (an external collaborator, out of scope
// here) is responsible for producing resource references from source code,
// so this parser only needs to round-trip addresses this engine itself
// produced, e.g. when reading back state or a lock/run record.
func ParseResourceInstanceAddress(s string) (modulePath string, inst ResourceInstance, err error) {
	var modParts []string
	rest := s
	for strings.HasPrefix(rest, "module.") {
		rest = rest[len("module."):]
		dot := strings.IndexByte(rest, '.')
		if dot < 0 {
			return "", ResourceInstance{}, fmt.Errorf("invalid address %q: truncated module path", s)
		}
		modParts = append(modParts, rest[:dot])
		rest = rest[dot+1:]
	}

	mode := ManagedResourceMode
	if strings.HasPrefix(rest, "data.") {
		mode = DataResourceMode
		rest = rest[len("data."):]
	}

	key := NoKey
	if open := strings.IndexByte(rest, '('); open >= 0 {
		if !strings.HasSuffix(rest, ")") {
			return "", ResourceInstance{}, fmt.Errorf("invalid address %q: unterminated index", s)
		}
		keyStr := rest[open+1 : len(rest)-1]
		rest = rest[:open]
		if n, convErr := parseIntKey(keyStr); convErr == nil {
			key = IntKey(n)
		} else {
			key = StringKey(strings.Trim(keyStr, `"`))
		}
	}

	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return "", ResourceInstance{}, fmt.Errorf("invalid address %q: expected type.name", s)
	}

	return strings.Join(modParts, "."), ResourceInstance{
		Resource: Resource{Mode: mode, Type: parts[0], Name: parts[1]},
		Key:      key,
	}, nil
}

func parseIntKey(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0, err
	}
	if fmt.Sprintf("%d", n) != s {
		return 0, fmt.Errorf("not a plain integer")
	}
	return n, nil
}
