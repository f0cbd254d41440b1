// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
)

// Status is a resource instance's lifecycle state (§3 "status").
type Status string

const (
	StatusPlanned  Status = "planned"
	StatusCreating Status = "creating"
	StatusCreated  Status = "created"
	StatusUpdating Status = "updating"
	StatusDeleting Status = "deleting"
	StatusDeleted  Status = "deleted"
	StatusTainted  Status = "tainted"
	StatusFailed   Status = "failed"
)

// Resource is one durable resource-instance record (§3 "Resource
// instance").
type Resource struct {
	ID             string
	WorkspaceID    string
	ModulePath     string
	ResourceType   string
	ResourceName   string
	Mode           string // "managed" | "data"
	ProviderSource string
	IndexKey       string // empty for no-key; otherwise an int or quoted string form
	Address        string
	Status         Status
	Attributes     cty.Value
	SensitiveAttrs []string
	SchemaVersion  int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GetResource loads a resource by its canonical address within a
// workspace, or ErrNotFound if no such row exists.
func (s *Store) GetResource(ctx context.Context, workspaceID, address string) (*Resource, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, module_path, resource_type, resource_name, mode,
		       provider_source, COALESCE(index_key, ''), address, status,
		       attributes, sensitive_attrs, schema_version, created_at, updated_at
		FROM resources WHERE workspace_id = $1 AND address = $2`, workspaceID, address)
	r, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: resource %s", ErrNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading resource %s: %w", ErrIo, address, err)
	}
	return r, nil
}

// UpsertResource inserts r or, if (workspace, address) already exists,
// replaces every field except created_at (§4.A "Upsert preserves the
// existing created_at and replaces everything else"). r.ID is populated
// with a generated ID if empty.
func (s *Store) UpsertResource(ctx context.Context, r *Resource) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	attrs, err := encodeAttributes(r.Attributes)
	if err != nil {
		return err
	}
	sensitive, err := encodeSensitivePaths(r.SensitiveAttrs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resources (
			id, workspace_id, module_path, resource_type, resource_name, mode,
			provider_source, index_key, address, status, attributes,
			sensitive_attrs, schema_version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9,$10,$11,$12,$13,now(),now())
		ON CONFLICT (workspace_id, address) DO UPDATE SET
			module_path = EXCLUDED.module_path,
			resource_type = EXCLUDED.resource_type,
			resource_name = EXCLUDED.resource_name,
			mode = EXCLUDED.mode,
			provider_source = EXCLUDED.provider_source,
			index_key = EXCLUDED.index_key,
			status = EXCLUDED.status,
			attributes = EXCLUDED.attributes,
			sensitive_attrs = EXCLUDED.sensitive_attrs,
			schema_version = EXCLUDED.schema_version,
			updated_at = now()`,
		r.ID, r.WorkspaceID, r.ModulePath, r.ResourceType, r.ResourceName, r.Mode,
		r.ProviderSource, r.IndexKey, r.Address, string(r.Status), attrs, sensitive, r.SchemaVersion)
	if err != nil {
		return fmt.Errorf("%w: upserting resource %s: %w", ErrIo, r.Address, err)
	}
	return nil
}

// DeleteResource removes a resource row (and, by cascade, its dependency
// edges). Deleting an absent resource is not an error.
func (s *Store) DeleteResource(ctx context.Context, workspaceID, address string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE workspace_id = $1 AND address = $2`, workspaceID, address)
	if err != nil {
		return fmt.Errorf("%w: deleting resource %s: %w", ErrIo, address, err)
	}
	return nil
}

// ResourceFilter narrows ListResources; a zero-value filter matches every
// resource in the workspace.
type ResourceFilter struct {
	ResourceType string
	Mode         string
	Status       Status
}

// ListResources returns every resource in a workspace matching filter,
// ordered by address for deterministic output.
func (s *Store) ListResources(ctx context.Context, workspaceID string, filter ResourceFilter) ([]*Resource, error) {
	query := `
		SELECT id, workspace_id, module_path, resource_type, resource_name, mode,
		       provider_source, COALESCE(index_key, ''), address, status,
		       attributes, sensitive_attrs, schema_version, created_at, updated_at
		FROM resources WHERE workspace_id = $1`
	args := []interface{}{workspaceID}

	if filter.ResourceType != "" {
		args = append(args, filter.ResourceType)
		query += fmt.Sprintf(" AND resource_type = $%d", len(args))
	}
	if filter.Mode != "" {
		args = append(args, filter.Mode)
		query += fmt.Sprintf(" AND mode = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY address"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing resources: %w", ErrIo, err)
	}
	defer rows.Close()

	var out []*Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning resource row: %w", ErrIo, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountResources returns the number of resources in a workspace.
func (s *Store) CountResources(ctx context.Context, workspaceID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM resources WHERE workspace_id = $1`, workspaceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: counting resources: %w", ErrIo, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResource(row rowScanner) (*Resource, error) {
	var r Resource
	var mode, status, attrs, sensitive string
	if err := row.Scan(
		&r.ID, &r.WorkspaceID, &r.ModulePath, &r.ResourceType, &r.ResourceName, &mode,
		&r.ProviderSource, &r.IndexKey, &r.Address, &status,
		&attrs, &sensitive, &r.SchemaVersion, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Mode = mode
	r.Status = Status(status)

	v, err := decodeAttributes(attrs)
	if err != nil {
		// §4.A "the store never panics on malformed rows; it returns
		// defaults for missing fields" — a corrupt attributes blob
		// degrades to null rather than failing the whole read.
		v = cty.NullVal(cty.DynamicPseudoType)
	}
	r.Attributes = v

	paths, err := decodeSensitivePaths(sensitive)
	if err == nil {
		r.SensitiveAttrs = paths
	}
	return &r, nil
}
