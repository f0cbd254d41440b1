// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Output is one durable output-value record (§3 "Output").
type Output struct {
	WorkspaceID string
	ModulePath  string
	Name        string
	Value       cty.Value
	Sensitive   bool
}

// SetOutput upserts an output value, unique per (workspace, module path,
// name) (§3).
func (s *Store) SetOutput(ctx context.Context, o Output) error {
	val, err := encodeAttributes(o.Value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outputs (workspace_id, module_path, name, value, sensitive)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id, module_path, name) DO UPDATE SET
			value = EXCLUDED.value, sensitive = EXCLUDED.sensitive`,
		o.WorkspaceID, o.ModulePath, o.Name, val, o.Sensitive)
	if err != nil {
		return fmt.Errorf("%w: setting output %s: %w", ErrIo, o.Name, err)
	}
	return nil
}

// GetOutput loads a single output, or ErrNotFound.
func (s *Store) GetOutput(ctx context.Context, workspaceID, modulePath, name string) (*Output, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT workspace_id, module_path, name, value, sensitive
		FROM outputs WHERE workspace_id = $1 AND module_path = $2 AND name = $3`,
		workspaceID, modulePath, name)
	o, err := scanOutput(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: output %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading output %s: %w", ErrIo, name, err)
	}
	return o, nil
}

// ListOutputs returns every output recorded for a workspace, ordered by
// module path then name.
func (s *Store) ListOutputs(ctx context.Context, workspaceID string) ([]*Output, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT workspace_id, module_path, name, value, sensitive
		FROM outputs WHERE workspace_id = $1 ORDER BY module_path, name`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing outputs: %w", ErrIo, err)
	}
	defer rows.Close()

	var out []*Output
	for rows.Next() {
		o, err := scanOutput(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning output row: %w", ErrIo, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ClearOutputs deletes every output recorded for a workspace (used before
// recording a fresh apply's outputs).
func (s *Store) ClearOutputs(ctx context.Context, workspaceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM outputs WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return fmt.Errorf("%w: clearing outputs: %w", ErrIo, err)
	}
	return nil
}

func scanOutput(row rowScanner) (*Output, error) {
	var o Output
	var val string
	if err := row.Scan(&o.WorkspaceID, &o.ModulePath, &o.Name, &val, &o.Sensitive); err != nil {
		return nil, err
	}
	v, err := decodeAttributes(val)
	if err != nil {
		v = cty.NullVal(cty.DynamicPseudoType)
	}
	o.Value = v
	return &o, nil
}
