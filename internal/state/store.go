// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hashicorp/go-hclog"
	_ "github.com/lib/pq"
)

const schemaVersionCurrent = 1

// Store is the State Store (§4.A): a thin wrapper over a *sql.DB that
// exposes the operations spec.md §4.A names. It never panics on malformed
// rows and always surfaces the sentinel errors in errors.go rather than a
// raw driver error.
type Store struct {
	db  *sql.DB
	log hclog.Logger
}

// Open connects to dsn (a postgres:// URL, per the teacher's conn_str
// convention) and runs migrations, creating the schema from scratch if the
// schema_version table doesn't exist yet (§4.A "Migration").
func Open(ctx context.Context, dsn string, log hclog.Logger) (*Store, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening state store: %w", ErrIo, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connecting to state store: %w", ErrIo, err)
	}

	s := &Store{db: db, log: log.Named("state")}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// migrate inspects schema_version and applies the full schema in one shot
// for a fresh store, or forward migrations in order for an existing one
// (§4.A "Migration"). There is currently exactly one schema generation, so
// "forward migrations in order" is a no-op past version 1, but the table
// and the version check exist so a future schema change has somewhere to
// record itself.
func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning migration transaction: %w", ErrIo, err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: applying schema: %w", ErrIo, err)
		}
	}

	var version int
	row := tx.QueryRowContext(ctx, `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`)
	switch err := row.Scan(&version); {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at, description) VALUES ($1, now(), $2)`,
			schemaVersionCurrent, "initial schema"); err != nil {
			return fmt.Errorf("%w: recording schema version: %w", ErrIo, err)
		}
	case err != nil:
		return fmt.Errorf("%w: reading schema version: %w", ErrIo, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing migration: %w", ErrIo, err)
	}
	s.log.Debug("state store schema ready", "version", schemaVersionCurrent)
	return nil
}

// schemaStatements is the full logical schema of §4.A, applied with
// CREATE TABLE/INDEX IF NOT EXISTS so a fresh store and a resumed one take
// the same code path (teacher's internal/backend/remote-state/pg does the
// same thing with its single `states` table).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (
		version bigint PRIMARY KEY,
		applied_at timestamptz NOT NULL,
		description text NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS workspaces (
		id text PRIMARY KEY,
		name text UNIQUE NOT NULL,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id text PRIMARY KEY,
		workspace_id text NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		module_path text NOT NULL DEFAULT '',
		resource_type text NOT NULL,
		resource_name text NOT NULL,
		mode text NOT NULL,
		provider_source text NOT NULL,
		index_key text,
		address text NOT NULL,
		status text NOT NULL,
		attributes text NOT NULL,
		sensitive_attrs text NOT NULL DEFAULT '[]',
		schema_version bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		UNIQUE (workspace_id, address)
	)`,
	`CREATE TABLE IF NOT EXISTS resource_dependencies (
		resource_id text NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		depends_on_id text NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		kind text NOT NULL,
		PRIMARY KEY (resource_id, depends_on_id)
	)`,
	`CREATE TABLE IF NOT EXISTS outputs (
		workspace_id text NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		module_path text NOT NULL DEFAULT '',
		name text NOT NULL,
		value text NOT NULL,
		sensitive boolean NOT NULL DEFAULT false,
		PRIMARY KEY (workspace_id, module_path, name)
	)`,
	`CREATE TABLE IF NOT EXISTS resource_locks (
		address text NOT NULL,
		workspace_id text NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		lock_id text UNIQUE NOT NULL,
		acquired_at timestamptz NOT NULL,
		holder text NOT NULL,
		operation text NOT NULL,
		expires_at timestamptz,
		info text,
		PRIMARY KEY (address, workspace_id)
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id text PRIMARY KEY,
		workspace_id text NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		operation text NOT NULL,
		started_at timestamptz NOT NULL,
		completed_at timestamptz,
		status text NOT NULL,
		planned int NOT NULL DEFAULT 0,
		succeeded int NOT NULL DEFAULT 0,
		failed int NOT NULL DEFAULT 0,
		skipped int NOT NULL DEFAULT 0,
		error text
	)`,
	`CREATE TABLE IF NOT EXISTS run_resources (
		run_id text NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		address text NOT NULL,
		action text NOT NULL,
		status text NOT NULL,
		started_at timestamptz,
		completed_at timestamptz,
		error text,
		diff text,
		PRIMARY KEY (run_id, address)
	)`,
	`CREATE TABLE IF NOT EXISTS providers (
		id text PRIMARY KEY,
		workspace_id text NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		source text NOT NULL,
		version text NOT NULL,
		UNIQUE (workspace_id, source)
	)`,
}

// EnsureWorkspace inserts a workspace row with the given id and name unless
// a workspace with that name already exists, in which case nothing changes.
// It returns only an error; it does not report the ID of an existing row.
func (s *Store) EnsureWorkspace(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (name) DO NOTHING`, id, name)
	if err != nil {
		return fmt.Errorf("%w: creating workspace: %w", ErrIo, err)
	}
	return nil
}
