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
)

// RunStatus is a run's overall disposition (§3 "Run").
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Operation names the kind of operation a run performed.
type Operation string

const (
	OpPlan    Operation = "plan"
	OpApply   Operation = "apply"
	OpDestroy Operation = "destroy"
)

// Run is one durable run record (§3 "Run"). Re-entrancy (§4.H.3): every
// apply/destroy records its own run; a prior incomplete run never blocks
// a new one from starting.
type Run struct {
	ID          string
	WorkspaceID string
	Operation   Operation
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      RunStatus
	Planned     int
	Succeeded   int
	Failed      int
	Skipped     int
	Error       string
}

// StartRun records the beginning of a plan/apply/destroy operation and
// returns its generated run ID.
func (s *Store) StartRun(ctx context.Context, workspaceID string, op Operation) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, workspace_id, operation, started_at, status)
		VALUES ($1, $2, $3, now(), $4)`, id, workspaceID, string(op), string(RunRunning))
	if err != nil {
		return "", fmt.Errorf("%w: starting run: %w", ErrIo, err)
	}
	return id, nil
}

// RunSummary is the final tally CompleteRun records (§4.H.2/.3 "summary").
type RunSummary struct {
	Planned, Succeeded, Failed, Skipped int
	Error                               string
}

// CompleteRun marks a run finished with the given status and counters.
func (s *Store) CompleteRun(ctx context.Context, runID string, status RunStatus, summary RunSummary) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET completed_at = now(), status = $2, planned = $3,
			succeeded = $4, failed = $5, skipped = $6, error = NULLIF($7, '')
		WHERE id = $1`,
		runID, string(status), summary.Planned, summary.Succeeded, summary.Failed, summary.Skipped, summary.Error)
	if err != nil {
		return fmt.Errorf("%w: completing run: %w", ErrIo, err)
	}
	return nil
}

// RunResourceResult records one resource's outcome within a run (§3
// "Per-resource results may be attached").
type RunResourceResult struct {
	Address     string
	Action      string
	Status      string
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string
	Diff        string
}

// RecordRunResource attaches a per-resource result to a run.
func (s *Store) RecordRunResource(ctx context.Context, runID string, r RunResourceResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_resources (run_id, address, action, status, started_at, completed_at, error, diff)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
		ON CONFLICT (run_id, address) DO UPDATE SET
			action = EXCLUDED.action, status = EXCLUDED.status,
			started_at = EXCLUDED.started_at, completed_at = EXCLUDED.completed_at,
			error = EXCLUDED.error, diff = EXCLUDED.diff`,
		runID, r.Address, r.Action, r.Status, r.StartedAt, r.CompletedAt, r.Error, r.Diff)
	if err != nil {
		return fmt.Errorf("%w: recording run resource %s: %w", ErrIo, r.Address, err)
	}
	return nil
}

// GetRun loads a run record, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, operation, started_at, completed_at, status,
		       planned, succeeded, failed, skipped, COALESCE(error, '')
		FROM runs WHERE id = $1`, runID)

	var r Run
	var op, status string
	err := row.Scan(&r.ID, &r.WorkspaceID, &op, &r.StartedAt, &r.CompletedAt, &status,
		&r.Planned, &r.Succeeded, &r.Failed, &r.Skipped, &r.Error)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading run %s: %w", ErrIo, runID, err)
	}
	r.Operation = Operation(op)
	r.Status = RunStatus(status)
	return &r, nil
}
