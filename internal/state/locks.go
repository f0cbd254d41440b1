// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-uuid"
	"github.com/lib/pq"
)

// Lock is one held lock record (§3 "Lock").
type Lock struct {
	ID          string
	Address     string
	WorkspaceID string
	AcquiredAt  time.Time
	Holder      string
	Operation   string
	ExpiresAt   *time.Time
	Info        string
}

// LockInfo is the caller-supplied request to AcquireLock.
type LockInfo struct {
	Holder    string
	Operation string
	ExpiresAt *time.Time
	Info      string
}

// AcquireLock takes the lock for (address, workspace), per §4.A: it first
// reaps any row whose expires_at has passed, then inserts a new row,
// failing with ErrAlreadyLocked if the unique (address, workspace_id)
// constraint trips. The lock ID is generated with github.com/hashicorp/
// go-uuid, the same dependency the teacher's pg backend uses for its own
// advisory-lock IDs (internal/backend/remote-state/pg/client.go).
func (s *Store) AcquireLock(ctx context.Context, address, workspaceID string, info LockInfo) (*Lock, error) {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM resource_locks
		WHERE address = $1 AND workspace_id = $2 AND expires_at IS NOT NULL AND expires_at < now()`,
		address, workspaceID); err != nil {
		return nil, fmt.Errorf("%w: reaping expired lock: %w", ErrIo, err)
	}

	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, fmt.Errorf("%w: generating lock id: %w", ErrIo, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resource_locks (address, workspace_id, lock_id, acquired_at, holder, operation, expires_at, info)
		VALUES ($1, $2, $3, now(), $4, $5, $6, $7)`,
		address, workspaceID, id, info.Holder, info.Operation, info.ExpiresAt, info.Info)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s is already locked in workspace %s", ErrAlreadyLocked, address, workspaceID)
		}
		return nil, fmt.Errorf("%w: acquiring lock: %w", ErrIo, err)
	}

	return &Lock{
		ID: id, Address: address, WorkspaceID: workspaceID,
		Holder: info.Holder, Operation: info.Operation, ExpiresAt: info.ExpiresAt, Info: info.Info,
	}, nil
}

// ReleaseLock removes the lock with the given ID, failing with
// ErrNotFound if no row matches.
func (s *Store) ReleaseLock(ctx context.Context, lockID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM resource_locks WHERE lock_id = $1`, lockID)
	if err != nil {
		return fmt.Errorf("%w: releasing lock: %w", ErrIo, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: releasing lock: %w", ErrIo, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: lock %s", ErrNotFound, lockID)
	}
	return nil
}

// ForceUnlock unconditionally deletes the lock for (address, workspace),
// regardless of holder (§4.A "unconditionally deletes").
func (s *Store) ForceUnlock(ctx context.Context, address, workspaceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM resource_locks WHERE address = $1 AND workspace_id = $2`, address, workspaceID)
	if err != nil {
		return fmt.Errorf("%w: force-unlocking %s: %w", ErrIo, address, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if ok := asPQError(err, &pqErr); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func asPQError(err error, target **pq.Error) bool {
	for err != nil {
		if pe, ok := err.(*pq.Error); ok {
			*target = pe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
