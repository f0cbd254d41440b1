// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"context"
	"encoding/json"
	"fmt"
)

// QueryRaw runs an arbitrary read-only SQL statement against the store's
// underlying database and returns each row as a column-name-to-value map
// (§4.A "query_raw(sql) — an escape hatch for ad-hoc inspection"). Any
// string column whose contents begin with '{', '[' or '"' and parse as
// JSON is recursively decoded into
// its nested map/slice/scalar form rather than left as a raw string, so
// callers can navigate e.g. a resource's `attributes` column the same way
// they'd navigate any other nested result — the store has no schema to
// consult at this layer, so sniffing is the only option.
func (s *Store) QueryRaw(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := s.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query_raw: %w", ErrIo, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: query_raw reading columns: %w", ErrIo, err)
	}

	var out []map[string]interface{}
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: query_raw scanning row: %w", ErrIo, err)
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = sniffQueryValue(raw[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// sniffQueryValue normalizes one scanned column value: []byte is decoded as
// a UTF-8 string, and any string that begins with '{', '[' or '"' and parses as JSON is
// replaced by its
// decoded form so nested structures (attributes, sensitive_attrs, output
// values) are directly navigable instead of opaque text.
func sniffQueryValue(v interface{}) interface{} {
	var s string
	switch t := v.(type) {
	case []byte:
		s = string(t)
	case string:
		s = t
	default:
		return v
	}

	trimmed := len(s) > 0 && (s[0] == '{' || s[0] == '[' || s[0] == '"')
	if !trimmed {
		return s
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return s
	}
	return decoded
}
