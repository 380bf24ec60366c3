package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/modpack/internal/model"
)

// ErrNotFound is returned by Get when no record has the given ID.
var ErrNotFound = errors.New("record not found")

// GetAll returns every record of a table as raw JSON, in collection order.
// Returns an empty slice (not nil) for an empty table.
func (s *Store) GetAll(ctx context.Context, table model.Collection) ([]json.RawMessage, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM `+name+`
		ORDER BY position ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	records := []json.RawMessage{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		records = append(records, json.RawMessage(data))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}

	return records, nil
}

// Get returns a single record as raw JSON.
// Returns ErrNotFound if the ID is absent.
func (s *Store) Get(ctx context.Context, table model.Collection, id string) (json.RawMessage, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}

	var data string
	err = s.db.QueryRowContext(ctx, "SELECT data FROM "+name+" WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s %q: %w", name, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %q: %w", name, id, err)
	}
	return json.RawMessage(data), nil
}

// Decode unmarshals raw records into typed values.
func Decode[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
