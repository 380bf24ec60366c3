package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/modpack/internal/model"
)

// Put inserts or replaces a record, keyed by record.Key().
//
// A new ID is appended after the current last position. An existing ID is
// updated in place and keeps its position, so upserts never reorder a
// collection.
func (s *Store) Put(ctx context.Context, table model.Collection, record model.Record) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	if err := put(ctx, s.db, name, record); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

// Delete removes a record by ID. Deleting a missing ID is not an error.
func (s *Store) Delete(ctx context.Context, table model.Collection, id string) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+name+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Clear removes every record from a table.
func (s *Store) Clear(ctx context.Context, table model.Collection) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+name); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	return nil
}

// Replace clears a table and writes records in order, in one transaction.
// Readers never observe the table half-replaced.
func (s *Store) Replace(ctx context.Context, table model.Collection, records []model.Record) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace %s: begin tx: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
		return fmt.Errorf("replace %s: clear: %w", name, err)
	}
	for _, rec := range records {
		if err := put(ctx, tx, name, rec); err != nil {
			return fmt.Errorf("replace %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace %s: commit: %w", name, err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func put(ctx context.Context, ex execer, name string, record model.Record) error {
	id := record.Key()
	if id == "" {
		return fmt.Errorf("record has empty id")
	}

	data, err := marshalRecord(record)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO `+name+` (id, position, data)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM `+name+`), ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, id, data)
	return err
}
