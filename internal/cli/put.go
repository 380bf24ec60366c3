package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/modpack/internal/model"
	"github.com/roach88/modpack/internal/state"
)

var errEmptyInput = errors.New("input is empty")

// PutResult is the JSON payload of put.
type PutResult struct {
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <collection> <file|->",
		Short: "Insert or replace records",
		Long: `Upsert one record, or a list of records, read from a JSON or YAML file
("-" reads standard input). A record whose id already exists replaces it
in place.

Plugins are not written with put; use "modpack plugin install".

Examples:
  modpack put resources copper.yaml
  echo '{"id":"tin","name":"Tin","type":"item"}' | modpack put resources -`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(rootOpts, args[0], args[1], cmd)
		},
	}

	addSyncFlag(cmd, rootOpts)

	return cmd
}

func runPut(opts *RootOptions, name, source string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	coll, ok := model.ParseCollection(name)
	if !ok {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("unknown collection %q", name), nil)
	}
	if coll == model.Plugins {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "plugins are installed with 'modpack plugin install'", nil)
	}

	data, err := readSource(cmd, source)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("failed to read %s", source), err)
	}

	return withSession(cmd, opts, f, func(s *session) error {
		ids, err := putRecords(s.manager, coll, data)
		switch {
		case errors.Is(err, errEmptyInput):
			return f.Fail(ExitCommandError, ErrCodeEmpty, "no records in input", err)
		case errors.Is(err, state.ErrEmptyID):
			return f.Fail(ExitCommandError, ErrCodeParse, "every record needs an id", err)
		case err != nil:
			return f.Fail(ExitCommandError, ErrCodeParse, fmt.Sprintf("failed to decode %s", coll), err)
		}

		if f.Format == "json" {
			return f.Success(PutResult{Collection: string(coll), IDs: ids})
		}
		return f.Success(fmt.Sprintf("✓ Put %d record(s) into %s", len(ids), coll))
	})
}

// readSource reads a file, or standard input for "-".
func readSource(cmd *cobra.Command, source string) ([]byte, error) {
	if source == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(source)
}

// putRecords decodes data for coll and upserts every record in order.
// Records before a failing one stay written.
func putRecords(m *state.Manager, coll model.Collection, data []byte) ([]string, error) {
	switch coll {
	case model.Categories:
		return upsertAll(data, m.UpdateCategory)
	case model.Resources:
		return upsertAll(data, m.UpdateResource)
	case model.Recipes:
		return upsertAll(data, m.UpdateRecipe)
	case model.Machines:
		return upsertAll(data, m.UpdateMachine)
	}
	return nil, fmt.Errorf("cannot put into %s", coll)
}

func upsertAll[T model.Record](data []byte, upsert func(T) error) ([]string, error) {
	items, err := decodeRecords[T](data)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if err := upsert(item); err != nil {
			return ids, err
		}
		ids = append(ids, item.Key())
	}
	return ids, nil
}

// decodeRecords accepts a single mapping or a sequence of mappings, in
// YAML or JSON.
func decodeRecords[T any](data []byte) ([]T, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, errEmptyInput
	}

	doc := node.Content[0]
	if doc.Kind == yaml.SequenceNode {
		var items []T
		if err := doc.Decode(&items); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		if len(items) == 0 {
			return nil, errEmptyInput
		}
		return items, nil
	}

	var item T
	if err := doc.Decode(&item); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return []T{item}, nil
}
