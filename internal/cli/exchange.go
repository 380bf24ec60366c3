package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/modpack/internal/model"
	"github.com/roach88/modpack/internal/state"
)

// ExchangeOptions holds flags for export and import.
type ExchangeOptions struct {
	*RootOptions
	Output string // export destination; stdout when empty
	As     string // document encoding; inferred from the file name when empty
}

// documentFormat resolves --as, falling back to the file extension.
func (o *ExchangeOptions) documentFormat(path string) (state.Format, error) {
	if o.As != "" {
		return state.ParseFormat(o.As)
	}
	return state.FormatFromPath(path), nil
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExchangeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole database as one document",
		Long: `Export every collection as a single JSON (default) or YAML document.

Examples:
  modpack export > pack.json
  modpack export -o pack.yaml
  modpack export --as yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.As, "as", "", "document format (json|yaml)")

	return cmd
}

func runExport(opts *ExchangeOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	format, err := opts.documentFormat(opts.Output)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	return withSession(cmd, opts.RootOptions, f, func(s *session) error {
		snap := s.manager.Snapshot()

		if opts.Output == "" {
			if err := state.Export(cmd.OutOrStdout(), snap, format); err != nil {
				return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to export", err)
			}
			return nil
		}

		var buf bytes.Buffer
		if err := state.Export(&buf, snap, format); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to export", err)
		}
		if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("failed to write %s", opts.Output), err)
		}

		f.VerboseLog("Wrote %d bytes", buf.Len())
		if f.Format == "json" {
			return f.Success(exchangeSummary(opts.Output, format, snap))
		}
		return f.Success(fmt.Sprintf("✓ Exported to %s", opts.Output))
	})
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExchangeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace collections from a document",
		Long: `Import a JSON or YAML document written by export.

Every collection present in the document replaces the stored one
entirely; collections the document leaves out are kept. Plugins are
re-evaluated from their scripts and a plugin whose script no longer
evaluates is skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "document format (json|yaml)")
	addSyncFlag(cmd, opts.RootOptions)

	return cmd
}

func runImport(opts *ExchangeOptions, source string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	format, err := opts.documentFormat(source)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	data, err := readSource(cmd, source)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("failed to read %s", source), err)
	}

	snap, err := state.Import(bytes.NewReader(data), format)
	if errors.Is(err, state.ErrEmptyDocument) {
		return f.Fail(ExitCommandError, ErrCodeEmpty, "document has no collections", err)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeParse, fmt.Sprintf("failed to decode %s", source), err)
	}

	return withSession(cmd, opts.RootOptions, f, func(s *session) error {
		s.manager.ReplaceSnapshot(snap)

		if f.Format == "json" {
			return f.Success(exchangeSummary(source, format, s.manager.Snapshot()))
		}
		counts := s.manager.Snapshot().Counts()
		return f.Success(fmt.Sprintf("✓ Imported %s (%d categories, %d resources, %d recipes, %d machines, %d plugins)",
			source,
			counts[model.Categories],
			counts[model.Resources],
			counts[model.Recipes],
			counts[model.Machines],
			counts[model.Plugins]))
	})
}

// exchangeSummary is the JSON payload of export -o and import.
func exchangeSummary(path string, format state.Format, snap model.Snapshot) map[string]any {
	counts := make(map[string]int, len(model.AllCollections))
	for coll, n := range snap.Counts() {
		counts[string(coll)] = n
	}
	return map[string]any{
		"file":   path,
		"format": format,
		"counts": counts,
	}
}
