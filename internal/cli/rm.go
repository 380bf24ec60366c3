package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/modpack/internal/model"
	"github.com/roach88/modpack/internal/state"
)

// RmOptions holds flags for the rm command.
type RmOptions struct {
	*RootOptions
	Force bool
}

// NewRmCommand creates the rm command.
func NewRmCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RmOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rm <collection> <id>",
		Short: "Delete a record",
		Long: `Delete a record by id.

A resource used by a recipe, a machine a recipe runs in, or a category a
resource belongs to is not deleted unless --force is given. Forced
deletes leave the referencing records as they are; "modpack check"
reports them afterwards.

Removing a plugin keeps the machines it installed.

Exit codes:
  0 - Deleted
  1 - Not found, or still referenced
  2 - Command error`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "delete even when other records reference it")
	addSyncFlag(cmd, opts.RootOptions)

	return cmd
}

func runRm(opts *RmOptions, name, id string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	coll, ok := model.ParseCollection(name)
	if !ok {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("unknown collection %q", name), nil)
	}

	return withSession(cmd, opts.RootOptions, f, func(s *session) error {
		refs := references(s.manager, coll, id)
		if len(refs) > 0 && !opts.Force {
			msg := fmt.Sprintf("%s %q is referenced by %s (use --force)", coll, id, strings.Join(refs, ", "))
			return f.Fail(ExitFailure, ErrCodeReferenced, msg, nil)
		}

		found, err := s.manager.Delete(coll, id)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "delete failed", err)
		}
		if !found {
			return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("%s %q not found", coll, id), nil)
		}

		if len(refs) > 0 {
			f.VerboseLog("Forced delete left %d reference(s) dangling", len(refs))
		}
		if f.Format == "json" {
			return f.Success(map[string]any{"collection": coll, "id": id, "dangling": refs})
		}
		return f.Success(fmt.Sprintf("✓ Removed %s %s", coll, id))
	})
}

// references describes the records that point at coll/id.
func references(m *state.Manager, coll model.Collection, id string) []string {
	var refs []string
	switch coll {
	case model.Resources:
		for _, r := range m.RecipesUsingResource(id) {
			refs = append(refs, "recipe "+r.ID)
		}
	case model.Machines:
		for _, r := range m.RecipesUsingMachine(id) {
			refs = append(refs, "recipe "+r.ID)
		}
	case model.Categories:
		for _, r := range m.ResourcesOfCategory(id) {
			refs = append(refs, "resource "+r.ID)
		}
	}
	return refs
}
