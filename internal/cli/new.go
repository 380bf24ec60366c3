package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/modpack/internal/model"
	"github.com/roach88/modpack/internal/state"
)

// NewOptions holds flags for the new command.
type NewOptions struct {
	*RootOptions
	Type   string
	Hidden bool
	Color  string
	Icon   string
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "new resource|category <name>",
		Short: "Create a resource or category from a display name",
		Long: `Create a resource or category. The id is derived from the name:
accents are dropped, letters are lower-cased and everything else becomes
an underscore ("Molten Bronze" -> molten_bronze).

Examples:
  modpack new resource "Copper Ingot"
  modpack new resource "Steam" --type fluid
  modpack new category "Gases" --color "#a3e635" --icon wind`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "item", "category id of a new resource")
	cmd.Flags().BoolVar(&opts.Hidden, "hidden", false, "hide a new resource from pickers")
	cmd.Flags().StringVar(&opts.Color, "color", "#64748b", "color of a new category")
	cmd.Flags().StringVar(&opts.Icon, "icon", string(model.IconBox), "icon of a new category (box|droplet|zap|wind|star)")
	addSyncFlag(cmd, opts.RootOptions)

	return cmd
}

func runNew(opts *NewOptions, kind, name string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	id := model.Slug(name)

	return withSession(cmd, opts.RootOptions, f, func(s *session) error {
		var (
			record any
			err    error
		)
		switch kind {
		case "resource":
			if _, ok := s.manager.Category(opts.Type); !ok {
				f.VerboseLog("Category %q does not exist yet", opts.Type)
			}
			r := model.Resource{ID: id, Name: name, Type: opts.Type, Hidden: opts.Hidden}
			record, err = r, s.manager.AddResource(r)
		case "category":
			icon := model.IconType(opts.Icon)
			if !model.ValidIconTypes[icon] {
				return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid icon %q", opts.Icon), nil)
			}
			c := model.Category{ID: id, Name: name, Color: opts.Color, IconType: icon}
			record, err = c, s.manager.AddCategory(c)
		default:
			return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("cannot create %q: want resource or category", kind), nil)
		}

		if errors.Is(err, state.ErrDuplicateID) {
			return f.Fail(ExitFailure, ErrCodeDuplicate, fmt.Sprintf("%s %q already exists", kind, id), err)
		}
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to create %s", kind), err)
		}

		if f.Format == "json" {
			return f.Success(record)
		}
		return f.Success(fmt.Sprintf("✓ Created %s %s", kind, id))
	})
}
