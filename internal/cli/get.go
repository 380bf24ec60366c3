package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/modpack/internal/model"
	"github.com/roach88/modpack/internal/state"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <collection> [id]",
		Short: "List a collection",
		Long: `List every record of a collection, or one record by id.

Collections: categories, resources, recipes, machines, plugins.

Examples:
  modpack get resources
  modpack get recipes smelt_iron
  modpack get machines --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return runGet(rootOpts, args[0], id, cmd)
		},
	}

	return cmd
}

func runGet(opts *RootOptions, name, id string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	coll, ok := model.ParseCollection(name)
	if !ok {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("unknown collection %q", name), nil)
	}

	return withSession(cmd, opts, f, func(s *session) error {
		data, header, rows := collectionTable(s.manager, coll, id)
		if id != "" && len(rows) == 0 {
			return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("%s %q not found", coll, id), nil)
		}
		return f.Table(data, header, rows)
	})
}

// collectionTable returns the records of coll (only id, when set) both as
// a JSON payload and as table rows.
func collectionTable(m *state.Manager, coll model.Collection, id string) (any, table.Row, []table.Row) {
	switch coll {
	case model.Categories:
		items := pick(m.Categories(), id)
		rows := make([]table.Row, len(items))
		for i, c := range items {
			rows[i] = table.Row{c.ID, c.Name, c.Color, c.IconType}
		}
		return items, table.Row{"ID", "Name", "Color", "Icon"}, rows

	case model.Resources:
		items := pick(m.Resources(), id)
		rows := make([]table.Row, len(items))
		for i, r := range items {
			rows[i] = table.Row{r.ID, r.Name, r.Type, r.Hidden}
		}
		return items, table.Row{"ID", "Name", "Type", "Hidden"}, rows

	case model.Recipes:
		items := pick(m.Recipes(), id)
		rows := make([]table.Row, len(items))
		for i, r := range items {
			rows[i] = table.Row{r.ID, r.Name, r.MachineID, formatStacks(r.Inputs), formatStacks(r.Outputs), strconv.FormatFloat(r.Duration, 'f', -1, 64)}
		}
		return items, table.Row{"ID", "Name", "Machine", "Inputs", "Outputs", "Ticks"}, rows

	case model.Machines:
		items := pick(m.Machines(), id)
		rows := make([]table.Row, len(items))
		for i, d := range items {
			rows[i] = table.Row{d.ID, d.Name, formatSlots(d.Inputs), formatSlots(d.Outputs)}
		}
		return items, table.Row{"ID", "Name", "Inputs", "Outputs"}, rows

	case model.Plugins:
		items := pick(m.Plugins(), id)
		rows := make([]table.Row, len(items))
		for i, p := range items {
			procs := make([]string, len(p.Processors))
			for j, proc := range p.Processors {
				procs[j] = proc.ID
			}
			rows[i] = table.Row{p.ID, p.Name, p.Version, len(p.Machines), strings.Join(procs, ", ")}
		}
		return items, table.Row{"ID", "Name", "Version", "Machines", "Processors"}, rows
	}
	return nil, nil, nil
}

// pick returns items unchanged for an empty id, otherwise the matching
// record alone (or nothing).
func pick[T model.Record](items []T, id string) []T {
	if id == "" {
		return items
	}
	for _, item := range items {
		if item.Key() == id {
			return []T{item}
		}
	}
	return []T{}
}

func formatStacks(stacks []model.ResourceStack) string {
	parts := make([]string, len(stacks))
	for i, s := range stacks {
		parts[i] = strconv.FormatFloat(s.Amount, 'f', -1, 64) + "x " + s.ResourceID
	}
	return strings.Join(parts, ", ")
}

func formatSlots(slots []model.MachineSlot) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		label := fmt.Sprintf("%s (%s)", s.Label, s.Type)
		if s.Optional {
			label += "?"
		}
		parts[i] = label
	}
	return strings.Join(parts, ", ")
}
