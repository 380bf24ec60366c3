package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/modpack/internal/state"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Plugin    string
	Processor string // empty renders with every processor of the plugin
}

// Rendering is one processor's output for a recipe.
type Rendering struct {
	Processor string `json:"processor"`
	Text      string `json:"text"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <recipe-id>",
		Short: "Render a recipe with a plugin's processors",
		Long: `Render a recipe through a plugin processor, for example into a script
line for a mod loader. Without --processor every processor of the plugin
runs, one line each.

A handler that fails renders as an inline "/* processor ... failed */"
comment rather than failing the command.

Examples:
  modpack render smelt_iron --plugin steam_age --processor kubejs
  modpack render smelt_iron --plugin steam_age`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Plugin, "plugin", "", "plugin id (required)")
	cmd.Flags().StringVar(&opts.Processor, "processor", "", "processor id (default all)")
	_ = cmd.MarkFlagRequired("plugin")

	return cmd
}

func runRender(opts *RenderOptions, recipeID string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	return withSession(cmd, opts.RootOptions, f, func(s *session) error {
		processors := []string{opts.Processor}
		if opts.Processor == "" {
			p, ok := s.manager.Plugin(opts.Plugin)
			if !ok {
				return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("plugin %q not found", opts.Plugin), nil)
			}
			processors = processors[:0]
			for _, proc := range p.Processors {
				processors = append(processors, proc.ID)
			}
		}

		out := make([]Rendering, 0, len(processors))
		for _, id := range processors {
			text, err := s.manager.RenderRecipe(recipeID, opts.Plugin, id)
			if errors.Is(err, state.ErrNotFound) {
				return f.Fail(ExitFailure, ErrCodeNotFound, err.Error(), nil)
			}
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, "render failed", err)
			}
			out = append(out, Rendering{Processor: id, Text: text})
		}

		if f.Format == "json" {
			return f.Success(map[string]any{"recipe": recipeID, "plugin": opts.Plugin, "renderings": out})
		}
		if len(out) == 1 && opts.Processor != "" {
			return f.Success(out[0].Text)
		}
		lines := make([]string, len(out))
		for i, r := range out {
			lines[i] = r.Processor + ": " + r.Text
		}
		return f.Success(strings.Join(lines, "\n"))
	})
}
