package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/modpack/internal/plugin"
)

// NewPluginCommand creates the plugin command group.
func NewPluginCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Install, list and remove CUE plugins",
		Long: `Plugins are CUE files declaring an id, a name, extra machines and recipe
processors. Installing a plugin adds its machines to the machine catalog;
removing it keeps them.`,
	}

	cmd.AddCommand(newPluginInstallCommand(rootOpts))
	cmd.AddCommand(newPluginRmCommand(rootOpts))
	cmd.AddCommand(newPluginLsCommand(rootOpts))

	return cmd
}

func newPluginInstallCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "install <file.cue>",
		Short:         "Evaluate and install a plugin script",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPluginInstall(rootOpts, args[0], cmd)
		},
	}
	addSyncFlag(cmd, rootOpts)
	return cmd
}

func runPluginInstall(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	script, err := os.ReadFile(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("failed to read %s", path), err)
	}

	return withSession(cmd, opts, f, func(s *session) error {
		p, err := s.manager.InstallPlugin(string(script))
		if err != nil {
			var loadErr *plugin.LoadError
			if errors.As(err, &loadErr) {
				_ = f.Error(ErrCodePlugin, loadErr.Message, map[string]any{"field": loadErr.Field})
				return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", ErrCodePlugin, loadErr.Message), err)
			}
			return f.Fail(ExitCommandError, ErrCodePlugin, "plugin rejected", err)
		}

		if f.Format == "json" {
			return f.Success(p)
		}
		return f.Success(fmt.Sprintf("✓ Installed %s %s (%d machine(s), %d processor(s))",
			p.ID, p.Version, len(p.Machines), len(p.Processors)))
	})
}

func newPluginRmCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rm <id>",
		Short:         "Remove a plugin (its machines stay)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withSession(cmd, rootOpts, f, func(s *session) error {
				if !s.manager.RemovePlugin(args[0]) {
					return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("plugin %q not found", args[0]), nil)
				}
				return f.Success(fmt.Sprintf("✓ Removed plugin %s", args[0]))
			})
		},
	}
	addSyncFlag(cmd, rootOpts)
	return cmd
}

func newPluginLsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ls",
		Short:         "List installed plugins",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, "plugins", "", cmd)
		},
	}
}
