package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/modpack/internal/check"
)

// CheckResult holds lint results.
type CheckResult struct {
	Valid  bool          `json:"valid"`
	Issues []check.Issue `json:"issues,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Lint the database",
		Long: `Report records that do not fit together: recipes naming unknown
machines or resources, recipe stacks beyond or mismatched with the
machine's slots, resources in unknown categories, repeated ids and
unknown category icons. Nothing is changed.

Exit codes:
  0 - No issues
  1 - One or more issues
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	return withSession(cmd, opts, f, func(s *session) error {
		issues := check.Check(s.manager.Snapshot())
		if len(issues) == 0 {
			if f.Format == "json" {
				return f.Success(CheckResult{Valid: true})
			}
			fmt.Fprintln(f.Writer, "✓ No issues found")
			return nil
		}
		return outputIssues(f, issues)
	})
}

// outputIssues outputs lint findings.
func outputIssues(f *OutputFormatter, issues []check.Issue) error {
	if f.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   CheckResult{Valid: false, Issues: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}

		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("check found %d issue(s)", len(issues)))
	}

	fmt.Fprintf(f.Writer, "✗ %d issue(s) found\n", len(issues))
	rows := make([]table.Row, len(issues))
	for i, issue := range issues {
		rows[i] = table.Row{issue.Code, issue.Field, issue.Message}
	}
	if err := f.Table(nil, table.Row{"Code", "Field", "Message"}, rows); err != nil {
		return err
	}

	return NewExitError(ExitFailure, fmt.Sprintf("check found %d issue(s)", len(issues)))
}
