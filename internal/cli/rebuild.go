// Rebuild command for the festivals CLI.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/festivals/internal/breadcrumbs"
)

func (a *app) newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Materialize breadcrumbs for every festival and print the report",
		Long: `Rebuild runs a full breadcrumb rebuild of categories and places and
prints one line per festival. The exit code is 2 when any festival failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.attach()
			if err != nil {
				return err
			}
			defer dir.Detach()

			svc, err := a.newService(dir)
			if err != nil {
				return err
			}
			reports := svc.RebuildAll(cmd.Context())

			if a.flags.jsonMode {
				if err := printJSON(cmd, reports); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), reports.Categories)
				printReport(cmd.OutOrStdout(), reports.Places)
			}
			if reports.Failed() {
				return sysError(reports.Err())
			}
			return nil
		},
	}
}

func printReport(w io.Writer, r breadcrumbs.Report) {
	fmt.Fprintf(w, "%s: %d ok, %d failed, %d skipped\n", r.Kind,
		r.Count(breadcrumbs.ScopeOK), r.Count(breadcrumbs.ScopeFailed), r.Count(breadcrumbs.ScopeSkipped))
	if r.ListError != "" {
		fmt.Fprintf(w, "  listing festivals: %s\n", r.ListError)
	}
	for _, s := range r.Scopes {
		line := fmt.Sprintf("  %s %-7s %d records", s.ScopeID, s.Status, s.Records)
		if s.Changed {
			line += " (changed)"
		}
		if s.Error != "" {
			line += ": " + s.Error
		}
		fmt.Fprintln(w, line)
	}
}
