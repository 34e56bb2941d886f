// Init command for the festivals CLI.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize festivals storage",
		Long:  "Create the configuration directory with a default config.yaml, then attach the backend once so its data directory and files exist.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.attach()
			if err != nil {
				return err
			}
			defer dir.Detach()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "festivals initialized")
			fmt.Fprintln(out, "  config: ", a.configDir)
			fmt.Fprintln(out, "  backend:", a.cfg.Backend)
			if a.cfg.Backend != types.BackendDynamoDB {
				fmt.Fprintln(out, "  data:   ", a.cfg.DataDir)
			}
			return nil
		},
	}
}
