// Output helpers for the festivals CLI.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(errors.Wrap(err, "marshal JSON"))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
