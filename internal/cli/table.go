// Get, list, set and delete commands for the festivals CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Get an entity by ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.attach()
			if err != nil {
				return err
			}
			defer dir.Detach()

			t, err := table(dir, args[0])
			if err != nil {
				return err
			}
			entity, err := t.Get(args[1])
			if err != nil {
				return classify(err, fmt.Sprintf("get %s/%s", args[0], args[1]))
			}
			return printJSON(cmd, entity)
		},
	}
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <table> [key=value...]",
		Short: "List entities with optional filters",
		Long: `List queries entities from a table. Filters are key=value pairs and are
ANDed together. Values are parsed as JSON when possible, so limit=10 is a
number; an empty value such as parent_id= selects roots.

Example:
  festivals list festivals
  festivals list categories festival_id=<id> parent_id=
  festivals list places festival_id=<id> limit=10 offset=10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(args[1:])
			if err != nil {
				return userError(err)
			}

			dir, err := a.attach()
			if err != nil {
				return err
			}
			defer dir.Detach()

			t, err := table(dir, args[0])
			if err != nil {
				return err
			}
			entities, err := t.Fetch(filter)
			if err != nil {
				return classify(err, "fetch entities")
			}
			return printJSON(cmd, entities)
		},
	}
}

func parseFilter(args []string) (types.Filter, error) {
	filter := types.Filter{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Newf("invalid filter %q (expected key=value)", arg)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		filter[key] = parsed
	}
	return filter, nil
}

func (a *app) newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <table> <json>",
		Short: "Create or update an entity",
		Long: `Set stores the JSON entity. An entity without an ID, or with an ID that
does not exist yet, is created; otherwise it is updated.

Example:
  festivals set festivals '{"name":"Roadburn"}'
  festivals set categories '{"festival_id":"<id>","name":"Rock","parent_id":"<music>"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, id, err := parseEntityJSON(args[0], []byte(args[1]))
			if err != nil {
				return userError(errors.Wrap(err, "parse JSON"))
			}

			dir, err := a.attach()
			if err != nil {
				return err
			}
			defer dir.Detach()

			t, err := table(dir, args[0])
			if err != nil {
				return err
			}
			savedID, err := t.Set(id, entity)
			if err != nil {
				return classify(err, "set entity")
			}
			saved, err := t.Get(savedID)
			if err != nil {
				return sysError(errors.Wrap(err, "get saved entity"))
			}
			return printJSON(cmd, saved)
		},
	}
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Remove an entity by ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.attach()
			if err != nil {
				return err
			}
			defer dir.Detach()

			t, err := table(dir, args[0])
			if err != nil {
				return err
			}
			if err := t.Delete(args[1]); err != nil {
				return classify(err, fmt.Sprintf("delete %s/%s", args[0], args[1]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", args[0], args[1])
			return nil
		},
	}
}
