// Tree and breadcrumb commands for the festivals CLI.
package cli

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/festivals/internal/breadcrumbs"
	"github.com/mesh-intelligence/festivals/internal/directory"
	"github.com/mesh-intelligence/festivals/pkg/types"
)

func categoryName(c *types.Category) string { return c.Name }
func placeName(p *types.Place) string       { return p.Name }

func (a *app) newTreeCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "tree <festival-id>",
		Short: "Show the category or place tree of a festival",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withFestival(args[0], func(svc *directory.Service) error {
				switch kind {
				case types.TableCategories:
					return showTree(cmd, a.flags.jsonMode, svc.Categories, args[0], categoryName)
				case types.TablePlaces:
					return showTree(cmd, a.flags.jsonMode, svc.Places, args[0], placeName)
				default:
					return userError(errors.Newf("unknown kind %q (valid: categories, places)", kind))
				}
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", types.TableCategories, "hierarchy to show: categories or places")
	return cmd
}

func (a *app) newBreadcrumbCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "breadcrumb <categories|places> <festival-id> <id>",
		Short: "Show an entity with its ancestors and children",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, festivalID, id := args[0], args[1], args[2]
			return a.withFestival(festivalID, func(svc *directory.Service) error {
				switch kind {
				case types.TableCategories:
					return showBreadcrumb(cmd, a.flags.jsonMode, svc.Categories, festivalID, id, categoryName)
				case types.TablePlaces:
					return showBreadcrumb(cmd, a.flags.jsonMode, svc.Places, festivalID, id, placeName)
				default:
					return userError(errors.Newf("unknown kind %q (valid: categories, places)", kind))
				}
			})
		},
	}
}

// withFestival attaches the directory, checks that festivalID exists and
// hands a fresh service to fn.
func (a *app) withFestival(festivalID string, fn func(svc *directory.Service) error) error {
	dir, err := a.attach()
	if err != nil {
		return err
	}
	defer dir.Detach()

	festivals, err := table(dir, types.TableFestivals)
	if err != nil {
		return err
	}
	if _, err := festivals.Get(festivalID); err != nil {
		return classify(err, "festival "+festivalID)
	}
	svc, err := a.newService(dir)
	if err != nil {
		return err
	}
	return fn(svc)
}

func showTree[E types.Hierarchical](cmd *cobra.Command, jsonMode bool, engine *breadcrumbs.Engine[E], festivalID string, name func(E) string) error {
	if _, err := engine.RebuildScope(cmd.Context(), festivalID); err != nil {
		return sysError(err)
	}
	records, _ := engine.Records(festivalID)
	if jsonMode {
		return printJSON(cmd, records)
	}

	root := treeOf(records, name)
	root.Text = fmt.Sprintf("%s (%s)", festivalID, engine.Kind())
	out, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		return sysError(errors.Wrap(err, "render tree"))
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// treeOf nests records under their roots. Entities caught in a parent
// cycle have no root and are not shown.
func treeOf[E any](records []breadcrumbs.Record[E], name func(E) string) pterm.TreeNode {
	byID := make(map[string]breadcrumbs.Record[E], len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	seen := make(map[string]bool, len(records))

	var build func(r breadcrumbs.Record[E]) pterm.TreeNode
	build = func(r breadcrumbs.Record[E]) pterm.TreeNode {
		seen[r.ID] = true
		node := pterm.TreeNode{Text: name(r.Entity)}
		for _, child := range r.Children {
			if seen[child.ID] {
				continue
			}
			if rec, ok := byID[child.ID]; ok {
				node.Children = append(node.Children, build(rec))
			}
		}
		return node
	}

	var root pterm.TreeNode
	for _, r := range records {
		if r.IsRoot() && !seen[r.ID] {
			root.Children = append(root.Children, build(r))
		}
	}
	return root
}

func showBreadcrumb[E types.Hierarchical](cmd *cobra.Command, jsonMode bool, engine *breadcrumbs.Engine[E], festivalID, id string, name func(E) string) error {
	if _, err := engine.RebuildScope(cmd.Context(), festivalID); err != nil {
		return sysError(err)
	}
	rec, ok := engine.Get(festivalID, id)
	if !ok {
		return userError(errors.Wrapf(types.ErrNotFound, "%s %s in festival %s", engine.Kind(), id, festivalID))
	}
	if jsonMode {
		return printJSON(cmd, rec)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, trail(rec, name))
	for _, child := range rec.Children {
		fmt.Fprintf(out, "  %s %s\n", pterm.Gray("└"), name(child.Entity))
	}
	return nil
}

// trail renders the ancestor chain root first: "Music > Rock > Stoner Rock".
func trail[E any](rec breadcrumbs.Record[E], name func(E) string) string {
	parts := make([]string, 0, len(rec.Parents)+1)
	for i := len(rec.Parents) - 1; i >= 0; i-- {
		parts = append(parts, name(rec.Parents[i].Entity))
	}
	parts = append(parts, name(rec.Entity))
	return strings.Join(parts, " > ")
}
