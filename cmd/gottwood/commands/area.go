package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/14tweny/Gottwood-Review-sub000/internal/printer"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

var (
	categoriesAvailable []string
	categoriesSelected  []string
)

var areaCmd = &cobra.Command{
	Use:   "area",
	Short: "Manage a department's areas",
}

var areaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the department's areas with their descriptions",
	Args:  cobra.NoArgs,
	RunE:  runAreaList,
}

var areaAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an area",
	Args:  cobra.ExactArgs(1),
	RunE:  runAreaAdd,
}

var areaRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an area from the list (its records are kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAreaRemove,
}

var areaDescribeCmd = &cobra.Command{
	Use:   "describe <name> <text>",
	Short: "Set an area's description",
	Args:  cobra.ExactArgs(2),
	RunE:  runAreaDescribe,
}

var areaCategoriesCmd = &cobra.Command{
	Use:   "categories <name>",
	Short: "Show or set the review categories of an area",
	Example: `  gottwood --dept sound area categories Stage
  gottwood --dept sound area categories Stage --available Mixing,Monitors,Comms --selected Mixing,Comms`,
	Args: cobra.ExactArgs(1),
	RunE: runAreaCategories,
}

func init() {
	areaCategoriesCmd.Flags().StringSliceVar(&categoriesAvailable, "available", nil, "Categories on offer")
	areaCategoriesCmd.Flags().StringSliceVar(&categoriesSelected, "selected", nil, "Categories reviewed in this area")

	areaCmd.AddCommand(areaListCmd, areaAddCmd, areaRemoveCmd, areaDescribeCmd, areaCategoriesCmd)
	rootCmd.AddCommand(areaCmd)
}

func runAreaList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	areas := ws.sess.Areas()
	scope := ws.sess.Scope()
	if len(areas) == 0 {
		printer.Info("No areas in %s for %s\n", scope.Dept, scope.Period)
		return nil
	}
	fmt.Fprintf(printer.Stdout, "Areas of %s (%s period %s):\n\n", scope.Dept, ws.sess.Kind(), scope.Period)
	for _, a := range areas {
		desc := ws.sess.Description(a)
		if desc == "" {
			fmt.Fprintf(printer.Stdout, "  %s\n", a)
			continue
		}
		fmt.Fprintf(printer.Stdout, "  %-20s %s\n", a, strings.SplitN(desc, "\n", 2)[0])
	}
	return nil
}

func runAreaAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	if _, err := ws.sess.AddArea(args[0]); err != nil {
		return printer.Error("failed to add area", err.Error(), nil)
	}
	printer.Success("Added area '%s'\n", args[0])
	return nil
}

func runAreaRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	if _, err := ws.sess.RemoveArea(args[0]); err != nil {
		return printer.Error("failed to remove area", err.Error(), []string{"List areas:\n  gottwood area list"})
	}
	printer.Success("Removed area '%s'\n", args[0])
	return nil
}

func runAreaDescribe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	if err := ws.sess.SetDescription(args[0], args[1]); err != nil {
		return printer.Error("failed to set description", err.Error(), nil)
	}
	printer.Success("Updated description of '%s'\n", args[0])
	return nil
}

func runAreaCategories(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, true)
	if err != nil {
		return err
	}
	defer ws.close()

	sel := ws.sess.Categories(args[0])
	flags := cmd.Flags()
	if flags.Changed("available") || flags.Changed("selected") {
		next := model.CategorySelection{Available: sel.Available, Selected: sel.Selected}
		if flags.Changed("available") {
			next.Available = categoriesAvailable
		}
		if flags.Changed("selected") {
			next.Selected = categoriesSelected
		}
		if sel, err = ws.sess.SetCategories(args[0], next); err != nil {
			return printer.Error("failed to set categories", err.Error(), nil)
		}
		printer.Success("Updated categories of '%s'\n", args[0])
	}

	fmt.Fprintf(printer.Stdout, "Available: %s\n", orNone(sel.Available))
	fmt.Fprintf(printer.Stdout, "Selected:  %s\n", orNone(sel.Selected))
	return nil
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
