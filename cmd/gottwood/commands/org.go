package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/14tweny/Gottwood-Review-sub000/internal/printer"
	"github.com/14tweny/Gottwood-Review-sub000/internal/roster"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

var rosterRole string

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show who you act as, and the period kind of the selected period",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var yearsCmd = &cobra.Command{
	Use:   "years [period...]",
	Short: "List the organization's periods, or replace the list",
	RunE:  runYears,
}

var deptsCmd = &cobra.Command{
	Use:   "depts [id=Name...]",
	Short: "List the organization's departments, or replace the list",
	Example: `  gottwood depts
  gottwood depts lighting=Lighting sound=Sound stage-mgmt="Stage Management"`,
	RunE: runDepts,
}

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manage the organization's roster of people",
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List roster members in their colors",
	Args:  cobra.NoArgs,
	RunE:  runRosterList,
}

var rosterAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Enroll a person",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterAdd,
}

var rosterRemoveCmd = &cobra.Command{
	Use:   "remove <name-or-id>",
	Short: "Remove a person from the roster",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterRemove,
}

var rosterResolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Show which roster member a name refers to",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterResolve,
}

func init() {
	rosterAddCmd.Flags().StringVar(&rosterRole, "role", "", "Role, e.g. 'Head of Sound'")

	rosterCmd.AddCommand(rosterListCmd, rosterAddCmd, rosterRemoveCmd, rosterResolveCmd)
	rootCmd.AddCommand(whoamiCmd, yearsCmd, deptsCmd, rosterCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, false)
	if err != nil {
		return err
	}
	defer ws.close()

	scope := ws.sess.Scope()
	name := ws.sess.Identity()
	if name == "" {
		printer.Info("Not identified in %s\n", scope.Org)
		printer.Info("Identify with: gottwood --as \"Your Name\" whoami\n")
	} else {
		c := ws.sess.Resolver().ColorFor(name)
		fmt.Fprintf(printer.Stdout, "%s in %s\n", printer.Swatch(c.Hex, name), scope.Org)
	}
	fmt.Fprintf(printer.Stdout, "Period %s is a %s period\n", scope.Period, ws.sess.Kind())
	return nil
}

func runYears(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, false)
	if err != nil {
		return err
	}
	defer ws.close()

	years := ws.sess.Years()
	if len(args) > 0 {
		if years, err = ws.sess.SetYears(args); err != nil {
			return printer.Error("failed to set periods", err.Error(), nil)
		}
		printer.Success("Updated periods\n")
	}

	current := ws.cfg.CurrentPeriod
	for _, y := range years {
		marker := " "
		if y == current {
			marker = "*"
		}
		fmt.Fprintf(printer.Stdout, "%s %s (%s)\n", marker, y, model.Classify(y, current))
	}
	return nil
}

func runDepts(cmd *cobra.Command, args []string) error {
	var depts []model.Department
	for _, arg := range args {
		id, name, ok := strings.Cut(arg, "=")
		if !ok {
			name = id
		}
		depts = append(depts, model.Department{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}

	ctx := context.Background()
	ws, err := openWorkspace(ctx, false)
	if err != nil {
		return err
	}
	defer ws.close()

	if len(depts) > 0 {
		if err := ws.sess.SetDepartments(depts); err != nil {
			return printer.Error("failed to set departments", err.Error(), nil)
		}
		printer.Success("Updated departments\n")
	}
	for _, d := range ws.sess.Departments() {
		fmt.Fprintf(printer.Stdout, "  %-16s %s\n", d.ID, d.Name)
	}
	return nil
}

func runRosterList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, false)
	if err != nil {
		return err
	}
	defer ws.close()

	members := ws.sess.Roster()
	if len(members) == 0 {
		printer.Info("The roster is empty\n")
		return nil
	}
	resolver := ws.sess.Resolver()
	for _, m := range members {
		c := resolver.ColorFor(m.Name)
		fmt.Fprintf(printer.Stdout, "  %s %-24s %s\n", printer.Swatch(c.Hex, "●"), m.Name, m.Role)
	}
	return nil
}

func runRosterAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, false)
	if err != nil {
		return err
	}
	defer ws.close()

	m, err := ws.sess.AddRosterMember(args[0], rosterRole)
	if err != nil {
		return printer.Error("failed to add member", err.Error(), nil)
	}
	c, _ := roster.PaletteColor(m.ColorID)
	printer.Success("Enrolled %s\n", printer.Swatch(c.Hex, m.Name))
	return nil
}

func runRosterRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, false)
	if err != nil {
		return err
	}
	defer ws.close()

	id := args[0]
	if m, ok := ws.sess.Resolver().Resolve(args[0]); ok {
		id = m.ID
	}
	if err := ws.sess.RemoveRosterMember(id); err != nil {
		return printer.Error("failed to remove member", err.Error(), []string{"List members:\n  gottwood roster list"})
	}
	printer.Success("Removed %s from the roster\n", args[0])
	return nil
}

func runRosterResolve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openWorkspace(ctx, false)
	if err != nil {
		return err
	}
	defer ws.close()

	resolver := ws.sess.Resolver()
	m, ok := resolver.Resolve(args[0])
	if !ok {
		c := resolver.ColorFor(args[0])
		fmt.Fprintf(printer.Stdout, "%s is not on the roster\n", printer.Swatch(c.Hex, args[0]))
		return nil
	}
	fmt.Fprintf(printer.Stdout, "%s -> %s (%s)\n", args[0], printer.Swatch(resolver.ColorFor(m.Name).Hex, m.Name), m.ID)
	return nil
}
