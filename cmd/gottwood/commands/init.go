package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/14tweny/Gottwood-Review-sub000/internal/printer"
	"github.com/14tweny/Gottwood-Review-sub000/internal/scaffold"
)

var (
	forceInit     bool
	initOrgID     string
	initOrgName   string
	initCurrentPd string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter gottwood.yml",
	Long: `Write a starter configuration to the --config path (gottwood.yml by default).

The file points at a local Redis and lists one organization. Edit it to
match your backend before running other commands.

Use --force to overwrite an existing configuration.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing configuration")
	initCmd.Flags().StringVar(&initOrgID, "org-id", "", "Organization id (default my-festival)")
	initCmd.Flags().StringVar(&initOrgName, "org-name", "", "Organization display name")
	initCmd.Flags().StringVar(&initCurrentPd, "current-period", "", "Current period label (default this year)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	params := scaffold.DefaultParams(time.Now().Year())
	if initOrgID != "" {
		params.OrgID = initOrgID
		params.OrgName = initOrgID
	}
	if initOrgName != "" {
		params.OrgName = initOrgName
	}
	if initCurrentPd != "" {
		params.CurrentPeriod = initCurrentPd
	}
	if err := scaffold.CheckParams(params); err != nil {
		return printer.Error("invalid init parameters", err.Error(), nil)
	}

	if !forceInit {
		if err := scaffold.CheckExisting(configPath); err != nil {
			return printer.Error("configuration exists", err.Error(), nil)
		}
	}

	if err := scaffold.Initialize(configPath, params, forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	printer.Success("Wrote %s\n", configPath)
	fmt.Fprintln(printer.Stdout, "\nNext steps:")
	fmt.Fprintln(printer.Stdout, "  1. Point redis_url or database_url at your backend")
	fmt.Fprintf(printer.Stdout, "  2. Say who you are:  gottwood --as \"Your Name\" whoami\n")
	fmt.Fprintf(printer.Stdout, "  3. Add a department: gottwood depts lighting=Lighting\n")
	return nil
}
