package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/14tweny/Gottwood-Review-sub000/internal/config"
	"github.com/14tweny/Gottwood-Review-sub000/internal/prefs"
	"github.com/14tweny/Gottwood-Review-sub000/internal/printer"
	"github.com/14tweny/Gottwood-Review-sub000/internal/session"
)

// orgWideDept is the department placeholder for commands that only touch
// organization-wide records (years, departments, roster).
const orgWideDept = "all"

var (
	version string
	commit  string
	date    string

	configPath string
	orgID      string
	periodFlag string
	deptFlag   string
	asName     string
)

var rootCmd = &cobra.Command{
	Use:   "gottwood",
	Short: "Gottwood - shared production reviews and task trackers",
	Long: `Gottwood keeps a production team's department task checklists and
post-show reviews in a shared store, so everyone sees each other's edits
within seconds.

Current and future periods are trackers (task checklists per area). Past
periods are reviews (ratings, votes and comment threads per category).

Edits are applied locally first and saved in the background.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file")
	pf.StringVar(&orgID, "org", "", "Organization id (optional when the config lists one)")
	pf.StringVarP(&periodFlag, "period", "p", "", "Period label (defaults to current_period)")
	pf.StringVarP(&deptFlag, "dept", "d", "", "Department id")
	pf.StringVar(&asName, "as", "", "Act as this person (enrolls unknown names in the roster)")
}

// workspace is an open session together with the resources behind it.
type workspace struct {
	cfg   *config.Config
	sess  *session.Session
	close func()
}

// openWorkspace loads the configuration, connects to the backend and opens a
// session for the selected scope. needDept is false for commands that only
// touch organization-wide records.
func openWorkspace(ctx context.Context, needDept bool) (*workspace, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, printer.Error(
				"configuration not found",
				fmt.Sprintf("No configuration file at %s.", configPath),
				[]string{"Create one or point at it:\n  gottwood --config path/to/gottwood.yml ..."},
			)
		}
		return nil, printer.Error("invalid configuration", err.Error(), nil)
	}

	org, err := selectOrg(cfg)
	if err != nil {
		return nil, err
	}

	dept := deptFlag
	if dept == "" {
		if needDept {
			return nil, printer.Error(
				"department required",
				"This command works on one department.",
				[]string{"Pass one with --dept, e.g.:\n  gottwood --dept lighting task list Stage", "List departments:\n  gottwood depts"},
			)
		}
		dept = orgWideDept
	}

	opts, err := session.OptionsFromConfig(cfg, org, periodFlag, dept)
	if err != nil {
		return nil, printer.Error("invalid scope", err.Error(), nil)
	}
	opts.Notifier = printer.Notifier{}

	cache, err := openPrefs(cfg)
	if err != nil {
		printer.Warning("Local cache unavailable: %v\n", err)
	} else {
		opts.Prefs = cache
	}

	store, err := session.Dial(ctx, cfg)
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, printer.ErrorWithContext(
			"backend unreachable",
			err.Error(),
			map[string]string{"Backend": cfg.Backend},
			[]string{"Check the connection settings in " + configPath},
		)
	}

	sess, err := session.Open(ctx, store, opts)
	if sess == nil {
		store.Close()
		if cache != nil {
			cache.Close()
		}
		return nil, printer.Error("failed to open session", err.Error(), nil)
	}
	if err != nil {
		printer.Warning("Working from cached data: %v\n", err)
	}

	ws := &workspace{cfg: cfg, sess: sess}
	ws.close = func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			printer.Warning("Some changes were not saved: %v\n", err)
		}
		store.Close()
		if cache != nil {
			cache.Close()
		}
	}

	if asName != "" {
		if _, err := sess.Identify(ctx, asName); err != nil {
			ws.close()
			return nil, printer.Error("failed to identify", err.Error(), nil)
		}
	}
	return ws, nil
}

func selectOrg(cfg *config.Config) (string, error) {
	if orgID != "" {
		return orgID, nil
	}
	if len(cfg.Organizations) == 1 {
		return cfg.Organizations[0].ID, nil
	}
	ids := make([]string, 0, len(cfg.Organizations))
	for _, o := range cfg.Organizations {
		ids = append(ids, o.ID)
	}
	return "", printer.ErrorWithContext(
		"organization required",
		"The configuration lists more than one organization.",
		map[string]string{"Organizations": fmt.Sprint(ids)},
		[]string{"Pick one with --org <id>"},
	)
}

func openPrefs(cfg *config.Config) (*prefs.Store, error) {
	path := cfg.PrefsPath
	if path == "" {
		var err error
		if path, err = prefs.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return prefs.Open(path)
}

// requireIdentity fails with guidance when no --as was given and no identity
// is cached for the organization.
func requireIdentity(sess *session.Session) error {
	if sess.Identity() != "" {
		return nil
	}
	return printer.Error(
		"identity required",
		"This change is attributed to a person.",
		[]string{"Say who you are once:\n  gottwood --as \"Your Name\" whoami"},
	)
}
