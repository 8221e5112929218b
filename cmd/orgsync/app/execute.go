package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
)

// Execute runs the orgsync CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(a.stdout)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "orgsync",
		Short:   "Reconcile a GitHub organization with a YAML document",
		Version: a.version,
		Long: `orgsync keeps a GitHub organization in line with a declarative YAML
document. It reads the live state of repositories, teams, members and their
settings, reports the differences, and applies the writes needed to converge.

Every field is reconciled through a versioned mapping table. Fields the table
cannot read or write are reported as gaps, never silently dropped.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is $HOME/.orgsync.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, json, yaml, wide, markdown")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.String("token", "", "GitHub token (default from ORGSYNC_TOKEN, GITHUB_TOKEN or GH_TOKEN)")
	flags.String("api-url", "", "GitHub REST API base URL")
	flags.String("mapping", "", "mapping table file (default is the embedded table)")
	flags.String("defaults", "", "defaults document (default is org.defaults.yaml next to the input)")
	flags.Int("concurrency", constants.DefaultConcurrency, "maximum concurrent remote calls")
	flags.Float64("rate", constants.DefaultRequestsPerSecond, "remote calls per second (0 disables limiting)")
	flags.Int("max-retries", constants.MaxRetries, "attempts per remote call")
	flags.Duration("timeout", constants.OperationTimeout, "timeout per remote call")

	rootCmd.SetVersionTemplate("orgsync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if path := mustGetString(cmd, "config"); path != "" {
		config, err := loadConfigFile(path)
		if err != nil {
			return errors.NewConfigError("config", "failed to read "+path, err)
		}
		a.config = config
	}
	a.config.UpdateFromFlags(cmd.Flags())

	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))

	return nil
}

// ExitOnError prints err and exits with the code it carries, or with the
// failure code when it carries none.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	code := constants.ExitFailure
	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
		err = exitErr.Err
	}
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
	}
	os.Exit(code)
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
