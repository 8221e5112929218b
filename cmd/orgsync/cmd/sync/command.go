// Package sync provides the sync command.
package sync

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync"
	"github.com/agentstation/orgsync/internal/appcontext"
	"github.com/agentstation/orgsync/internal/cmd/cmdutil"
	"github.com/agentstation/orgsync/internal/cmd/output"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/differ"
)

// Flags holds the sync command flags.
type Flags struct {
	DryRun bool
	Kinds  *[]string
	Ignore *[]string
}

// NewCommand creates the sync command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var flags Flags
	cmd := &cobra.Command{
		Use:     "sync <path>",
		GroupID: "core",
		Short:   "Apply a document to the organization",
		Long: `Sync plans like diff and then issues the writes needed to bring the
organization in line with the document. Resources are created before the
teams, members and assignments that depend on them; a resource whose
creation fails does not stop independent ones.

With --dry-run nothing is written and every planned change is reported as
skipped.

Exit status is 0 when everything was applied, 1 for a dry run with planned
changes, and 2 when any change failed or the document is invalid.`,
		Example: `  orgsync sync org.config.yaml --dry-run
  orgsync sync org.config.yaml
  orgsync sync org.config.yaml --kind assignment`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), app, args[0], &flags)
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "plan and report without writing")
	flags.Kinds = cmdutil.AddKindFlag(cmd)
	flags.Ignore = cmd.Flags().StringSlice("ignore", nil, "field keys to leave alone")

	return cmd
}

func run(ctx context.Context, app appcontext.Interface, path string, flags *Flags) error {
	format, err := cmdutil.Format(app)
	if err != nil {
		return err
	}

	var opts []differ.Option
	if len(*flags.Kinds) > 0 {
		kinds, err := cmdutil.ParseKinds(*flags.Kinds)
		if err != nil {
			return err
		}
		opts = append(opts, differ.WithKinds(kinds...))
	}
	if len(*flags.Ignore) > 0 {
		if err := cmdutil.ValidateIgnore(*flags.Ignore); err != nil {
			return err
		}
		opts = append(opts, differ.WithIgnoredFields(*flags.Ignore...))
	}
	client, err := app.ClientWithOptions(orgsync.WithDiffOptions(opts...))
	if err != nil {
		return err
	}

	result, err := client.Sync(ctx, path, flags.DryRun)
	if result == nil || result.Report == nil {
		return err
	}

	if ferr := output.FormatReport(app.Stdout(), result.Report, format); ferr != nil {
		return ferr
	}
	if aerr := cmdutil.Alerts(app, format).WriteAlert(cmdutil.ReportSummary(result.Report)); aerr != nil {
		return aerr
	}
	if err != nil {
		return cmdutil.Fail(err)
	}

	switch {
	case !result.Success():
		return cmdutil.Exit(constants.ExitFailure)
	case flags.DryRun && result.Plan.HasChanges():
		return cmdutil.Exit(constants.ExitChanges)
	}
	return nil
}
