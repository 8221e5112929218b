// Package syncfromorg provides the sync-from-org command.
package syncfromorg

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync/internal/appcontext"
	"github.com/agentstation/orgsync/internal/cmd/alerts"
	"github.com/agentstation/orgsync/internal/cmd/cmdutil"
	"github.com/agentstation/orgsync/internal/cmd/output"
	"github.com/agentstation/orgsync/internal/cmd/table"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/save"
)

// Flags holds the sync-from-org command flags.
type Flags struct {
	Org    string
	DryRun bool
}

// NewCommand creates the sync-from-org command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var flags Flags
	cmd := &cobra.Command{
		Use:     "sync-from-org [path]",
		GroupID: "core",
		Short:   "Write a document from the live organization",
		Long: `Sync-from-org reads every repository, team, member and assignment of
the organization and writes the desired-state document that describes it,
so that a following diff reports no differences.

Only fields the mapping table can read are written; the rest are reported.
The document goes to path (default ` + constants.GeneratedFileName + `), or to
stdout with --dry-run.`,
		Example: `  orgsync sync-from-org --org acme
  orgsync sync-from-org acme.yaml --org acme
  orgsync sync-from-org --org acme --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := constants.GeneratedFileName
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd.Context(), app, path, &flags)
		},
	}

	cmd.Flags().StringVar(&flags.Org, "org", "", "organization to read (required)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "print the document instead of writing it")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}

func run(ctx context.Context, app appcontext.Interface, path string, flags *Flags) error {
	format, err := cmdutil.Format(app)
	if err != nil {
		return err
	}
	client, err := app.Client()
	if err != nil {
		return err
	}

	dest := save.WithPath(path)
	if flags.DryRun {
		dest = save.WithWriter(app.Stdout())
	}
	result, err := client.SyncFromOrg(ctx, flags.Org, dest)
	if err != nil {
		return err
	}
	if flags.DryRun {
		return nil
	}

	if format == output.FormatJSON || format == output.FormatYAML {
		return output.FormatAny(app.Stdout(), result, format)
	}
	if err := output.FormatAny(app.Stdout(), table.CountsToTableData(result.Counts), format); err != nil {
		return err
	}

	alert := alerts.NewSuccess(fmt.Sprintf("Wrote %s", result.Path))
	for _, g := range result.Gaps {
		alert.WithDetails(fmt.Sprintf("%s %s %s (not readable)", g.Kind, g.ID, g.Key))
	}
	return cmdutil.Alerts(app, format).WriteAlert(alert)
}
