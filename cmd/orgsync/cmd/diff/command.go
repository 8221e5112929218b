// Package diff provides the diff command.
package diff

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

// Flags holds the diff command flags.
type Flags struct {
	Kinds     *[]string
	Ignore    *[]string
	ShowNoops *bool
}

// NewCommand creates the diff command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var flags Flags
	cmd := &cobra.Command{
		Use:     "diff <path>",
		GroupID: "core",
		Short:   "Show how the organization differs from a document",
		Long: `Diff reads the desired-state document at path, merges the defaults
document, reads the live organization and lists every change a sync would
make. Nothing is written.

Exit status is 0 when there are no differences, 1 when there are, and 2
when the document is invalid or a resource could not be read.`,
		Example: `  orgsync diff org.config.yaml
  orgsync diff org.config.yaml --kind repository,team
  orgsync diff org.config.yaml -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), app, args[0], &flags)
		},
	}

	flags.Kinds = cmdutil.AddKindFlag(cmd)
	flags.Ignore = cmd.Flags().StringSlice("ignore", nil, "field keys to leave out of the comparison")
	flags.ShowNoops = cmd.Flags().Bool("show-noops", false, "also list fields that already match")

	return cmd
}

func run(ctx context.Context, app appcontext.Interface, path string, flags *Flags) error {
	format, err := cmdutil.Format(app)
	if err != nil {
		return err
	}

	opts, err := diffOptions(flags)
	if err != nil {
		return err
	}
	client, err := app.ClientWithOptions(orgsync.WithDiffOptions(opts...))
	if err != nil {
		return err
	}

	plan, err := client.Diff(ctx, path)
	if err != nil {
		return err
	}

	if err := output.FormatPlan(app.Stdout(), plan, format); err != nil {
		return err
	}
	if err := cmdutil.Alerts(app, format).WriteAlert(cmdutil.PlanSummary(plan)); err != nil {
		return err
	}

	switch {
	case len(plan.Failures) > 0:
		return cmdutil.Exit(constants.ExitFailure)
	case plan.HasChanges():
		return cmdutil.Exit(constants.ExitChanges)
	}
	return nil
}

func diffOptions(flags *Flags) ([]differ.Option, error) {
	var opts []differ.Option
	if flags.Kinds != nil && len(*flags.Kinds) > 0 {
		kinds, err := cmdutil.ParseKinds(*flags.Kinds)
		if err != nil {
			return nil, err
		}
		opts = append(opts, differ.WithKinds(kinds...))
	}
	if flags.Ignore != nil && len(*flags.Ignore) > 0 {
		if err := cmdutil.ValidateIgnore(*flags.Ignore); err != nil {
			return nil, err
		}
		opts = append(opts, differ.WithIgnoredFields(*flags.Ignore...))
	}
	if flags.ShowNoops != nil {
		opts = append(opts, differ.WithNoops(*flags.ShowNoops))
	}
	return opts, nil
}
