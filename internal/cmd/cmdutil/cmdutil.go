// Package cmdutil holds helpers shared by the orgsync commands: output
// format resolution, run summaries and exit codes.
package cmdutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync/internal/appcontext"
	"github.com/agentstation/orgsync/internal/cmd/alerts"
	"github.com/agentstation/orgsync/internal/cmd/output"
	"github.com/agentstation/orgsync/internal/cmd/table"
	"github.com/agentstation/orgsync/internal/matcher"
	"github.com/agentstation/orgsync/pkg/apply"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/state"
)

// Format resolves the output format. Without an explicit format a terminal
// gets tables and anything else gets JSON.
func Format(app appcontext.Interface) (output.Format, error) {
	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return "", err
	}
	if format != "" {
		return format, nil
	}
	if f, ok := app.Stdout().(*os.File); ok && f == os.Stdout {
		return output.DetectFormat(""), nil
	}
	return output.FormatTable, nil
}

// Alerts returns where run summaries go. Structured formats keep stdout
// machine-readable, so their summaries are dropped.
func Alerts(app appcontext.Interface, format output.Format) alerts.Writer {
	switch format {
	case output.FormatJSON, output.FormatYAML:
		return alerts.DiscardWriter
	}
	return alerts.NewFormatWriter(app.Stdout(), format)
}

// PlanSummary describes a plan in one alert.
func PlanSummary(plan *differ.Plan) *alerts.Alert {
	s := plan.Summary()
	var alert *alerts.Alert
	switch {
	case s.Failures > 0:
		alert = alerts.NewError(fmt.Sprintf("%d resources could not be read", s.Failures))
	case s.Total() == 0:
		alert = alerts.NewSuccess("No differences")
	default:
		alert = alerts.NewInfo(fmt.Sprintf("%d to create, %d to update", s.Creates, s.Updates))
	}
	return alert.WithDetails(table.GapDetails(plan.Gaps)...)
}

// ReportSummary describes an apply report in one alert.
func ReportSummary(report *apply.Report) *alerts.Alert {
	applied := report.Count(apply.OutcomeApplied)
	skipped := report.Count(apply.OutcomeSkipped)
	failed := len(report.Failed()) + len(report.Failures)

	var alert *alerts.Alert
	switch {
	case failed > 0:
		alert = alerts.NewError(fmt.Sprintf("%d applied, %d failed, %d skipped", applied, failed, skipped))
	case report.DryRun && skipped > 0:
		alert = alerts.NewInfo(fmt.Sprintf("Dry run: %d changes would be applied", skipped))
	case applied+skipped == 0:
		alert = alerts.NewSuccess("Already in sync")
	default:
		alert = alerts.NewSuccess(fmt.Sprintf("%d applied, %d skipped", applied, skipped))
	}
	return alert.WithDetails(table.GapDetails(report.Gaps)...)
}

// Exit returns an error that makes the process exit with code and prints
// nothing further.
func Exit(code int) error {
	return errors.NewExitError(code, nil)
}

// Fail wraps err with the failure exit code.
func Fail(err error) error {
	return errors.NewExitError(constants.ExitFailure, err)
}

// AddKindFlag registers --kind, restricting a command to some resource kinds.
func AddKindFlag(cmd *cobra.Command) *[]string {
	names := make([]string, 0, len(state.Kinds))
	for _, k := range state.Kinds {
		names = append(names, string(k))
	}
	return cmd.Flags().StringSlice("kind", nil, "only reconcile these kinds ("+strings.Join(names, ", ")+")")
}

// ValidateIgnore checks that every --ignore pattern compiles.
func ValidateIgnore(patterns []string) error {
	if _, err := matcher.NewSet(patterns...); err != nil {
		return errors.NewValidationError("ignore", patterns, err.Error())
	}
	return nil
}

// ParseKinds validates kind names given on the command line.
func ParseKinds(values []string) ([]state.Kind, error) {
	kinds := make([]state.Kind, 0, len(values))
	for _, v := range values {
		k, ok := state.ParseKind(v)
		if !ok {
			return nil, errors.NewValidationError("kind", v, "unknown resource kind")
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
