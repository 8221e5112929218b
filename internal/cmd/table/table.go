// Package table converts plans, reports and the mapping table into rows
// for CLI output.
package table

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/agentstation/orgsync/internal/cmd/emoji"
	"github.com/agentstation/orgsync/pkg/apply"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/state"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// maxCell bounds value columns outside wide output.
const maxCell = 40

// PlanToTableData converts a plan's changes to table format. Noops are
// listed only when the plan carries them.
func PlanToTableData(plan *differ.Plan, wide bool) Data {
	headers := []string{"", "Kind", "ID", "Field", "Desired", "Remote"}
	rows := make([][]string, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		rows = append(rows, []string{
			ActionSymbol(e.Action),
			string(e.Kind),
			e.ID,
			orDash(e.Key),
			FormatValue(e.Desired, wide),
			FormatValue(e.Remote, wide),
		})
	}
	return Data{
		Headers:         headers,
		Rows:            rows,
		ColumnAlignment: []Align{AlignCenter, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft},
	}
}

// ReportToTableData converts apply results to table format.
func ReportToTableData(report *apply.Report, wide bool) Data {
	headers := []string{"", "Kind", "ID", "Field", "Action", "Outcome"}
	if wide {
		headers = append(headers, "Reason")
	}
	rows := make([][]string, 0, len(report.Results)+len(report.Failures))
	for _, f := range report.Failures {
		row := []string{emoji.Error, string(f.Kind), f.ID, "-", "fetch", string(apply.OutcomeFailed)}
		if wide {
			row = append(row, f.Reason)
		}
		rows = append(rows, row)
	}
	for _, r := range report.Results {
		row := []string{
			OutcomeSymbol(r.Outcome),
			string(r.Entry.Kind),
			r.Entry.ID,
			orDash(r.Entry.Key),
			string(r.Entry.Action),
			string(r.Outcome),
		}
		if wide {
			row = append(row, orDash(r.Reason))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows}
}

// FailuresToTableData lists resources whose remote state could not be read.
func FailuresToTableData(failures []differ.Failure) Data {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{string(f.Kind), f.ID, f.Reason})
	}
	return Data{Headers: []string{"Kind", "ID", "Reason"}, Rows: rows}
}

// GapDetails renders coverage gaps as one line each, for alert details.
func GapDetails(gaps []differ.Gap) []string {
	out := make([]string, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, fmt.Sprintf("%s %s %s (%s)", g.Kind, g.ID, g.Key, g.Reason))
	}
	return out
}

// MappingToTableData lists the mapping table.
func MappingToTableData(reg *mapping.Registry, wide bool) Data {
	headers := []string{"Kind", "Key", "Capability", "Compare"}
	if wide {
		headers = append(headers, "Read", "Write")
	}
	var rows [][]string
	for _, e := range reg.All() {
		row := []string{string(e.Kind), e.Key, string(e.Capability), string(e.Comparison())}
		if wide {
			write := "-"
			switch {
			case e.Write == nil:
			case e.Write.Add != nil && e.Write.Remove != nil:
				write = e.Write.Add.Verb + "/" + e.Write.Remove.Verb + " " + e.Write.Add.Locator
			default:
				write = e.Write.Verb + " " + e.Write.Locator
			}
			row = append(row, "GET "+e.Read.Locator, write)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows}
}

// CountsToTableData lists instance counts per kind in class order.
func CountsToTableData(counts map[state.Kind]int) Data {
	var rows [][]string
	for _, k := range state.Kinds {
		if n, ok := counts[k]; ok {
			rows = append(rows, []string{string(k), fmt.Sprint(n)})
		}
	}
	return Data{
		Headers:         []string{"Kind", "Count"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// ActionSymbol returns the marker for a plan action.
func ActionSymbol(a differ.Action) string {
	switch a {
	case differ.ActionCreate:
		return emoji.Create
	case differ.ActionUpdate:
		return emoji.Update
	case differ.ActionNoop:
		return emoji.Success
	default:
		return emoji.Unknown
	}
}

// OutcomeSymbol returns the marker for an apply outcome.
func OutcomeSymbol(o apply.Outcome) string {
	switch o {
	case apply.OutcomeApplied:
		return emoji.Success
	case apply.OutcomeSkipped:
		return emoji.Skipped
	case apply.OutcomeFailed:
		return emoji.Error
	default:
		return emoji.Unknown
	}
}

// FormatValue renders a field value in one cell.
func FormatValue(v any, wide bool) string {
	var s string
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		s = val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatValue(item, true))
		}
		s = strings.Join(parts, ", ")
	case []string:
		s = strings.Join(slices.Clone(val), ", ")
	case map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprint(val)
		} else {
			s = string(data)
		}
	default:
		s = fmt.Sprint(val)
	}
	if !wide && len([]rune(s)) > maxCell {
		return string([]rune(s)[:maxCell-3]) + "..."
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
