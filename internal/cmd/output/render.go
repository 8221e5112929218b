package output

import (
	"io"

	"github.com/agentstation/orgsync/internal/cmd/table"
	"github.com/agentstation/orgsync/pkg/apply"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/mapping"
)

// isTable reports whether format renders tables.
func isTable(format Format) bool {
	switch format {
	case FormatTable, FormatWide, FormatMarkdown, "":
		return true
	}
	return false
}

// wide reports whether tables carry every column.
func wide(format Format) bool {
	return format == FormatWide || format == FormatMarkdown
}

// FormatPlan writes a plan. Tables list the entries; structured formats
// carry the whole plan including gaps and failures.
func FormatPlan(w io.Writer, plan *differ.Plan, format Format) error {
	formatter := NewFormatter(format)
	if !isTable(format) {
		return formatter.Format(w, plan)
	}
	if len(plan.Entries) > 0 {
		if err := formatter.Format(w, table.PlanToTableData(plan, wide(format))); err != nil {
			return err
		}
	}
	if len(plan.Failures) > 0 {
		return formatter.Format(w, table.FailuresToTableData(plan.Failures))
	}
	return nil
}

// FormatReport writes an apply report.
func FormatReport(w io.Writer, report *apply.Report, format Format) error {
	formatter := NewFormatter(format)
	if !isTable(format) {
		return formatter.Format(w, report)
	}
	if len(report.Results) == 0 && len(report.Failures) == 0 {
		return nil
	}
	return formatter.Format(w, table.ReportToTableData(report, wide(format)))
}

// FormatMapping writes the mapping table.
func FormatMapping(w io.Writer, reg *mapping.Registry, format Format) error {
	formatter := NewFormatter(format)
	if !isTable(format) {
		return formatter.Format(w, reg.All())
	}
	return formatter.Format(w, table.MappingToTableData(reg, wide(format)))
}

// FormatAny writes data in format. Tables show an object's properties.
func FormatAny(w io.Writer, data any, format Format) error {
	return NewFormatter(format).Format(w, data)
}
