// Package output renders plans, reports and the mapping table for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	md "github.com/nao1215/markdown"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/orgsync/internal/cmd/table"
	"github.com/agentstation/orgsync/pkg/errors"
)

// Format names an output format.
type Format string

// Output formats.
const (
	FormatTable    Format = "table"
	FormatWide     Format = "wide"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Data is the tabular form every table renderer accepts.
type Data = table.Data

// Formatter writes data in one format.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(io.Writer, any) error

// Format implements Formatter.
func (f FormatterFunc) Format(w io.Writer, data any) error {
	return f(w, data)
}

// NewFormatter returns the formatter for format. Unknown formats render
// tables.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return FormatterFunc(writeJSON)
	case FormatYAML:
		return FormatterFunc(writeYAML)
	case FormatMarkdown:
		return FormatterFunc(writeMarkdown)
	default:
		return FormatterFunc(writeTable)
	}
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func writeYAML(w io.Writer, data any) error {
	out, err := yaml.MarshalWithOptions(data, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

var alignments = map[table.Align]tw.Align{
	table.AlignLeft:   tw.AlignLeft,
	table.AlignCenter: tw.AlignCenter,
	table.AlignRight:  tw.AlignRight,
}

func writeTable(w io.Writer, data any) error {
	d, err := asData(data)
	if err != nil {
		return err
	}

	var config tablewriter.Config
	if len(d.ColumnAlignment) > 0 {
		per := make([]tw.Align, len(d.ColumnAlignment))
		for i, a := range d.ColumnAlignment {
			if per[i] = alignments[a]; per[i] == "" {
				per[i] = tw.Skip
			}
		}
		config.Header.Alignment = tw.CellAlignment{PerColumn: per}
		config.Row.Alignment = tw.CellAlignment{PerColumn: per}
	}

	t := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	if len(d.Headers) > 0 {
		t.Header(toAny(d.Headers)...)
	}
	for _, row := range d.Rows {
		if err := t.Append(toAny(row)...); err != nil {
			return err
		}
	}
	return t.Render()
}

// writeMarkdown renders a GitHub-flavored table. Nested values that do not
// fit a table are written as a fenced JSON block.
func writeMarkdown(w io.Writer, data any) error {
	d, ok := data.(Data)
	if !ok {
		body, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		return md.NewMarkdown(w).CodeBlocks(md.SyntaxHighlight("json"), string(body)).Build()
	}
	rows := make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = strings.ReplaceAll(cell, "|", `\|`)
		}
	}
	return md.NewMarkdown(w).
		Table(md.TableSet{Header: d.Headers, Rows: rows}).
		LF().
		Build()
}

// asData turns a value into a property table through its JSON form, so json
// tags decide the property names.
func asData(data any) (Data, error) {
	if d, ok := data.(Data); ok {
		return d, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Data{}, err
	}
	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return Data{}, fmt.Errorf("%T has no tabular form: %w", data, err)
	}
	title := cases.Title(language.English)
	d := Data{Headers: []string{"Property", "Value"}}
	for _, k := range slices.Sorted(maps.Keys(props)) {
		d.Rows = append(d.Rows, []string{
			title.String(strings.ReplaceAll(k, "_", " ")),
			table.FormatValue(props[k], true),
		})
	}
	return d, nil
}

func toAny(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

// DetectFormat returns explicit when set, otherwise table on a terminal and
// JSON when stdout is piped.
func DetectFormat(explicit string) Format {
	if explicit != "" {
		return Format(strings.ToLower(explicit))
	}
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return FormatTable
	}
	return FormatJSON
}

// ParseFormat validates a format name. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(s))
	switch format {
	case FormatTable, FormatJSON, FormatYAML, FormatWide, FormatMarkdown, "":
		return format, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", errors.NewValidationError("format", s, "must be one of: table, wide, json, yaml, markdown")
}
