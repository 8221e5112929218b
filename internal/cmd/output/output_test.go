package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/pkg/apply"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/state"
)

func samplePlan() *differ.Plan {
	return &differ.Plan{
		Entries: []differ.Entry{
			{Kind: state.KindRepository, ID: "harmony", Key: "allow_merge_commit", Desired: false, Remote: true, Action: differ.ActionUpdate},
		},
		Gaps: []differ.Gap{{Kind: state.KindRepository, ID: "harmony", Key: "frobnicate", Reason: differ.GapUnmapped}},
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"table", "JSON", "yaml", "wide", ""} {
		_, err := ParseFormat(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestFormatPlanTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatPlan(&buf, samplePlan(), FormatTable))
	out := buf.String()
	assert.Contains(t, out, "harmony")
	assert.Contains(t, out, "allow_merge_commit")
	assert.Contains(t, out, "~")
}

func TestFormatPlanEmptyTableWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatPlan(&buf, &differ.Plan{}, FormatTable))
	assert.Empty(t, buf.String())
}

func TestFormatPlanJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatPlan(&buf, samplePlan(), FormatJSON))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	entries, ok := got["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "update-field", entries[0].(map[string]any)["action"])
	assert.Len(t, got["gaps"], 1)
}

func TestFormatReportYAML(t *testing.T) {
	report := &apply.Report{
		DryRun: true,
		Results: []apply.Result{
			{Entry: samplePlan().Entries[0], Outcome: apply.OutcomeSkipped},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, FormatReport(&buf, report, FormatYAML))
	assert.Contains(t, buf.String(), "dry_run: true")
	assert.Contains(t, buf.String(), "outcome: skipped-dry-run")
}

func TestTableRendersStructsAsProperties(t *testing.T) {
	type info struct {
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
	}
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, info{Version: "1.2.3", GoVersion: "go1.24"}))
	assert.Contains(t, buf.String(), "Go Version")
	assert.Contains(t, buf.String(), "1.2.3")
}

func TestTableRejectsNonObjects(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, NewFormatter(FormatTable).Format(&buf, []string{"a"}))
}

func TestFormatPlanMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatPlan(&buf, samplePlan(), FormatMarkdown))
	out := buf.String()
	assert.Contains(t, out, "harmony")
	assert.Contains(t, out, "allow_merge_commit")
	assert.Contains(t, out, "|")
	assert.Contains(t, out, "---")
}

func TestMarkdownFallsBackToCodeBlock(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatAny(&buf, map[string]int{"repos": 2}, FormatMarkdown))
	assert.Contains(t, buf.String(), "```json")
	assert.Contains(t, buf.String(), `"repos": 2`)
}

func TestParseFormatMarkdownAlias(t *testing.T) {
	got, err := ParseFormat("md")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, got)
}
