package table

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/pkg/apply"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/state"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		v    any
		wide bool
		want string
	}{
		{name: "nil", v: nil, want: "-"},
		{name: "bool", v: false, want: "false"},
		{name: "list", v: []any{"alice", "bob"}, want: "alice, bob"},
		{name: "map", v: map[string]any{"b": 1, "a": true}, want: `{"a":true,"b":1}`},
		{name: "truncated", v: strings.Repeat("x", 50), want: strings.Repeat("x", 37) + "..."},
		{name: "wide keeps length", v: strings.Repeat("x", 50), wide: true, want: strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.v, tt.wide))
		})
	}
}

func TestPlanToTableData(t *testing.T) {
	plan := &differ.Plan{Entries: []differ.Entry{
		{Kind: state.KindRepository, ID: "web", Action: differ.ActionCreate},
		{Kind: state.KindRepository, ID: "api", Key: "has_wiki", Desired: false, Remote: true, Action: differ.ActionUpdate},
	}}

	data := PlanToTableData(plan, false)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"+", "repository", "web", "-", "-", "-"}, data.Rows[0])
	assert.Equal(t, []string{"~", "repository", "api", "has_wiki", "false", "true"}, data.Rows[1])
	assert.Len(t, data.ColumnAlignment, len(data.Headers))
}

func TestReportToTableData(t *testing.T) {
	report := &apply.Report{
		Failures: []differ.Failure{{Kind: state.KindTeam, ID: "core", Reason: "forbidden"}},
		Results: []apply.Result{
			{Entry: differ.Entry{Kind: state.KindRepository, ID: "api", Key: "has_wiki", Action: differ.ActionUpdate}, Outcome: apply.OutcomeApplied},
			{Entry: differ.Entry{Kind: state.KindRepository, ID: "web", Key: "has_wiki", Action: differ.ActionUpdate}, Outcome: apply.OutcomeFailed, Reason: "boom", Err: errors.New("boom")},
		},
	}

	data := ReportToTableData(report, true)
	require.Len(t, data.Rows, 3)
	assert.Equal(t, "Reason", data.Headers[len(data.Headers)-1])
	assert.Equal(t, []string{"✗", "team", "core", "-", "fetch", "failed", "forbidden"}, data.Rows[0])
	assert.Equal(t, "✓", data.Rows[1][0])
	assert.Equal(t, "boom", data.Rows[2][6])

	assert.Len(t, ReportToTableData(report, false).Headers, 6)
}

func TestMappingToTableData(t *testing.T) {
	reg, err := mapping.Default()
	require.NoError(t, err)

	data := MappingToTableData(reg, true)
	assert.Len(t, data.Rows, reg.Len())
	for _, row := range data.Rows {
		assert.Len(t, row, 6)
		assert.True(t, strings.HasPrefix(row[4], "GET /"))
	}
}

func TestCountsToTableData(t *testing.T) {
	data := CountsToTableData(map[state.Kind]int{state.KindTeam: 2, state.KindRepository: 3})
	assert.Equal(t, [][]string{{"repository", "3"}, {"team", "2"}}, data.Rows)
}

func TestGapDetails(t *testing.T) {
	got := GapDetails([]differ.Gap{{Kind: state.KindRepository, ID: "api", Key: "x", Reason: differ.GapUnmapped}})
	assert.Equal(t, []string{"repository api x (unmapped)"}, got)
}
