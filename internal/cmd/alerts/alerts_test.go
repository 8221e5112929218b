package alerts

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/internal/cmd/output"
)

func TestAlertString(t *testing.T) {
	a := NewError("sync failed").WithError(errors.New("boom"))
	assert.Equal(t, "✗ sync failed: boom", a.String())
	assert.Equal(t, "✓ done", NewSuccess("done").String())
}

func TestFormatWriter(t *testing.T) {
	tests := []struct {
		name   string
		format output.Format
		check  func(t *testing.T, out string)
	}{
		{
			name:   "table",
			format: output.FormatTable,
			check: func(t *testing.T, out string) {
				assert.Equal(t, "! 2 fields not reconciled\n   repository api frobnicate\n   team core x\n", out)
			},
		},
		{
			name:   "json",
			format: output.FormatJSON,
			check: func(t *testing.T, out string) {
				var got map[string]any
				require.NoError(t, json.Unmarshal([]byte(out), &got))
				assert.Equal(t, "warning", got["level"])
				assert.Len(t, got["details"], 2)
			},
		},
		{
			name:   "markdown",
			format: output.FormatMarkdown,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "> [!WARNING]")
				assert.Contains(t, out, "> 2 fields not reconciled")
				assert.Contains(t, out, "> - team core x")
			},
		},
		{
			name:   "yaml",
			format: output.FormatYAML,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "level: warning")
				assert.Contains(t, out, "- repository api frobnicate")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewFormatWriter(&buf, tt.format)
			alert := NewWarning("2 fields not reconciled").WithDetails("repository api frobnicate", "team core x")
			require.NoError(t, w.WriteAlert(alert))
			tt.check(t, buf.String())
		})
	}
}
