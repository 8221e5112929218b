package version

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/internal/appcontext"
)

func TestVersion(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, out []byte)
	}{
		{format: "table", check: func(t *testing.T, out []byte) {
			assert.Contains(t, string(out), "orgsync version 1.2.3")
			assert.Contains(t, string(out), "commit: abc123")
		}},
		{format: "json", check: func(t *testing.T, out []byte) {
			var info Info
			require.NoError(t, json.Unmarshal(out, &info))
			assert.Equal(t, "1.2.3", info.Version)
			assert.Equal(t, "abc123", info.Commit)
			assert.NotEmpty(t, info.GoVersion)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			app := &appcontext.Mock{
				Format:      tt.format,
				Out:         &out,
				VersionFunc: func() string { return "1.2.3" },
				CommitFunc:  func() string { return "abc123" },
			}
			cmd := NewCommand(app)
			cmd.SetArgs(nil)
			require.NoError(t, cmd.Execute())
			tt.check(t, out.Bytes())
		})
	}
}
