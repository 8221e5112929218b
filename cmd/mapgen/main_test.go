package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/internal/embedded"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/state"
)

const description = `{"paths": {"/repos/{owner}/{repo}": {"patch": {"requestBody": {"content": {"application/json": {"schema": {
  "properties": {"allow_forking": {"type": "boolean"}, "allow_merge_commit": {"type": "boolean"}}
}}}}}}}}`

func write(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, constants.FilePermissions))
	return path
}

func TestMapgenStdout(t *testing.T) {
	input := write(t, t.TempDir(), "api.json", []byte(description))

	var out bytes.Buffer
	cmd := newCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{input, "--stamp", "test-1"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "# Generated by mapgen")
	reg, err := mapping.Load(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "test-1", reg.Version())
	assert.Equal(t, 2, reg.Len())
}

func TestMapgenMergesBase(t *testing.T) {
	dir := t.TempDir()
	input := write(t, dir, "api.json", []byte(description))
	base := write(t, dir, "base.yaml", embedded.MappingTable)
	target := filepath.Join(dir, "mapping.yaml")

	cmd := newCommand()
	cmd.SetArgs([]string{input, "--stamp", "test-2", "--base", base, "-o", target})
	require.NoError(t, cmd.Execute())

	reg, err := mapping.LoadFile(target)
	require.NoError(t, err)
	orig, err := mapping.Default()
	require.NoError(t, err)
	assert.Equal(t, "test-2", reg.Version())
	assert.GreaterOrEqual(t, reg.Len(), orig.Len())

	_, err = reg.Resolve(state.KindRepository, "allow_forking")
	assert.NoError(t, err)
}

func TestMapgenMissingInput(t *testing.T) {
	cmd := newCommand()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.json")})
	assert.Error(t, cmd.Execute())
}
