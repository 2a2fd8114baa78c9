package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mixkit/mixin/config"
)

func TestLayoutCommand(t *testing.T) {
	out, err := runCLI(t, "layout", "24", "--align", "8", "--align", "64", "--base", "0x1003")
	require.NoError(t, err)
	assert.Contains(t, out, "Mixin size 24")
	assert.Contains(t, out, "ALIGN")

	out, err = runCLI(t, "layout", "4", "--align", "4", "--json")
	require.NoError(t, err)
	var rows []layoutRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, uintptr(4+3+8), rows[0].BufferSize)
	assert.Equal(t, uintptr(8), rows[0].Offset)

	_, err = runCLI(t, "layout", "8", "--align", "3")
	require.Error(t, err)
	_, err = runCLI(t, "layout", "big")
	require.Error(t, err)
}

func TestLayoutCommand_AllAlignments(t *testing.T) {
	out, err := runCLI(t, "layout", "1", "--json")
	require.NoError(t, err)
	var rows []layoutRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 13, "1 through 4096")
}

func TestInspectCommand(t *testing.T) {
	out, err := runCLI(t, "inspect", "builtin:exe", "builtin:dynlib_a", "builtin:plugin_b")
	require.NoError(t, err)
	for _, want := range []string{"exe_mixin", "dynlib_a_mixin1", "declares dynlib_a_mixin1", "plugin_b_mixin", "dl_a_multicast"} {
		assert.Contains(t, out, want)
	}

	out, err = runCLI(t, "inspect", "builtin:exe", "--json")
	require.NoError(t, err)
	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Mixins, 1)
	assert.Equal(t, "exe_mixin", report.Mixins[0].Name)
	assert.Equal(t, []string{"dl_a_multicast"}, report.Mixins[0].Messages)

	_, err = runCLI(t, "inspect")
	require.Error(t, err, "nothing to load")
}

func TestInspectCommand_ConfiguredPlugins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixkit.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
identity = "type"
plugins = ["builtin:exe", "builtin:dynlib_a"]

[log]
level = "error"
`), 0o600))

	out, err := runCLI(t, "inspect", "-c", path, "--json")
	require.NoError(t, err)
	assert.Equal(t, config.IdentityType, cfg.Identity)
	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Modules, 2)
	assert.Len(t, report.Mixins, 3)
}

func TestDemoCommand(t *testing.T) {
	out, err := runCLI(t, "demo", "--json")
	require.NoError(t, err)
	var steps []struct {
		Action string `json:"action"`
		Sum    int    `json:"sum"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &steps))
	require.Len(t, steps, 9)
	assert.Equal(t, 125, steps[3].Sum)
	assert.Equal(t, 1025, steps[7].Sum)

	out, err = runCLI(t, "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "load plugin_a")
	assert.Contains(t, out, "-126")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mixctl dev")
}
