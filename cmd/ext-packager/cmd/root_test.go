package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	require.NoError(t, rootCmd.Execute(), out.String())

	return out.String()
}

// TestCommands drives a project through the CLI. Commands share package-level flags, so the
// test does not run in parallel.
func TestCommands(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.yaml")
	mirror := filepath.Join(dir, "mirror")

	out := execute(t, "--config", settings, "--log-level", "error",
		"project", "new", filepath.Join(dir, "project"), "Gallery", "Viewer")
	require.Contains(t, out, "Created project Gallery")

	execute(t, "--config", settings, "appversion", "add", "2.0")
	execute(t, "--config", settings, "keys", "generate")
	execute(t, "--config", settings, "target", "add", "local", "file://"+filepath.ToSlash(mirror))

	out = execute(t, "--config", settings, "target", "list")
	require.Contains(t, out, "local")

	out = execute(t, "--config", settings, "publish", "--target", "local", "--publish-key")
	require.Contains(t, out, "Published")
	require.FileExists(t, filepath.Join(mirror, "version_manifest.json"))
	require.FileExists(t, filepath.Join(mirror, "public.key"))

	out = execute(t, "--config", settings, "project", "info")
	require.Contains(t, out, "2.0")
}
