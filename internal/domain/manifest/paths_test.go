package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBasename strips only the last extension.
func TestBasename(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"a/b/c.tar.gz": "a/b/c.tar",
		"filters.jar":  "filters",
		"noext":        "noext",
		"dir.d/noext":  "dir.d/noext",
		"":             "",
	}

	for in, want := range cases {
		require.Equal(t, want, Basename(in), in)
	}

	require.Equal(t, "filters-1.0.sig", SignatureName("filters-1.0.jar"))
}

// TestIsScreenshotFor covers the naming rules for screenshots.
func TestIsScreenshotFor(t *testing.T) {
	t.Parallel()

	const jar = "myExtension.jar"

	require.True(t, IsScreenshotFor(jar, "myExtension_1.jpg"))
	require.True(t, IsScreenshotFor(jar, "myExtension_superAwesomeScreenshot.PNG"))
	require.True(t, IsScreenshotFor(jar, "myExtension_x.jpeg"))
	require.True(t, IsScreenshotFor(jar, "myExtension_x.gif"))
	require.False(t, IsScreenshotFor(jar, "myExtension.jpg"))
	require.False(t, IsScreenshotFor(jar, "MyExtension_1.jpg"))
	require.False(t, IsScreenshotFor(jar, "myExt1.jpg"))
	require.False(t, IsScreenshotFor(jar, "myExtension_1.tiff"))
}

// TestResolvePath places bare names in the version directory and never escapes root.
func TestResolvePath(t *testing.T) {
	t.Parallel()

	root := filepath.Join("srv", "dist")
	ev := &ExtensionVersion{ExtInfo: newDescriptor("Filters", "1.0", "2.1")}

	require.Equal(t,
		filepath.Join(root, "extensions", "2.1", "filters.jar"),
		ResolvePath(root, ev, "extensions/2.1/filters.jar"))
	require.Equal(t,
		filepath.Join(root, "extensions", "2.1", "filters.sig"),
		ResolvePath(root, ev, "filters.sig"))
	require.Equal(t,
		filepath.Join(root, "version_manifest.json"),
		ResolvePath(root, nil, "version_manifest.json"))
	require.Equal(t,
		filepath.Join(root, "etc", "passwd"),
		ResolvePath(root, nil, "../../etc/passwd"))
	require.Empty(t, ResolvePath(root, ev, ""))
}
