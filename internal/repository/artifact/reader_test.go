package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ext-packager/internal/domain/descriptor"
)

// TestRead_Valid extracts the descriptor from a well-formed bundle.
func TestRead_Valid(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "filters.jar")
	want := &descriptor.Descriptor{
		Name:             "Filters",
		Version:          "1.0.2",
		TargetAppName:    "ImageViewer",
		TargetAppVersion: "2.1",
	}
	require.NoError(t, WriteExtension(p, want, "bytes"))

	got, err := Read(p)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.True(t, Exists(p))
}

// TestRead_NotAnExtension covers plain files and bundles without a descriptor.
func TestRead_NotAnExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.jar")
	require.NoError(t, os.WriteFile(plain, []byte("definitely not a zip"), 0o600))

	_, err := Read(plain)
	require.ErrorIs(t, err, ErrNotAnExtension)

	empty := filepath.Join(dir, "empty.jar")
	require.NoError(t, WriteBundle(empty, map[string][]byte{"META-INF/MANIFEST.MF": []byte("x")}))

	_, err = Read(empty)
	require.ErrorIs(t, err, ErrNotAnExtension)
}

// TestRead_Malformed reports a present but invalid descriptor.
func TestRead_Malformed(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "broken.jar")
	require.NoError(t, WriteBundle(p, map[string][]byte{
		descriptor.Filename: []byte(`{"name": "x", "version": "one"}`),
	}))

	_, err := Read(p)
	require.ErrorIs(t, err, descriptor.ErrMalformedDescriptor)
	require.NotErrorIs(t, err, ErrNotAnExtension)
}

// TestRead_MissingFile returns a plain I/O error.
func TestRead_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Read(filepath.Join(t.TempDir(), "missing.jar"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}
