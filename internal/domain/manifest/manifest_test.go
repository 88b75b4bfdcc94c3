package manifest

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ext-packager/internal/domain/descriptor"
)

func newDescriptor(name, version, appVersion string) *descriptor.Descriptor {
	return &descriptor.Descriptor{
		Name:             name,
		Version:          version,
		TargetAppName:    "ImageViewer",
		TargetAppVersion: appVersion,
	}
}

// TestFindOrCreate_ReturnsSameIdentity verifies that repeated lookups never duplicate entries.
func TestFindOrCreate_ReturnsSameIdentity(t *testing.T) {
	t.Parallel()

	m := New("ImageViewer")

	av1, created := m.FindOrCreateApplicationVersion("2.0")
	require.True(t, created)

	av2, created := m.FindOrCreateApplicationVersion("2.0")
	require.False(t, created)
	require.Same(t, av1, av2)
	require.Len(t, m.ApplicationVersions, 1)

	ext1, created := av1.FindOrCreateExtension("Filters")
	require.True(t, created)

	ext2, created := av1.FindOrCreateExtension("Filters")
	require.False(t, created)
	require.Same(t, ext1, ext2)

	d := newDescriptor("Filters", "1.0.0", "2.0")

	ev1, created := ext1.FindOrCreateVersion(d, "2.0", "filters-1.0.0.jar")
	require.True(t, created)
	require.Equal(t, "extensions/2.0/filters-1.0.0.jar", ev1.DownloadPath)

	ev2, created := ext1.FindOrCreateVersion(newDescriptor("Filters", "1.0.0", "2.0"), "2.0", "other.jar")
	require.False(t, created)
	require.Same(t, ev1, ev2)
	require.Equal(t, "extensions/2.0/filters-1.0.0.jar", ev2.DownloadPath)
}

// TestInsertionOrderAndSorting keeps insertion order in the model and sorts only for display.
func TestInsertionOrderAndSorting(t *testing.T) {
	t.Parallel()

	m := New("ImageViewer")
	for _, v := range []string{"1.10", "1.2", "2.0", "1.9"} {
		m.FindOrCreateApplicationVersion(v)
	}

	var inserted, sorted []string
	for _, av := range m.ApplicationVersions {
		inserted = append(inserted, av.Version)
	}

	for _, av := range m.SortedApplicationVersions() {
		sorted = append(sorted, av.Version)
	}

	require.Equal(t, []string{"1.10", "1.2", "2.0", "1.9"}, inserted)
	require.Equal(t, []string{"1.2", "1.9", "1.10", "2.0"}, sorted)
}

// TestAddApplicationVersion rejects duplicates and blank keys.
func TestAddApplicationVersion(t *testing.T) {
	t.Parallel()

	m := New("ImageViewer")

	_, err := m.AddApplicationVersion("1.0")
	require.NoError(t, err)

	_, err = m.AddApplicationVersion("1.0")
	require.ErrorIs(t, err, ErrDuplicateVersion)

	_, err = m.AddApplicationVersion("  ")
	require.ErrorIs(t, err, ErrBlankVersion)
}

// TestRenameApplicationVersion rewrites stored paths and refuses collisions.
func TestRenameApplicationVersion(t *testing.T) {
	t.Parallel()

	m := New("ImageViewer")
	av, _ := m.FindOrCreateApplicationVersion("1.0")
	m.FindOrCreateApplicationVersion("2.0")

	ext, _ := av.FindOrCreateExtension("Filters")
	ev, _ := ext.FindOrCreateVersion(newDescriptor("Filters", "1.0", "1.0"), "1.0", "filters.jar")
	ev.SignaturePath = "extensions/1.0/filters.sig"
	ev.Screenshots = []string{"extensions/1.0/filters_1.png"}

	_, err := m.RenameApplicationVersion("1.0", "2.0")
	require.ErrorIs(t, err, ErrDuplicateVersion)

	_, err = m.RenameApplicationVersion("9.9", "3.0")
	require.ErrorIs(t, err, ErrVersionNotFound)

	renamed, err := m.RenameApplicationVersion("1.0", "1.1")
	require.NoError(t, err)
	require.Same(t, av, renamed)
	require.Equal(t, "1.1", av.Version)
	require.Equal(t, "extensions/1.1/filters.jar", ev.DownloadPath)
	require.Equal(t, "extensions/1.1/filters.sig", ev.SignaturePath)
	require.Equal(t, []string{"extensions/1.1/filters_1.png"}, ev.Screenshots)
}

// TestRemoveAndLocate detaches nodes and finds parents.
func TestRemoveAndLocate(t *testing.T) {
	t.Parallel()

	m := New("ImageViewer")
	av, _ := m.FindOrCreateApplicationVersion("1.0")
	ext, _ := av.FindOrCreateExtension("Filters")
	ev, _ := ext.FindOrCreateVersion(newDescriptor("Filters", "1.0", "1.0"), "1.0", "filters.jar")

	gotAV, gotExt, ok := m.Locate(ev)
	require.True(t, ok)
	require.Same(t, av, gotAV)
	require.Same(t, ext, gotExt)

	owner, ok := m.LocateExtension(ext)
	require.True(t, ok)
	require.Same(t, av, owner)

	require.True(t, ext.RemoveVersion(ev))
	require.False(t, ext.RemoveVersion(ev))

	_, _, ok = m.Locate(ev)
	require.False(t, ok)

	require.True(t, av.RemoveExtension(ext))
	require.True(t, m.RemoveApplicationVersion(av))
	require.Empty(t, m.ApplicationVersions)
}

// TestJSONRoundTrip serializes N x M x K entries and expects identical values back.
func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	const (
		appVersions = 3
		extensions  = 4
		versions    = 5
	)

	generated := time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)

	m := New("ImageViewer")
	m.ManifestGenerated = &generated
	m.Generator = "ext-packager/test"

	for i := 0; i < appVersions; i++ {
		appVersion := fmt.Sprintf("%d.0", i+1)
		av, _ := m.FindOrCreateApplicationVersion(appVersion)

		for j := 0; j < extensions; j++ {
			name := fmt.Sprintf("ext-%d", j)
			ext, _ := av.FindOrCreateExtension(name)

			for k := 0; k < versions; k++ {
				d := newDescriptor(name, fmt.Sprintf("1.%d.0", k), appVersion)
				d.Author = "author"
				d.ReleaseNotes = "notes"

				ev, _ := ext.FindOrCreateVersion(d, appVersion, fmt.Sprintf("%s-%d.jar", name, k))
				ev.SignaturePath = RelativePath(appVersion, SignatureName(fmt.Sprintf("%s-%d.jar", name, k)))
				ev.Screenshots = []string{RelativePath(appVersion, fmt.Sprintf("%s-%d_1.png", name, k))}
			}
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	require.NoError(t, err)

	var loaded Manifest
	require.NoError(t, json.Unmarshal(data, &loaded))

	gotAV, gotExt, gotVersions := loaded.Counts()
	require.Equal(t, appVersions, gotAV)
	require.Equal(t, appVersions*extensions, gotExt)
	require.Equal(t, appVersions*extensions*versions, gotVersions)
	require.Equal(t, m, &loaded)
}

// TestWalk visits parents before children.
func TestWalk(t *testing.T) {
	t.Parallel()

	m := New("ImageViewer")
	av, _ := m.FindOrCreateApplicationVersion("1.0")
	ext, _ := av.FindOrCreateExtension("Filters")
	ext.FindOrCreateVersion(newDescriptor("Filters", "1.0", "1.0"), "1.0", "a.jar")
	ext.FindOrCreateVersion(newDescriptor("Filters", "1.1", "1.0"), "1.0", "b.jar")

	var paths []string

	m.Walk(VersionFunc(func(_ *ApplicationVersion, _ *Extension, ev *ExtensionVersion) {
		paths = append(paths, ev.DownloadPath)
	}))

	require.Equal(t, []string{"extensions/1.0/a.jar", "extensions/1.0/b.jar"}, paths)
}
