package publish

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ext-packager/internal/domain/descriptor"
	"github.com/oshokin/ext-packager/internal/domain/manifest"
	manifestrepo "github.com/oshokin/ext-packager/internal/repository/manifest"
)

// distFixture builds a distribution root with a manifest, a public key and two version
// directories, one of them nested.
func distFixture(t *testing.T, withKey bool) string {
	t.Helper()

	dist := filepath.Join(t.TempDir(), "dist")

	m := manifest.New("ImageViewer")
	av, _ := m.FindOrCreateApplicationVersion("1.0")
	ext, _ := av.FindOrCreateExtension("Filters")
	ext.FindOrCreateVersion(&descriptor.Descriptor{
		Name:             "Filters",
		Version:          "1.0",
		TargetAppVersion: "1.0",
	}, "1.0", "filters.jar")

	require.NoError(t, manifestrepo.NewFileRepository(filepath.Join(dist, manifestrepo.Filename)).
		Save(context.Background(), m))

	files := map[string]string{
		"extensions/1.0/filters.jar":          "jar bytes",
		"extensions/1.0/filters.sig":          "c2ln",
		"extensions/1.0/filters_1.png":        "png",
		"extensions/2.0/nested/deep/file.txt": "deep",
		"extensions/README.txt":               "root level file",
	}
	if withKey {
		files["public.key"] = "-----BEGIN PUBLIC KEY-----"
	}

	for rel, contents := range files {
		p := filepath.Join(dist, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	}

	return dist
}

func decodeManifest(t *testing.T, data []byte) *manifest.Manifest {
	t.Helper()

	var m manifest.Manifest
	require.NoError(t, json.Unmarshal(data, &m))

	return &m
}
