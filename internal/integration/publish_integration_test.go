package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ext-packager/internal/config"
	"github.com/oshokin/ext-packager/internal/domain/descriptor"
	"github.com/oshokin/ext-packager/internal/domain/manifest"
	"github.com/oshokin/ext-packager/internal/repository/artifact"
	manifestrepo "github.com/oshokin/ext-packager/internal/repository/manifest"
	"github.com/oshokin/ext-packager/internal/repository/target"
	"github.com/oshokin/ext-packager/internal/service/packager"
	"github.com/oshokin/ext-packager/internal/signature"
)

// TestImportSignPublish runs the whole packaging flow against a local target and checks that
// the mirror is complete, stamped and verifiable with the published key.
func TestImportSignPublish(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	root := t.TempDir()
	incoming := filepath.Join(root, "incoming")
	mirror := filepath.Join(root, "mirror")

	for _, ext := range []struct{ name, version, appVersion string }{
		{"Zoom", "1.0", "2.0"},
		{"Zoom", "1.1", "2.0"},
		{"Crop", "0.9", "2.0"},
		{"Crop", "1.0", "3.0"},
	} {
		p := filepath.Join(incoming, ext.appVersion, ext.name+"-"+ext.version+".jar")
		require.NoError(t, artifact.WriteExtension(p, &descriptor.Descriptor{
			Name:             ext.name,
			Version:          ext.version,
			TargetAppName:    "Viewer",
			TargetAppVersion: ext.appVersion,
		}, ext.name+ext.version))
	}

	// Screenshot next to one artifact.
	require.NoError(t, os.WriteFile(filepath.Join(incoming, "2.0", "Zoom-1.0_main.png"), []byte("png"), 0o600))

	// Stale content the clean phase must remove.
	require.NoError(t, os.MkdirAll(filepath.Join(mirror, "extensions", "1.0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mirror, "old.txt"), []byte("stale"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(mirror, "extensions", "1.0", "gone.jar"), []byte("stale"), 0o600))

	var out bytes.Buffer

	s, err := packager.Start(ctx, &packager.Options{
		ConfigPath: filepath.Join(root, config.DefaultConfigFilename),
		LogLevel:   "error",
		Out:        &out,
	})
	require.NoError(t, err)

	p, err := s.CreateProject(ctx, filepath.Join(root, "project"), "Gallery", "Viewer")
	require.NoError(t, err)

	report, err := s.Import(ctx, []string{incoming})
	require.NoError(t, err)
	require.Equal(t, 4, report.Succeeded)

	require.NoError(t, s.GenerateKeys(ctx, false))

	signed, err := s.Sign(ctx, "missing")
	require.NoError(t, err)
	require.Equal(t, 4, signed.Succeeded)

	require.NoError(t, s.AddTarget(ctx, &target.Target{
		Name:    "mirror",
		BaseURL: "file://" + filepath.ToSlash(mirror),
	}))

	result, err := s.Publish(ctx, &packager.PublishOptions{Target: "mirror", Clean: true, PublishKey: true})
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	require.NoError(t, s.Close(ctx))

	require.NoFileExists(t, filepath.Join(mirror, "old.txt"))
	require.NoDirExists(t, filepath.Join(mirror, "extensions", "1.0"))
	require.Contains(t, out.String(), "complete")

	published, err := manifestrepo.NewFileRepository(filepath.Join(mirror, manifestrepo.Filename)).Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, published.ManifestGenerated)
	require.NotEmpty(t, published.Generator)

	appVersions, extensions, versions := published.Counts()
	require.Equal(t, 2, appVersions)
	require.Equal(t, 3, extensions)
	require.Equal(t, 4, versions)

	publicKey, err := signature.LoadPublicKey(filepath.Join(mirror, target.DefaultPublicKeyPath))
	require.NoError(t, err)
	require.Zero(t, publicKey.N.Cmp(p.KeyPair().Public.N))

	screenshots := 0

	published.Walk(manifest.VersionFunc(func(_ *manifest.ApplicationVersion, _ *manifest.Extension, ev *manifest.ExtensionVersion) {
		artifactPath := filepath.Join(mirror, filepath.FromSlash(ev.DownloadPath))
		require.FileExists(t, artifactPath)
		require.NotEmpty(t, ev.SignaturePath)

		ok, verifyErr := signature.VerifyFile(artifactPath, filepath.Join(mirror, filepath.FromSlash(ev.SignaturePath)), publicKey)
		require.NoError(t, verifyErr)
		require.True(t, ok, ev.DownloadPath)

		for _, shot := range ev.Screenshots {
			require.FileExists(t, filepath.Join(mirror, filepath.FromSlash(shot)))
			screenshots++
		}
	}))

	require.Equal(t, 1, screenshots)
}
