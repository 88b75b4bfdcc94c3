package packager

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ext-packager/internal/config"
	"github.com/oshokin/ext-packager/internal/domain/descriptor"
	"github.com/oshokin/ext-packager/internal/repository/artifact"
	"github.com/oshokin/ext-packager/internal/repository/target"
	"github.com/oshokin/ext-packager/internal/service/project"
	"github.com/oshokin/ext-packager/internal/service/signer"
)

func startSession(t *testing.T, cfgPath, projectFile string) (*Session, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer

	s, err := Start(context.Background(), &Options{
		ConfigPath:  cfgPath,
		ProjectFile: projectFile,
		LogLevel:    "error",
		Out:         &out,
	})
	require.NoError(t, err)

	return s, &out
}

func writeExtension(t *testing.T, p, name, version, app, appVersion string) {
	t.Helper()

	require.NoError(t, artifact.WriteExtension(p, &descriptor.Descriptor{
		Name:             name,
		Version:          version,
		TargetAppName:    app,
		TargetAppVersion: appVersion,
	}, name+version))
}

func TestSession_RequiresProject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := startSession(t, filepath.Join(t.TempDir(), config.DefaultConfigFilename), "")

	require.ErrorIs(t, s.Info(ctx), errProjectRequired)

	_, err := s.Import(ctx, []string{"a.jar"})
	require.ErrorIs(t, err, errProjectRequired)
}

func TestSession_CatalogWorkflow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	cfgPath := filepath.Join(root, config.DefaultConfigFilename)
	incoming := filepath.Join(root, "incoming")

	writeExtension(t, filepath.Join(incoming, "zoom.jar"), "Zoom", "1.0", "Viewer", "2.0")
	writeExtension(t, filepath.Join(incoming, "nested", "crop.jar"), "Crop", "0.9", "Viewer", "2.0")
	writeExtension(t, filepath.Join(root, "foreign.jar"), "Other", "1.0", "Editor", "2.0")

	s, out := startSession(t, cfgPath, "")

	p, err := s.CreateProject(ctx, filepath.Join(root, "project"), "Gallery", "Viewer")
	require.NoError(t, err)

	report, err := s.Import(ctx, []string{incoming, filepath.Join(root, "foreign.jar")})
	require.ErrorIs(t, err, errBatchFailed)
	require.Equal(t, 2, report.Succeeded)
	require.Equal(t, 1, report.Failed())
	require.Contains(t, out.String(), "Imported: 2 succeeded, 1 failed")

	require.NoError(t, s.AddApplicationVersion(ctx, "3.0"))
	require.NoError(t, s.RenameApplicationVersion(ctx, "2.0", "2.1"))
	require.FileExists(t, filepath.Join(p.DistDir(), "extensions", "2.1", "zoom.jar"))

	_, err = s.Remove(ctx, &RemoveOptions{ApplicationVersion: "2.1", ExtensionName: "Crop", ExtensionVersion: "0.9"})
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(p.DistDir(), "extensions", "2.1", "crop.jar"))

	_, err = s.Remove(ctx, &RemoveOptions{ApplicationVersion: "9.9"})
	require.ErrorIs(t, err, errNotFound)

	require.NoError(t, s.Close(ctx))

	// The next session reopens the last project from the saved settings.
	next, _ := startSession(t, cfgPath, "")

	reopened, err := next.Project(ctx)
	require.NoError(t, err)
	require.Equal(t, p.File(), reopened.File())
	require.NotNil(t, reopened.Manifest().FindApplicationVersion("3.0"))
	require.NotNil(t, reopened.Manifest().FindApplicationVersion("2.1"))
	require.Nil(t, reopened.Manifest().FindApplicationVersion("2.0"))
	require.NoError(t, next.Info(ctx))
	require.NoError(t, next.Close(ctx))
}

func TestSession_ReplaceScreenshots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	incoming := filepath.Join(root, "incoming")

	writeExtension(t, filepath.Join(incoming, "zoom.jar"), "Zoom", "1.0", "Viewer", "2.0")
	require.NoError(t, os.WriteFile(filepath.Join(incoming, "zoom_1.png"), []byte("old"), 0o600))

	fresh := filepath.Join(root, "preview.jpg")
	require.NoError(t, os.WriteFile(fresh, []byte("new"), 0o600))

	s, out := startSession(t, filepath.Join(root, config.DefaultConfigFilename), "")

	p, err := s.CreateProject(ctx, filepath.Join(root, "project"), "Gallery", "Viewer")
	require.NoError(t, err)

	_, err = s.Import(ctx, []string{incoming})
	require.NoError(t, err)

	_, err = s.ReplaceScreenshots(ctx, "2.0", "Zoom", "1.1", []string{fresh})
	require.ErrorIs(t, err, errNotFound)

	report, err := s.ReplaceScreenshots(ctx, "2.0", "Zoom", "1.0", []string{fresh})
	require.NoError(t, err)
	require.Equal(t, 2, report.Succeeded)
	require.Contains(t, out.String(), "Replaced screenshots: 2 succeeded, 0 failed")

	versionDir := filepath.Join(p.DistDir(), "extensions", "2.0")
	require.NoFileExists(t, filepath.Join(versionDir, "zoom_1.png"))
	require.FileExists(t, filepath.Join(versionDir, "zoom_screenshot1.jpg"))

	ev := p.Manifest().FindApplicationVersion("2.0").FindExtension("Zoom").
		FindVersion(&descriptor.Descriptor{Name: "Zoom", Version: "1.0"})
	require.Equal(t, []string{"extensions/2.0/zoom_screenshot1.jpg"}, ev.Screenshots)
	require.NoError(t, s.Close(ctx))
}

func TestSession_SigningWorkflow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	cfgPath := filepath.Join(root, config.DefaultConfigFilename)

	writeExtension(t, filepath.Join(root, "in", "zoom.jar"), "Zoom", "1.0", "Viewer", "2.0")

	s, _ := startSession(t, cfgPath, "")
	defer func() { require.NoError(t, s.Close(ctx)) }()

	_, err := s.CreateProject(ctx, filepath.Join(root, "project"), "Gallery", "Viewer")
	require.NoError(t, err)

	_, err = s.Import(ctx, []string{filepath.Join(root, "in")})
	require.NoError(t, err)

	_, err = s.Sign(ctx, "")
	require.ErrorIs(t, err, signer.ErrNoKeyPair)

	require.NoError(t, s.GenerateKeys(ctx, false))
	require.ErrorIs(t, s.GenerateKeys(ctx, false), project.ErrConfirmationRequired)

	signed, err := s.Sign(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, signed.Succeeded)

	scan, err := s.Verify(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, scan.Verified)

	require.NoError(t, s.GenerateKeys(ctx, true))

	_, err = s.Verify(ctx)
	require.ErrorIs(t, err, errInvalidSignatures)

	_, err = s.Sign(ctx, "bogus")
	require.Error(t, err)

	resigned, err := s.Sign(ctx, "everything")
	require.NoError(t, err)
	require.Equal(t, 1, resigned.Succeeded)

	_, err = s.Verify(ctx)
	require.NoError(t, err)
}

func TestSession_Targets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()

	s, out := startSession(t, filepath.Join(root, config.DefaultConfigFilename), "")
	defer func() { require.NoError(t, s.Close(ctx)) }()

	p, err := s.CreateProject(ctx, filepath.Join(root, "project"), "Gallery", "Viewer")
	require.NoError(t, err)

	require.NoError(t, s.AddTarget(ctx, &target.Target{Name: "mirror", BaseURL: "ftp://files.example.com/pub"}))
	require.ErrorIs(t, s.AddTarget(ctx, &target.Target{Name: "mirror", BaseURL: "ftp://x"}), target.ErrDuplicateTarget)

	_, err = s.ListTargets(ctx)
	require.NoError(t, err)
	require.Contains(t, out.String(), "remote, parameters missing")

	_, err = s.Publish(ctx, &PublishOptions{Target: "mirror"})
	require.Error(t, err)

	require.Error(t, s.SetRemoteParams(ctx, "mirror", &target.RemoteParams{Host: "files.example.com"}))
	require.ErrorIs(t, s.SetRemoteParams(ctx, "absent", &target.RemoteParams{}), target.ErrTargetNotFound)

	params := &target.RemoteParams{Host: "files.example.com", Username: "deploy", Password: "secret", TargetDir: "/pub"}
	require.NoError(t, s.SetRemoteParams(ctx, "mirror", params))
	require.True(t, target.ParamsExist(p.Dir(), "mirror"))

	require.NoError(t, s.RemoveTarget(ctx, "mirror"))
	require.False(t, target.ParamsExist(p.Dir(), "mirror"))
	require.ErrorIs(t, s.RemoveTarget(ctx, "mirror"), target.ErrTargetNotFound)
}
