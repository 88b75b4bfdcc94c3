package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/ext-packager/internal/config"
	"github.com/oshokin/ext-packager/internal/domain/manifest"
	"github.com/oshokin/ext-packager/internal/logger"
	"github.com/oshokin/ext-packager/internal/service/common"
)

// fileCollector gathers the on-disk files of a manifest subtree.
type fileCollector struct {
	root  string
	paths []string
}

func (c *fileCollector) VisitApplicationVersion(*manifest.ApplicationVersion) {}

func (c *fileCollector) VisitExtension(*manifest.ApplicationVersion, *manifest.Extension) {}

func (c *fileCollector) VisitExtensionVersion(_ *manifest.ApplicationVersion, _ *manifest.Extension, ev *manifest.ExtensionVersion) {
	for _, rel := range append([]string{ev.DownloadPath, ev.SignaturePath}, ev.Screenshots...) {
		if p := manifest.ResolvePath(c.root, ev, rel); p != "" {
			c.paths = append(c.paths, p)
		}
	}
}

// RemoveExtensionVersion detaches ev from m and deletes its artifact, signature and screenshots.
func (e *Engine) RemoveExtensionVersion(ctx context.Context, m *manifest.Manifest, ev *manifest.ExtensionVersion) (*common.Report, error) {
	_, ext, ok := m.Locate(ev)
	if !ok {
		return nil, ErrNotInManifest
	}

	c := &fileCollector{root: e.distDir}
	c.VisitExtensionVersion(nil, ext, ev)
	ext.RemoveVersion(ev)

	return e.deleteFiles(ctx, c.paths), nil
}

// RemoveExtension detaches ext with all of its versions.
func (e *Engine) RemoveExtension(ctx context.Context, m *manifest.Manifest, ext *manifest.Extension) (*common.Report, error) {
	av, ok := m.LocateExtension(ext)
	if !ok {
		return nil, ErrNotInManifest
	}

	c := &fileCollector{root: e.distDir}
	manifest.WalkExtension(av, ext, c)
	av.RemoveExtension(ext)

	return e.deleteFiles(ctx, c.paths), nil
}

// RemoveApplicationVersion detaches av with everything below it and removes its directory when
// it ends up empty.
func (e *Engine) RemoveApplicationVersion(ctx context.Context, m *manifest.Manifest, av *manifest.ApplicationVersion) (*common.Report, error) {
	if !m.RemoveApplicationVersion(av) {
		return nil, ErrNotInManifest
	}

	c := &fileCollector{root: e.distDir}
	av.Walk(c)

	report := e.deleteFiles(ctx, c.paths)

	dir := manifest.ResolvePath(e.distDir, nil, manifest.VersionDir(av.Version))
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.DebugKV(ctx, "Version directory left in place", "dir", dir, "error", err)
	}

	return report, nil
}

// RenameApplicationVersion changes the version key and moves its directory.
// The model is restored when the directory cannot be moved.
func (e *Engine) RenameApplicationVersion(ctx context.Context, m *manifest.Manifest, from, to string) (*manifest.ApplicationVersion, error) {
	av, err := m.RenameApplicationVersion(from, to)
	if err != nil {
		return nil, err
	}

	if from == av.Version {
		return av, nil
	}

	src := manifest.ResolvePath(e.distDir, nil, manifest.VersionDir(from))
	dst := manifest.ResolvePath(e.distDir, nil, manifest.VersionDir(av.Version))

	if _, statErr := os.Stat(src); statErr == nil {
		if err = os.MkdirAll(filepath.Dir(dst), config.DefaultDirPermissions); err == nil {
			err = os.Rename(src, dst)
		}

		if err != nil {
			if _, revertErr := m.RenameApplicationVersion(av.Version, from); revertErr != nil {
				logger.ErrorKV(ctx, "Unable to restore application version", "version", from, "error", revertErr)
			}

			return nil, fmt.Errorf("move %s: %w", src, err)
		}
	}

	logger.InfoKV(ctx, "Renamed application version", "from", from, "to", av.Version)

	return av, nil
}

// deleteFiles removes every path, recording each failure without stopping.
// Files that are already gone count as removed.
func (e *Engine) deleteFiles(ctx context.Context, paths []string) *common.Report {
	report := new(common.Report)

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to delete file", "path", p, "error", err)
			report.Fail(p, err)

			continue
		}

		report.Success()
	}

	return report
}
