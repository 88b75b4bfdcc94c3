package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oshokin/ext-packager/internal/domain/manifest"
	"github.com/oshokin/ext-packager/internal/logger"
	"github.com/oshokin/ext-packager/internal/service/common"
)

// errNotAnImage is returned for replacement screenshots without an image extension.
var errNotAnImage = errors.New("not an image file")

// ReplaceScreenshots deletes every screenshot of ev and stores files as its new screenshots,
// named "<basename>_screenshot<n>.<ext>". The new files are read before anything is deleted, so
// a file from the current set can be passed back in. Deletion and copy failures are reported
// per file; an empty files list just removes the screenshots.
func (e *Engine) ReplaceScreenshots(
	ctx context.Context,
	m *manifest.Manifest,
	ev *manifest.ExtensionVersion,
	files []string,
) (*common.Report, error) {
	av, _, ok := m.Locate(ev)
	if !ok {
		return nil, ErrNotInManifest
	}

	staged := make([][]byte, len(files))

	for i, file := range files {
		if !manifest.IsImage(file) {
			return nil, fmt.Errorf("%s: %w", file, errNotAnImage)
		}

		data, err := os.ReadFile(filepath.Clean(file))
		if err != nil {
			return nil, fmt.Errorf("read screenshot: %w", err)
		}

		staged[i] = data
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx = logger.WithFields(ctx, "extension", ev.ExtInfo.Name, "version", ev.ExtInfo.Version)

	report := e.deleteFiles(ctx, e.screenshotFiles(ev))
	base := filepath.Base(manifest.Basename(filepath.ToSlash(ev.DownloadPath)))
	screenshots := make([]string, 0, len(files))

	for i, file := range files {
		name := base + "_screenshot" + strconv.Itoa(i+1) + strings.ToLower(filepath.Ext(file))
		rel := manifest.RelativePath(av.Version, name)

		if err := common.ReplaceFile(e.resolve(rel), staged[i]); err != nil {
			report.Fail(file, err)
			continue
		}

		report.Success()

		screenshots = append(screenshots, rel)
	}

	ev.Screenshots = screenshots

	logger.InfoKV(ctx, "Replaced screenshots", "count", len(screenshots), "failed", report.Failed())

	return report, nil
}

// screenshotFiles lists the recorded screenshots of ev plus any unrecorded "<basename>_*" image
// left next to its artifact.
func (e *Engine) screenshotFiles(ev *manifest.ExtensionVersion) []string {
	seen := make(map[string]struct{})

	var paths []string

	add := func(p string) {
		if _, ok := seen[p]; ok || p == "" {
			return
		}

		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	for _, rel := range ev.Screenshots {
		add(manifest.ResolvePath(e.distDir, ev, rel))
	}

	artifactPath := manifest.ResolvePath(e.distDir, ev, ev.DownloadPath)

	entries, err := os.ReadDir(filepath.Dir(artifactPath))
	if err != nil {
		return paths
	}

	for _, entry := range entries {
		if !entry.IsDir() && manifest.IsScreenshotFor(filepath.Base(artifactPath), entry.Name()) {
			add(filepath.Join(filepath.Dir(artifactPath), entry.Name()))
		}
	}

	return paths
}
