package merge

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/oshokin/ext-packager/internal/domain/manifest"
	"github.com/oshokin/ext-packager/internal/logger"
	"github.com/oshokin/ext-packager/internal/service/common"
)

// ImportBatch imports every path independently. A failing file is recorded in the report and
// the batch continues. The returned error is only set when ctx is cancelled between files.
func (e *Engine) ImportBatch(ctx context.Context, m *manifest.Manifest, paths []string) (*common.Report, error) {
	report := new(common.Report)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if _, err := e.ImportArtifact(ctx, m, p); err != nil {
			logger.WarnKV(ctx, "Import failed", "path", p, "error", err)
			report.Fail(p, err)

			continue
		}

		report.Success()
	}

	logger.InfoKV(ctx, "Batch import finished", "imported", report.Succeeded, "failed", report.Failed())

	return report, nil
}

// ImportDirectory imports every artifact found recursively under dir, in lexical order.
// The distribution root itself is skipped when it lies inside dir.
func (e *Engine) ImportDirectory(ctx context.Context, m *manifest.Manifest, dir string) (*common.Report, error) {
	paths, err := e.findArtifacts(dir)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Found artifacts to import", "dir", dir, "count", len(paths))

	return e.ImportBatch(ctx, m, paths)
}

func (e *Engine) findArtifacts(dir string) ([]string, error) {
	var paths []string

	distDir, _ := filepath.Abs(e.distDir)

	err := filepath.WalkDir(dir, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			if abs, absErr := filepath.Abs(p); absErr == nil && abs == distDir {
				return filepath.SkipDir
			}

			return nil
		}

		if manifest.IsArtifact(entry.Name()) && !strings.HasPrefix(entry.Name(), ".") {
			paths = append(paths, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	slices.Sort(paths)

	return paths, nil
}
