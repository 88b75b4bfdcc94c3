package packager

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/ext-packager/internal/domain/descriptor"
	"github.com/oshokin/ext-packager/internal/service/common"
	"github.com/oshokin/ext-packager/internal/service/merge"
	"github.com/oshokin/ext-packager/internal/service/project"
)

var (
	// errNotFound is returned when a catalog entry named on the command line does not exist.
	errNotFound = errors.New("not found")
	// errExtensionRequired is returned when an extension version is given without its extension.
	errExtensionRequired = errors.New("extension version requires an extension name")
	// errBatchFailed is returned when some items of a batch could not be processed.
	errBatchFailed = errors.New("some items failed")
)

// RemoveOptions select what to remove. ExtensionName narrows removal to one extension and
// ExtensionVersion further to one of its versions.
type RemoveOptions struct {
	ApplicationVersion string
	ExtensionName      string
	ExtensionVersion   string
}

func (s *Session) engine(p *project.Project) *merge.Engine {
	return merge.New(p.DistDir(), merge.WithTargetApplication(p.ApplicationName()))
}

// Import merges the artifacts at paths into the catalog. Directories are scanned recursively.
// Failed items are reported and do not stop the batch.
func (s *Session) Import(ctx context.Context, paths []string) (*common.Report, error) {
	p, err := s.Project(ctx)
	if err != nil {
		return nil, err
	}

	engine := s.engine(p)
	report := &common.Report{}

	err = s.manager.Edit(ctx, func(p *project.Project) error {
		var files []string

		for _, path := range paths {
			info, statErr := os.Stat(path)
			if statErr != nil {
				report.Fail(path, statErr)
				continue
			}

			if !info.IsDir() {
				files = append(files, path)
				continue
			}

			dirReport, dirErr := engine.ImportDirectory(ctx, p.Manifest(), path)
			report.Merge(dirReport)

			if dirErr != nil {
				return dirErr
			}
		}

		batch, batchErr := engine.ImportBatch(ctx, p.Manifest(), files)
		report.Merge(batch)

		return batchErr
	})
	if err != nil {
		return report, err
	}

	return report, s.summarize("Imported", report)
}

// Remove deletes an application version, an extension or one extension version together with
// their files.
func (s *Session) Remove(ctx context.Context, opts *RemoveOptions) (*common.Report, error) {
	if opts.ExtensionVersion != "" && opts.ExtensionName == "" {
		return nil, errExtensionRequired
	}

	p, err := s.Project(ctx)
	if err != nil {
		return nil, err
	}

	engine := s.engine(p)

	var report *common.Report

	err = s.manager.Edit(ctx, func(p *project.Project) error {
		av := p.Manifest().FindApplicationVersion(opts.ApplicationVersion)
		if av == nil {
			return fmt.Errorf("application version %s: %w", opts.ApplicationVersion, errNotFound)
		}

		if opts.ExtensionName == "" {
			report, err = engine.RemoveApplicationVersion(ctx, p.Manifest(), av)
			return err
		}

		ext := av.FindExtension(opts.ExtensionName)
		if ext == nil {
			return fmt.Errorf("extension %s in %s: %w", opts.ExtensionName, av.Version, errNotFound)
		}

		if opts.ExtensionVersion == "" {
			report, err = engine.RemoveExtension(ctx, p.Manifest(), ext)
			return err
		}

		ev := ext.FindVersion(&descriptor.Descriptor{Name: ext.Name, Version: opts.ExtensionVersion})
		if ev == nil {
			return fmt.Errorf("extension %s %s: %w", ext.Name, opts.ExtensionVersion, errNotFound)
		}

		report, err = engine.RemoveExtensionVersion(ctx, p.Manifest(), ev)

		return err
	})
	if err != nil {
		return report, err
	}

	return report, s.summarize("Removed files", report)
}

// AddApplicationVersion adds an empty application version to the catalog.
func (s *Session) AddApplicationVersion(ctx context.Context, version string) error {
	if _, err := s.Project(ctx); err != nil {
		return err
	}

	err := s.manager.Edit(ctx, func(p *project.Project) error {
		_, err := p.Manifest().AddApplicationVersion(version)
		return err
	})
	if err != nil {
		return err
	}

	s.printf("Added application version %s", version)

	return nil
}

// RenameApplicationVersion renames an application version and moves its files.
func (s *Session) RenameApplicationVersion(ctx context.Context, from, to string) error {
	p, err := s.Project(ctx)
	if err != nil {
		return err
	}

	engine := s.engine(p)

	err = s.manager.Edit(ctx, func(p *project.Project) error {
		_, err := engine.RenameApplicationVersion(ctx, p.Manifest(), from, to)
		return err
	})
	if err != nil {
		return err
	}

	s.printf("Renamed application version %s to %s", from, to)

	return nil
}

// ReplaceScreenshots swaps the screenshots of one extension version for files.
func (s *Session) ReplaceScreenshots(
	ctx context.Context,
	appVersion, extName, extVersion string,
	files []string,
) (*common.Report, error) {
	p, err := s.Project(ctx)
	if err != nil {
		return nil, err
	}

	engine := s.engine(p)

	var report *common.Report

	err = s.manager.Edit(ctx, func(p *project.Project) error {
		av := p.Manifest().FindApplicationVersion(appVersion)
		if av == nil {
			return fmt.Errorf("application version %s: %w", appVersion, errNotFound)
		}

		ext := av.FindExtension(extName)
		if ext == nil {
			return fmt.Errorf("extension %s in %s: %w", extName, appVersion, errNotFound)
		}

		ev := ext.FindVersion(&descriptor.Descriptor{Name: ext.Name, Version: extVersion})
		if ev == nil {
			return fmt.Errorf("extension %s %s: %w", extName, extVersion, errNotFound)
		}

		report, err = engine.ReplaceScreenshots(ctx, p.Manifest(), ev, files)

		return err
	})
	if err != nil {
		return report, err
	}

	return report, s.summarize("Replaced screenshots", report)
}

// summarize prints a batch report and turns its failures into an error.
func (s *Session) summarize(verb string, report *common.Report) error {
	s.printf("%s: %d succeeded, %d failed", verb, report.Succeeded, report.Failed())

	for _, f := range report.Failures {
		s.printf("  %s: %v", f.Path, f.Err)
	}

	if report.Failed() > 0 {
		return fmt.Errorf("%w: %w", errBatchFailed, report.Err())
	}

	return nil
}
