package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/ext-packager/internal/domain/descriptor"
	"github.com/oshokin/ext-packager/internal/domain/manifest"
	"github.com/oshokin/ext-packager/internal/logger"
	"github.com/oshokin/ext-packager/internal/repository/artifact"
	"github.com/oshokin/ext-packager/internal/service/common"
)

var (
	// ErrWrongTargetApplication is returned when an artifact targets another application.
	ErrWrongTargetApplication = errors.New("artifact targets a different application")
	// ErrNotInManifest is returned when a node to remove is not part of the manifest.
	ErrNotInManifest = errors.New("entry is not part of the manifest")
)

// Reader extracts the descriptor of an artifact.
type Reader func(path string) (*descriptor.Descriptor, error)

// Engine merges artifacts into a manifest whose files live under distDir.
type Engine struct {
	// distDir is the distribution root holding the extension tree.
	distDir string
	// targetApp, when set, must match the descriptor's target application name.
	targetApp string
	// read extracts descriptors; artifact.Read unless overridden.
	read Reader
}

// Option configures the engine.
type Option func(*Engine)

// WithTargetApplication rejects artifacts built for another application.
func WithTargetApplication(name string) Option {
	return func(e *Engine) {
		e.targetApp = strings.TrimSpace(name)
	}
}

// WithReader overrides how descriptors are read.
func WithReader(r Reader) Option {
	return func(e *Engine) {
		if r != nil {
			e.read = r
		}
	}
}

// New returns an engine operating on the distribution root distDir.
func New(distDir string, opts ...Option) *Engine {
	e := &Engine{
		distDir: filepath.Clean(distDir),
		read:    artifact.Read,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// DistDir returns the distribution root.
func (e *Engine) DistDir() string {
	return e.distDir
}

// ImportArtifact reads the artifact at path and merges it into m.
//
// An existing (name, version) entry is returned unmodified; the artifact bytes are still
// refreshed so the distribution tree holds the latest import. A new entry gets its download
// path, sibling signature and screenshots. The model is only mutated once every file has been
// copied.
func (e *Engine) ImportArtifact(ctx context.Context, m *manifest.Manifest, path string) (*manifest.ExtensionVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := e.read(path)
	if err != nil {
		return nil, err
	}

	if e.targetApp != "" && d.TargetAppName != e.targetApp {
		return nil, fmt.Errorf("%w: artifact %s targets %q, project targets %q",
			ErrWrongTargetApplication, filepath.Base(path), d.TargetAppName, e.targetApp)
	}

	ctx = logger.WithFields(ctx, "extension", d.Name, "version", d.Version, "app_version", d.TargetAppVersion)

	artifactName := filepath.Base(path)
	if existing := findExisting(m, d); existing != nil {
		logger.WarnKV(ctx, "Extension version already in manifest, keeping existing entry", "artifact", path)

		if err = e.refresh(ctx, existing, path); err != nil {
			return nil, err
		}

		return existing, nil
	}

	placed := new(placement)

	downloadPath := manifest.RelativePath(d.TargetAppVersion, artifactName)
	if err = placed.copy(path, e.resolve(downloadPath)); err != nil {
		placed.undo(ctx)
		return nil, fmt.Errorf("copy artifact: %w", err)
	}

	signaturePath, err := e.copySignature(placed, path, d.TargetAppVersion)
	if err != nil {
		placed.undo(ctx)
		return nil, err
	}

	screenshots, err := e.copyScreenshots(placed, path, d.TargetAppVersion)
	if err != nil {
		placed.undo(ctx)
		return nil, err
	}

	av, _ := m.FindOrCreateApplicationVersion(d.TargetAppVersion)
	ext, _ := av.FindOrCreateExtension(d.Name)
	ev, _ := ext.FindOrCreateVersion(d, d.TargetAppVersion, artifactName)
	ev.SignaturePath = signaturePath
	ev.Screenshots = screenshots

	logger.InfoKV(ctx, "Imported extension", "path", ev.DownloadPath, "signed", signaturePath != "",
		"screenshots", len(screenshots))

	return ev, nil
}

// refresh overwrites the stored artifact of an existing entry when the source differs.
func (e *Engine) refresh(ctx context.Context, ev *manifest.ExtensionVersion, src string) error {
	dst := manifest.ResolvePath(e.distDir, ev, ev.DownloadPath)

	copied, err := common.CopyFile(src, dst)
	if err != nil {
		return fmt.Errorf("copy artifact: %w", err)
	}

	if copied {
		logger.InfoKV(ctx, "Replaced stored artifact with changed bytes", "path", ev.DownloadPath)
	}

	return nil
}

// copySignature copies "<basename>.sig" next to the source artifact, if present.
func (e *Engine) copySignature(placed *placement, src, appVersion string) (string, error) {
	sigName := manifest.SignatureName(filepath.Base(src))

	sigSrc := filepath.Join(filepath.Dir(src), sigName)
	if !artifact.Exists(sigSrc) {
		return "", nil
	}

	rel := manifest.RelativePath(appVersion, sigName)
	if err := placed.copy(sigSrc, e.resolve(rel)); err != nil {
		return "", fmt.Errorf("copy signature: %w", err)
	}

	return rel, nil
}

// copyScreenshots copies every "<basename>_*.<image>" sibling of the source artifact.
func (e *Engine) copyScreenshots(placed *placement, src, appVersion string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Dir(src))
	if err != nil {
		return nil, fmt.Errorf("list artifact directory: %w", err)
	}

	artifactName := filepath.Base(src)

	var screenshots []string

	for _, entry := range entries {
		if entry.IsDir() || !manifest.IsScreenshotFor(artifactName, entry.Name()) {
			continue
		}

		rel := manifest.RelativePath(appVersion, entry.Name())
		if err = placed.copy(filepath.Join(filepath.Dir(src), entry.Name()), e.resolve(rel)); err != nil {
			return nil, fmt.Errorf("copy screenshot %s: %w", entry.Name(), err)
		}

		screenshots = append(screenshots, rel)
	}

	return screenshots, nil
}

// placement tracks the files a single import created, so a failed import leaves no strays.
type placement struct {
	created []string
}

// copy copies src to dst and remembers dst when nothing was there before.
func (p *placement) copy(src, dst string) error {
	if _, err := os.Lstat(dst); errors.Is(err, os.ErrNotExist) {
		p.created = append(p.created, dst)
	}

	_, err := common.CopyFile(src, dst)

	return err
}

// undo removes the files created so far. Files that existed before are left alone.
func (p *placement) undo(ctx context.Context) {
	for _, created := range p.created {
		if err := os.Remove(created); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to remove partially imported file", "path", created, "error", err)
		}
	}

	p.created = nil
}

func (e *Engine) resolve(rel string) string {
	return manifest.ResolvePath(e.distDir, nil, rel)
}

// findExisting looks an entry up by its key without creating intermediate nodes.
func findExisting(m *manifest.Manifest, d *descriptor.Descriptor) *manifest.ExtensionVersion {
	av := m.FindApplicationVersion(d.TargetAppVersion)
	if av == nil {
		return nil
	}

	ext := av.FindExtension(d.Name)
	if ext == nil {
		return nil
	}

	return ext.FindVersion(d)
}
