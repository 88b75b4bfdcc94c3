package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/ext-packager/internal/config"
	domain "github.com/oshokin/ext-packager/internal/domain/manifest"
	"github.com/oshokin/ext-packager/internal/logger"
)

// Filename is the manifest document name inside the distribution root.
const Filename = "version_manifest.json"

// Repository defines persistence operations for the manifest.
type Repository interface {
	Load(ctx context.Context) (*domain.Manifest, error)
	Save(ctx context.Context, m *domain.Manifest) error
}

// FileRepository persists the manifest to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON manifest.
	path string
	// mu protects concurrent access to the manifest file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the manifest file does not exist yet.
	ErrNotFound = errors.New("manifest not found")
	// ErrCorrupt is returned when the manifest file exists but cannot be decoded.
	ErrCorrupt = errors.New("manifest is corrupt")

	errNullEntry           = errors.New("null entry")
	errMissingDescriptor   = errors.New("missing extInfo")
	errMissingDownloadPath = errors.New("missing downloadPath")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the location of the manifest file.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the manifest from disk.
// Entries that cannot be used (null nodes, versions without a valid descriptor or download
// path) are dropped and logged.
func (r *FileRepository) Load(ctx context.Context) (*domain.Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read manifest file: %w", err)
	}

	var m domain.Manifest
	if err = json.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	prune(logger.WithKV(ctx, "path", r.path), &m)

	return &m, nil
}

// prune removes unusable nodes so the rest of the catalog stays usable.
func prune(ctx context.Context, m *domain.Manifest) {
	appVersions := make([]*domain.ApplicationVersion, 0, len(m.ApplicationVersions))

	for i, av := range m.ApplicationVersions {
		if av == nil || av.Version == "" {
			logger.WarnKV(ctx, "Dropping invalid application version", "index", i)
			continue
		}

		extensions := make([]*domain.Extension, 0, len(av.Extensions))

		for j, ext := range av.Extensions {
			if ext == nil || ext.Name == "" {
				logger.WarnKV(ctx, "Dropping invalid extension", "app_version", av.Version, "index", j)
				continue
			}

			versions := make([]*domain.ExtensionVersion, 0, len(ext.Versions))

			for k, ev := range ext.Versions {
				if err := validVersion(ev); err != nil {
					logger.WarnKV(ctx, "Dropping invalid extension version",
						"app_version", av.Version, "extension", ext.Name, "index", k, "error", err)

					continue
				}

				versions = append(versions, ev)
			}

			ext.Versions = versions
			extensions = append(extensions, ext)
		}

		av.Extensions = extensions
		appVersions = append(appVersions, av)
	}

	m.ApplicationVersions = appVersions
}

func validVersion(ev *domain.ExtensionVersion) error {
	switch {
	case ev == nil:
		return errNullEntry
	case ev.ExtInfo == nil:
		return errMissingDescriptor
	case ev.DownloadPath == "":
		return errMissingDownloadPath
	default:
		return ev.ExtInfo.Validate()
	}
}

// Save writes the manifest to disk, creating the distribution root if needed.
// The document is written to a temporary sibling first and renamed into place.
func (r *FileRepository) Save(_ context.Context, m *domain.Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultDistFilePermissions); err != nil {
		return fmt.Errorf("write manifest file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace manifest file: %w", err)
	}

	return nil
}
