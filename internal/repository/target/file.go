package target

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/ext-packager/internal/config"
)

// Repository defines persistence operations for the target list.
type Repository interface {
	Load(ctx context.Context) (*Sources, error)
	Save(ctx context.Context, s *Sources) error
}

// FileRepository persists the target list to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON document.
	path string
	// mu protects concurrent access to the document.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the targets document does not exist yet.
	ErrNotFound = errors.New("targets not found")
	// ErrCorrupt is returned when the targets document cannot be decoded.
	ErrCorrupt = errors.New("targets document is corrupt")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the target list from disk.
func (r *FileRepository) Load(_ context.Context) (*Sources, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read targets file: %w", err)
	}

	var s Sources
	if err = json.Unmarshal(contents, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if s.Targets == nil {
		s.Targets = make([]*Target, 0)
	}

	return &s, nil
}

// Save writes the target list to disk.
func (r *FileRepository) Save(_ context.Context, s *Sources) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode targets: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write targets file: %w", err)
	}

	return nil
}
