package target

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
)

// Filename is the name of the targets document inside the project directory.
const Filename = "update_sources.json"

const (
	// DefaultManifestPath is used when a target does not name its manifest explicitly.
	DefaultManifestPath = "version_manifest.json"
	// DefaultPublicKeyPath is used when a target does not name its public key explicitly.
	DefaultPublicKeyPath = "public.key"
	// fileScheme marks targets published to a local directory.
	fileScheme = "file"
)

var (
	// ErrDuplicateTarget is returned when a target with the same name already exists.
	ErrDuplicateTarget = errors.New("target already exists")
	// ErrTargetNotFound is returned for an unknown target name.
	ErrTargetNotFound = errors.New("target not found")
	// ErrInvalidTarget is returned for targets with a blank name or an unusable base URL.
	ErrInvalidTarget = errors.New("invalid target")
)

// Sources is the list of distribution targets of one application.
type Sources struct {
	ApplicationName string    `json:"applicationName"`
	Targets         []*Target `json:"updateSources"`
}

// Target is a distribution destination. Its paths are relative to BaseURL.
type Target struct {
	Name          string `json:"name"`
	BaseURL       string `json:"baseUrl"`
	ManifestPath  string `json:"versionManifest"`
	PublicKeyPath string `json:"publicKey,omitempty"`
}

// NewSources returns an empty target list for the application.
func NewSources(applicationName string) *Sources {
	return &Sources{
		ApplicationName: applicationName,
		Targets:         make([]*Target, 0),
	}
}

// Find returns the target with the given name, or nil.
func (s *Sources) Find(name string) *Target {
	for _, t := range s.Targets {
		if t.Name == name {
			return t
		}
	}

	return nil
}

// Add validates t, fills default paths and appends it.
func (s *Sources) Add(t *Target) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if s.Find(t.Name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateTarget, t.Name)
	}

	if t.ManifestPath == "" {
		t.ManifestPath = DefaultManifestPath
	}

	s.Targets = append(s.Targets, t)

	return nil
}

// Remove deletes the named target.
func (s *Sources) Remove(name string) error {
	before := len(s.Targets)
	s.Targets = slices.DeleteFunc(s.Targets, func(t *Target) bool {
		return t.Name == name
	})

	if len(s.Targets) == before {
		return fmt.Errorf("%w: %s", ErrTargetNotFound, name)
	}

	return nil
}

// Validate checks the name and base URL of the target.
func (t *Target) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is blank", ErrInvalidTarget)
	}

	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base url: %w", ErrInvalidTarget, err)
	}

	if u.Scheme == "" {
		return fmt.Errorf("%w: base url %q has no scheme", ErrInvalidTarget, t.BaseURL)
	}

	return nil
}

// IsLocal reports whether the target publishes to a local directory.
func (t *Target) IsLocal() bool {
	u, err := url.Parse(t.BaseURL)

	return err == nil && strings.EqualFold(u.Scheme, fileScheme)
}

// LocalDir returns the directory a local target publishes to.
func (t *Target) LocalDir() (string, error) {
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %w", ErrInvalidTarget, err)
	}

	if !strings.EqualFold(u.Scheme, fileScheme) {
		return "", fmt.Errorf("%w: %s is not a local target", ErrInvalidTarget, t.Name)
	}

	p := u.Path
	if p == "" {
		p = u.Opaque
	}

	if p == "" {
		return "", fmt.Errorf("%w: %s has an empty path", ErrInvalidTarget, t.Name)
	}

	return filepath.FromSlash(p), nil
}

// URLFor joins a relative path onto the base URL.
func (t *Target) URLFor(rel string) string {
	return strings.TrimRight(t.BaseURL, "/") + "/" + strings.TrimLeft(rel, "/")
}
