package manifest

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oshokin/ext-packager/internal/domain/descriptor"
)

var (
	// ErrDuplicateVersion is returned when an application version with the same key already exists.
	ErrDuplicateVersion = errors.New("application version already exists")
	// ErrVersionNotFound is returned when an application version is not part of the manifest.
	ErrVersionNotFound = errors.New("application version not found")
	// ErrBlankVersion is returned for an empty application version key.
	ErrBlankVersion = errors.New("application version must not be blank")
)

// Manifest is the root of the distribution tree for one application.
type Manifest struct {
	// ApplicationName scopes every version below it.
	ApplicationName string `json:"applicationName"`
	// ManifestGenerated is stamped each time the manifest is published.
	ManifestGenerated *time.Time `json:"manifestGenerated,omitempty"`
	// Generator identifies the tool build that published the manifest.
	Generator string `json:"generator,omitempty"`
	// ApplicationVersions are kept in insertion order.
	ApplicationVersions []*ApplicationVersion `json:"applicationVersions"`
}

// ApplicationVersion groups the extensions available for one version of the host application.
type ApplicationVersion struct {
	Version    string       `json:"version"`
	Extensions []*Extension `json:"extensions"`
}

// Extension is one named extension with all of its published versions.
type Extension struct {
	Name     string              `json:"name"`
	Versions []*ExtensionVersion `json:"versions"`
}

// ExtensionVersion is a single published artifact. All paths are relative to the distribution root.
type ExtensionVersion struct {
	ExtInfo       *descriptor.Descriptor `json:"extInfo"`
	DownloadPath  string                 `json:"downloadPath"`
	SignaturePath string                 `json:"signaturePath,omitempty"`
	Screenshots   []string               `json:"screenshots,omitempty"`
}

// New returns an empty manifest for the named application.
func New(applicationName string) *Manifest {
	return &Manifest{
		ApplicationName:     applicationName,
		ApplicationVersions: make([]*ApplicationVersion, 0),
	}
}

// FindApplicationVersion returns the entry keyed by version, or nil.
func (m *Manifest) FindApplicationVersion(version string) *ApplicationVersion {
	for _, av := range m.ApplicationVersions {
		if av.Version == version {
			return av
		}
	}

	return nil
}

// FindOrCreateApplicationVersion returns the entry keyed by version, appending a new one on miss.
// The second result reports whether the entry was created.
func (m *Manifest) FindOrCreateApplicationVersion(version string) (*ApplicationVersion, bool) {
	if av := m.FindApplicationVersion(version); av != nil {
		return av, false
	}

	av := &ApplicationVersion{
		Version:    version,
		Extensions: make([]*Extension, 0),
	}
	m.ApplicationVersions = append(m.ApplicationVersions, av)

	return av, true
}

// AddApplicationVersion appends a new, empty application version.
// Unlike FindOrCreateApplicationVersion it refuses duplicates.
func (m *Manifest) AddApplicationVersion(version string) (*ApplicationVersion, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, ErrBlankVersion
	}

	if m.FindApplicationVersion(version) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateVersion, version)
	}

	av, _ := m.FindOrCreateApplicationVersion(version)

	return av, nil
}

// RenameApplicationVersion changes the key of an application version and rewrites every stored
// path that lives under its version directory. Files on disk are not touched.
func (m *Manifest) RenameApplicationVersion(from, to string) (*ApplicationVersion, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, ErrBlankVersion
	}

	av := m.FindApplicationVersion(from)
	if av == nil {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, from)
	}

	if from == to {
		return av, nil
	}

	if m.FindApplicationVersion(to) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateVersion, to)
	}

	oldPrefix := VersionDir(from) + "/"
	newPrefix := VersionDir(to) + "/"
	rewrite := func(p string) string {
		if rest, ok := strings.CutPrefix(p, oldPrefix); ok {
			return newPrefix + rest
		}

		return p
	}

	for _, ext := range av.Extensions {
		for _, ev := range ext.Versions {
			ev.DownloadPath = rewrite(ev.DownloadPath)
			ev.SignaturePath = rewrite(ev.SignaturePath)

			for i, shot := range ev.Screenshots {
				ev.Screenshots[i] = rewrite(shot)
			}
		}
	}

	av.Version = to

	return av, nil
}

// RemoveApplicationVersion detaches av from the manifest and reports whether it was present.
func (m *Manifest) RemoveApplicationVersion(av *ApplicationVersion) bool {
	before := len(m.ApplicationVersions)
	m.ApplicationVersions = slices.DeleteFunc(m.ApplicationVersions, func(candidate *ApplicationVersion) bool {
		return candidate == av
	})

	return len(m.ApplicationVersions) != before
}

// SortedApplicationVersions returns the application versions ordered semantically for display.
// The manifest itself keeps insertion order.
func (m *Manifest) SortedApplicationVersions() []*ApplicationVersion {
	sorted := slices.Clone(m.ApplicationVersions)
	slices.SortStableFunc(sorted, func(a, b *ApplicationVersion) int {
		return descriptor.CompareVersions(a.Version, b.Version)
	})

	return sorted
}

// FindExtension returns the extension with the given name, or nil.
func (av *ApplicationVersion) FindExtension(name string) *Extension {
	for _, ext := range av.Extensions {
		if ext.Name == name {
			return ext
		}
	}

	return nil
}

// FindOrCreateExtension returns the named extension, appending a new one on miss.
func (av *ApplicationVersion) FindOrCreateExtension(name string) (*Extension, bool) {
	if ext := av.FindExtension(name); ext != nil {
		return ext, false
	}

	ext := &Extension{
		Name:     name,
		Versions: make([]*ExtensionVersion, 0),
	}
	av.Extensions = append(av.Extensions, ext)

	return ext, true
}

// RemoveExtension detaches ext and reports whether it was present.
func (av *ApplicationVersion) RemoveExtension(ext *Extension) bool {
	before := len(av.Extensions)
	av.Extensions = slices.DeleteFunc(av.Extensions, func(candidate *Extension) bool {
		return candidate == ext
	})

	return len(av.Extensions) != before
}

// FindVersion returns the version matching the descriptor's (name, version) key, or nil.
func (e *Extension) FindVersion(d *descriptor.Descriptor) *ExtensionVersion {
	for _, ev := range e.Versions {
		if ev.ExtInfo == nil {
			continue
		}

		if ev.ExtInfo.Name == d.Name && ev.ExtInfo.Version == d.Version {
			return ev
		}
	}

	return nil
}

// FindOrCreateVersion returns the entry for the descriptor's (name, version) key. On miss a new
// entry is appended whose download path places artifactName under the version directory of
// appVersion.
func (e *Extension) FindOrCreateVersion(
	d *descriptor.Descriptor,
	appVersion string,
	artifactName string,
) (*ExtensionVersion, bool) {
	if ev := e.FindVersion(d); ev != nil {
		return ev, false
	}

	ev := &ExtensionVersion{
		ExtInfo:      d,
		DownloadPath: RelativePath(appVersion, artifactName),
	}
	e.Versions = append(e.Versions, ev)

	return ev, true
}

// RemoveVersion detaches ev and reports whether it was present.
func (e *Extension) RemoveVersion(ev *ExtensionVersion) bool {
	before := len(e.Versions)
	e.Versions = slices.DeleteFunc(e.Versions, func(candidate *ExtensionVersion) bool {
		return candidate == ev
	})

	return len(e.Versions) != before
}

// Locate returns the parents of ev, or false if ev is not part of the manifest.
func (m *Manifest) Locate(ev *ExtensionVersion) (*ApplicationVersion, *Extension, bool) {
	for _, av := range m.ApplicationVersions {
		for _, ext := range av.Extensions {
			if slices.Contains(ext.Versions, ev) {
				return av, ext, true
			}
		}
	}

	return nil, nil, false
}

// LocateExtension returns the application version owning ext.
func (m *Manifest) LocateExtension(ext *Extension) (*ApplicationVersion, bool) {
	for _, av := range m.ApplicationVersions {
		if slices.Contains(av.Extensions, ext) {
			return av, true
		}
	}

	return nil, false
}

// Counts returns the number of application versions, extensions and extension versions.
func (m *Manifest) Counts() (appVersions, extensions, versions int) {
	appVersions = len(m.ApplicationVersions)

	for _, av := range m.ApplicationVersions {
		extensions += len(av.Extensions)

		for _, ext := range av.Extensions {
			versions += len(ext.Versions)
		}
	}

	return appVersions, extensions, versions
}
