package descriptor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Filename is the well-known entry holding the descriptor inside every artifact.
const Filename = "extInfo.json"

// ErrMalformedDescriptor is returned when a descriptor is present but unparsable or incomplete.
var ErrMalformedDescriptor = errors.New("malformed extension descriptor")

// errNotMajorMinor is returned for versions without at least a major.minor core.
var errNotMajorMinor = errors.New("version must be major.minor[.patch]")

// Descriptor describes an extension's identity and target application.
// It is immutable once parsed.
type Descriptor struct {
	Name             string `json:"name"`
	Version          string `json:"version"`
	ShortDescription string `json:"shortDescription,omitempty"`
	LongDescription  string `json:"longDescription,omitempty"`
	TargetAppName    string `json:"targetAppName,omitempty"`
	TargetAppVersion string `json:"targetAppVersion"`
	Author           string `json:"author,omitempty"`
	AuthorURL        string `json:"authorUrl,omitempty"`
	ProjectURL       string `json:"projectUrl,omitempty"`
	ReleaseNotes     string `json:"releaseNotes,omitempty"`
}

// Validate reports whether the descriptor is well-formed: name, version and target application
// version are non-blank and both versions parse as major.minor[.patch].
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: descriptor is empty", ErrMalformedDescriptor)
	}

	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is blank", ErrMalformedDescriptor)
	}

	if _, err := ParseVersion(d.Version); err != nil {
		return fmt.Errorf("%w: version %q: %w", ErrMalformedDescriptor, d.Version, err)
	}

	if _, err := ParseVersion(d.TargetAppVersion); err != nil {
		return fmt.Errorf("%w: target application version %q: %w", ErrMalformedDescriptor, d.TargetAppVersion, err)
	}

	return nil
}

// ParseVersion parses a major.minor[.patch] version, tolerating a leading "v".
func ParseVersion(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return nil, errNotMajorMinor
	}

	core, _, _ := strings.Cut(version, "-")
	core, _, _ = strings.Cut(core, "+")

	if parts := strings.Split(core, "."); len(parts) < 2 || len(parts) > 3 {
		return nil, errNotMajorMinor
	}

	return semver.NewVersion(version)
}

// CompareVersions orders two version strings semantically. Unparsable versions sort
// before parsable ones and are compared lexically among themselves.
func CompareVersions(a, b string) int {
	av, aErr := ParseVersion(a)
	bv, bErr := ParseVersion(b)

	switch {
	case aErr == nil && bErr == nil:
		return av.Compare(bv)
	case aErr != nil && bErr != nil:
		return strings.Compare(a, b)
	case aErr != nil:
		return -1
	default:
		return 1
	}
}
