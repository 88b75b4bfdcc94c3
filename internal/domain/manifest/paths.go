package manifest

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	// ExtensionsDir is the top-level directory of the extension tree under the distribution root.
	ExtensionsDir = "extensions"
	// ArtifactExtension is the file extension of extension artifacts.
	ArtifactExtension = ".jar"
	// SignatureExtension replaces the artifact extension for detached signatures.
	SignatureExtension = ".sig"
)

// screenshotExtensions lists image types accepted as screenshots, lower case.
//
//nolint:gochecknoglobals // Read-only lookup table.
var screenshotExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
}

// VersionDir returns the relative directory holding the artifacts of one application version.
func VersionDir(appVersion string) string {
	return path.Join(ExtensionsDir, appVersion)
}

// RelativePath returns the slash-separated path of filename inside the version directory.
func RelativePath(appVersion, filename string) string {
	return path.Join(ExtensionsDir, appVersion, filename)
}

// ResolvePath turns a stored relative path into an absolute path under root. A bare filename
// belonging to ev is placed in the version directory of ev's target application version.
// The result never escapes root.
func ResolvePath(root string, ev *ExtensionVersion, rel string) string {
	if rel == "" {
		return ""
	}

	rel = filepath.ToSlash(rel)
	if ev != nil && ev.ExtInfo != nil && !strings.Contains(rel, "/") {
		rel = RelativePath(ev.ExtInfo.TargetAppVersion, rel)
	}

	return filepath.Join(root, filepath.FromSlash(path.Clean("/" + rel)))
}

// Basename returns name without its last extension: "a/b/c.tar.gz" becomes "a/b/c.tar".
// Dots in directory components are never treated as an extension.
func Basename(name string) string {
	if strings.TrimSpace(name) == "" {
		return name
	}

	return strings.TrimSuffix(name, filepath.Ext(name))
}

// SignatureName returns the sibling signature filename for an artifact.
func SignatureName(artifactName string) string {
	return Basename(artifactName) + SignatureExtension
}

// IsArtifact reports whether name has the artifact extension.
func IsArtifact(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ArtifactExtension)
}

// IsScreenshotFor reports whether candidate is a screenshot of the artifact: it must be named
// "<basename>_<anything>.<jpg|jpeg|png|gif>". The basename match is case-sensitive, the image
// extension match is not.
func IsScreenshotFor(artifactName, candidate string) bool {
	prefix := filepath.Base(Basename(artifactName)) + "_"
	candidate = filepath.Base(candidate)

	if !strings.HasPrefix(candidate, prefix) || len(candidate) <= len(prefix) {
		return false
	}

	return IsImage(candidate)
}

// IsImage reports whether name has an image extension accepted for screenshots.
func IsImage(name string) bool {
	_, ok := screenshotExtensions[strings.ToLower(filepath.Ext(name))]

	return ok
}
