// Package version exposes build metadata for ext-packager.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds. Generator
// renders the identifier stamped into published manifests.
package version
