// Package manifest implements persistence for the distribution manifest.
//
// The FileRepository stores and loads the manifest as indented JSON on disk and exposes a
// Repository interface that the project and publish services depend on.
package manifest
