// Package manifest holds the in-memory distribution manifest:
// Manifest -> ApplicationVersion -> Extension -> ExtensionVersion.
//
// Lookups are find-or-create by key and keep insertion order. Paths stored on
// extension versions are relative to the distribution root and are turned into
// filesystem paths only through ResolvePath.
package manifest
