// Package merge ingests extension artifacts into the distribution manifest.
//
// Imports are idempotent find-or-create operations that also copy the artifact, its detached
// signature and its screenshots into the distribution tree. Removals cascade through the
// manifest and delete the corresponding files on a best-effort basis.
package merge
