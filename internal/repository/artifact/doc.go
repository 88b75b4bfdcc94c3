// Package artifact reads extension artifacts from disk.
//
// An artifact is a zip bundle carrying an extInfo.json descriptor at its root. Reading never
// modifies the artifact.
package artifact
