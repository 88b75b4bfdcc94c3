// Package project manages packaging projects on disk and the application context around the
// currently open project.
//
// A Project bundles the manifest, the signing key pair and the distribution targets stored in
// one directory. The Manager owns the single open Project, serializes edits, coalesces saves
// and notifies subscribers about load, save and close events.
package project
