// Package common holds helpers shared by several services.
//
// It provides file helpers that copy or atomically replace distribution files, a small
// background worker, batch reports and detection of the current system actor for audit logs.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
