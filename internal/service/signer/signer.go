package signer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/oshokin/ext-packager/internal/domain/manifest"
	"github.com/oshokin/ext-packager/internal/logger"
	"github.com/oshokin/ext-packager/internal/service/common"
	"github.com/oshokin/ext-packager/internal/signature"
)

// ErrNoKeyPair is returned when signing is requested without a key pair.
var ErrNoKeyPair = errors.New("no key pair available, cannot sign")

// Workspace is the part of a project the signer works on.
type Workspace interface {
	DistDir() string
	Manifest() *manifest.Manifest
	KeyPair() *signature.KeyPair
}

// ScanReport describes the signature state of a distribution tree.
type ScanReport struct {
	Total    int
	Signed   int
	Verified int
	// Unsigned lists artifacts without a signature file.
	Unsigned []string
	// Invalid lists artifacts whose signature does not verify.
	Invalid []string
	// KeyAvailable is false when no public key could be used for verification.
	KeyAvailable bool
}

// SignReport summarizes a SignAll run. Succeeded counts newly signed artifacts.
type SignReport struct {
	common.Report
	Skipped int
	// Orphans are signed artifacts that no manifest entry refers to.
	Orphans []string
}

// ScanAndVerify counts artifacts, signed artifacts and signatures that verify against the
// workspace's public key. Nothing is modified.
func ScanAndVerify(ctx context.Context, ws Workspace) (*ScanReport, error) {
	artifacts, err := FindArtifacts(ws.DistDir())
	if err != nil {
		return nil, err
	}

	var (
		report = &ScanReport{Total: len(artifacts)}
		kp     = ws.KeyPair()
	)

	report.KeyAvailable = kp != nil && kp.Public != nil

	for _, p := range artifacts {
		if err = ctx.Err(); err != nil {
			return report, err
		}

		sigPath := signaturePathFor(p)
		if !fileExists(sigPath) {
			report.Unsigned = append(report.Unsigned, p)
			continue
		}

		report.Signed++

		if !report.KeyAvailable {
			continue
		}

		ok, verifyErr := signature.VerifyFile(p, sigPath, kp.Public)
		if verifyErr != nil {
			logger.WarnKV(ctx, "Unable to verify signature", "path", p, "error", verifyErr)
		}

		if ok {
			report.Verified++
		} else {
			report.Invalid = append(report.Invalid, p)
		}
	}

	logger.InfoKV(ctx, "Signature scan finished",
		"total", report.Total, "signed", report.Signed, "verified", report.Verified)

	return report, nil
}

// ScanInBackground runs ScanAndVerify on a dedicated worker.
func ScanInBackground(ctx context.Context, ws Workspace) <-chan common.Result[*ScanReport] {
	return common.Go(ctx, "signature-scan", func(ctx context.Context) (*ScanReport, error) {
		return ScanAndVerify(ctx, ws)
	})
}

// SignAll signs the artifacts selected by policy and points the matching manifest entries at
// their new signatures. Per-file failures are reported and skipped.
func SignAll(ctx context.Context, ws Workspace, policy Policy) (*SignReport, error) {
	kp := ws.KeyPair()
	if kp == nil || kp.Private == nil || kp.Public == nil {
		return nil, ErrNoKeyPair
	}

	artifacts, err := FindArtifacts(ws.DistDir())
	if err != nil {
		return nil, err
	}

	var (
		report  = new(SignReport)
		entries = indexEntries(ws.DistDir(), ws.Manifest())
	)

	ctx = logger.WithKV(ctx, "policy", policy.String())

	for _, p := range artifacts {
		if err = ctx.Err(); err != nil {
			return report, err
		}

		sigPath := signaturePathFor(p)

		sign, decideErr := shouldSign(policy, p, sigPath, kp)
		if decideErr != nil {
			report.Fail(p, decideErr)
			continue
		}

		if !sign {
			report.Skipped++
			continue
		}

		if err = os.Remove(sigPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			report.Fail(p, fmt.Errorf("remove stale signature: %w", err))
			continue
		}

		if err = signature.SignFileTo(p, sigPath, kp.Private); err != nil {
			logger.WarnKV(ctx, "Unable to sign artifact", "path", p, "error", err)
			report.Fail(p, err)

			continue
		}

		report.Success()

		ev, ok := entries[p]
		if !ok {
			logger.WarnKV(ctx, "Signed artifact is not referenced by the manifest", "path", p)
			report.Orphans = append(report.Orphans, p)

			continue
		}

		rel, relErr := filepath.Rel(ws.DistDir(), sigPath)
		if relErr != nil {
			report.Fail(p, relErr)
			continue
		}

		ev.SignaturePath = filepath.ToSlash(rel)
	}

	logger.InfoKV(ctx, "Signing finished",
		"signed", report.Succeeded, "skipped", report.Skipped, "failed", report.Failed(), "orphans", len(report.Orphans))

	return report, nil
}

// shouldSign applies the policy to one artifact.
func shouldSign(policy Policy, artifactPath, sigPath string, kp *signature.KeyPair) (bool, error) {
	if !fileExists(sigPath) {
		return true, nil
	}

	switch policy {
	case SignEverything:
		return true, nil
	case SignMissingOrFailed:
		ok, err := signature.VerifyFile(artifactPath, sigPath, kp.Public)
		if err != nil {
			return false, err
		}

		return !ok, nil
	default:
		return false, nil
	}
}

// FindArtifacts lists every artifact under the extension tree of distDir in lexical order.
func FindArtifacts(distDir string) ([]string, error) {
	root := filepath.Join(distDir, manifest.ExtensionsDir)

	var paths []string

	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root && errors.Is(walkErr, fs.ErrNotExist) {
				return filepath.SkipDir
			}

			return walkErr
		}

		if !entry.IsDir() && manifest.IsArtifact(entry.Name()) {
			paths = append(paths, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan extension tree: %w", err)
	}

	slices.Sort(paths)

	return paths, nil
}

// indexEntries maps resolved download paths to their manifest entries.
func indexEntries(distDir string, m *manifest.Manifest) map[string]*manifest.ExtensionVersion {
	index := make(map[string]*manifest.ExtensionVersion)
	if m == nil {
		return index
	}

	m.Walk(manifest.VersionFunc(func(_ *manifest.ApplicationVersion, _ *manifest.Extension, ev *manifest.ExtensionVersion) {
		if p := manifest.ResolvePath(distDir, ev, ev.DownloadPath); p != "" {
			index[p] = ev
		}
	}))

	return index
}

func signaturePathFor(artifactPath string) string {
	return manifest.Basename(artifactPath) + manifest.SignatureExtension
}

func fileExists(p string) bool {
	info, err := os.Stat(p)

	return err == nil && !info.IsDir()
}
