package packager

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/ext-packager/internal/service/project"
	"github.com/oshokin/ext-packager/internal/service/signer"
)

// errInvalidSignatures is returned by Verify when a signature does not match its artifact.
var errInvalidSignatures = errors.New("invalid signatures found")

// GenerateKeys creates the signing key pair. An existing pair is only replaced with force.
func (s *Session) GenerateKeys(ctx context.Context, force bool) error {
	p, err := s.Project(ctx)
	if err != nil {
		return err
	}

	if _, err = p.RegenerateKeyPair(ctx, force); err != nil {
		if errors.Is(err, project.ErrConfirmationRequired) {
			return fmt.Errorf("%w (use --force)", err)
		}

		return err
	}

	s.printf("Generated key pair, public key at %s", p.PublicKeyPath())

	if force {
		s.printf("Existing signatures no longer verify, run \"sign --policy everything\"")
	}

	return nil
}

// Sign signs the artifacts of the distribution tree according to policy. An empty policy
// uses the configured default.
func (s *Session) Sign(ctx context.Context, policy string) (*signer.SignReport, error) {
	if policy == "" {
		policy = s.cfg.SigningPolicy
	}

	parsed, err := signer.ParsePolicy(policy)
	if err != nil {
		return nil, err
	}

	if _, err = s.Project(ctx); err != nil {
		return nil, err
	}

	var report *signer.SignReport

	err = s.manager.Edit(ctx, func(p *project.Project) error {
		var signErr error

		report, signErr = signer.SignAll(ctx, p, parsed)

		return signErr
	})
	if err != nil {
		return report, err
	}

	s.printf("Skipped %d already signed artifacts", report.Skipped)

	for _, orphan := range report.Orphans {
		s.printf("  not in catalog: %s", orphan)
	}

	return report, s.summarize("Signed", &report.Report)
}

// Verify checks every signature against the public key without changing anything.
func (s *Session) Verify(ctx context.Context) (*signer.ScanReport, error) {
	p, err := s.Project(ctx)
	if err != nil {
		return nil, err
	}

	report, err := signer.ScanAndVerify(ctx, p)
	if err != nil {
		return nil, err
	}

	s.printf("Artifacts: %d total, %d signed, %d verified", report.Total, report.Signed, report.Verified)

	if !report.KeyAvailable {
		s.printf("No public key, signatures were not verified")
	}

	for _, path := range report.Unsigned {
		s.printf("  unsigned: %s", path)
	}

	for _, path := range report.Invalid {
		s.printf("  invalid:  %s", path)
	}

	if len(report.Invalid) > 0 {
		return report, fmt.Errorf("%w: %d", errInvalidSignatures, len(report.Invalid))
	}

	return report, nil
}
