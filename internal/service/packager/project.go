package packager

import (
	"context"
	"strings"

	"github.com/oshokin/ext-packager/internal/service/common"
	"github.com/oshokin/ext-packager/internal/logger"
	"github.com/oshokin/ext-packager/internal/service/project"
	"github.com/oshokin/ext-packager/internal/service/signer"
)

// CreateProject creates a project in dir and makes it the default for later commands.
func (s *Session) CreateProject(ctx context.Context, dir, name, applicationName string) (*project.Project, error) {
	p, err := s.manager.Create(ctx, dir, name, applicationName)
	if err != nil {
		return nil, err
	}

	s.projectFile = p.File()
	s.printf("Created project %s for %s in %s", p.Name(), p.ApplicationName(), p.Dir())

	return p, nil
}

// Info prints the catalog, key and target state of the project.
func (s *Session) Info(ctx context.Context) error {
	p, err := s.Project(ctx)
	if err != nil {
		return err
	}

	scan, err := common.Wait(ctx, signer.ScanInBackground(ctx, p))
	if err != nil {
		return err
	}

	appVersions, extensions, versions := p.Manifest().Counts()

	s.printf("Project:     %s", p.Name())
	s.printf("Application: %s", p.ApplicationName())
	s.printf("Directory:   %s", p.Dir())
	s.printf("Catalog:     %d application versions, %d extensions, %d extension versions",
		appVersions, extensions, versions)

	for _, av := range p.Manifest().SortedApplicationVersions() {
		s.printf("  %s", av.Version)

		for _, ext := range av.Extensions {
			labels := make([]string, 0, len(ext.Versions))
			for _, ev := range ext.Versions {
				labels = append(labels, ev.ExtInfo.Version)
			}

			s.printf("    %s: %s", ext.Name, strings.Join(labels, ", "))
		}
	}

	if p.KeyPair() == nil {
		s.printf("Signing:     no key pair, run \"keys generate\"")
	} else {
		s.printf("Signing:     key pair present")
	}

	s.printf("Artifacts:   %d total, %d signed, %d verified", scan.Total, scan.Signed, scan.Verified)

	if len(p.Targets().Targets) == 0 {
		s.printf("Targets:     none")
	}

	for _, t := range p.Targets().Targets {
		s.printf("Target:      %s -> %s", t.Name, t.BaseURL)
	}

	logger.DebugKV(ctx, "Project info printed", "project", p.Name())

	return nil
}
