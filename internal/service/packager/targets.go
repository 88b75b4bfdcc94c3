package packager

import (
	"context"
	"fmt"

	"github.com/oshokin/ext-packager/internal/repository/target"
	"github.com/oshokin/ext-packager/internal/service/project"
)

// AddTarget registers a distribution target.
func (s *Session) AddTarget(ctx context.Context, t *target.Target) error {
	if _, err := s.Project(ctx); err != nil {
		return err
	}

	err := s.manager.Edit(ctx, func(p *project.Project) error {
		return p.Targets().Add(t)
	})
	if err != nil {
		return err
	}

	s.printf("Added target %s -> %s", t.Name, t.BaseURL)

	return nil
}

// RemoveTarget unregisters a target and forgets its remote parameters.
func (s *Session) RemoveTarget(ctx context.Context, name string) error {
	if _, err := s.Project(ctx); err != nil {
		return err
	}

	err := s.manager.Edit(ctx, func(p *project.Project) error {
		if err := p.Targets().Remove(name); err != nil {
			return err
		}

		return target.RemoveParams(p.Dir(), name)
	})
	if err != nil {
		return err
	}

	s.printf("Removed target %s", name)

	return nil
}

// ListTargets prints every target and whether remote parameters are stored for it.
func (s *Session) ListTargets(ctx context.Context) ([]*target.Target, error) {
	p, err := s.Project(ctx)
	if err != nil {
		return nil, err
	}

	targets := p.Targets().Targets
	if len(targets) == 0 {
		s.printf("No targets, add one with \"target add\"")
	}

	for _, t := range targets {
		kind := "local"

		if !t.IsLocal() {
			kind = "remote, parameters missing"
			if target.ParamsExist(p.Dir(), t.Name) {
				kind = "remote"
			}
		}

		s.printf("%s\t%s\t%s (%s)", t.Name, t.BaseURL, t.ManifestPath, kind)
	}

	return targets, nil
}

// SetRemoteParams stores the connection parameters of a remote target.
func (s *Session) SetRemoteParams(ctx context.Context, name string, params *target.RemoteParams) error {
	p, err := s.Project(ctx)
	if err != nil {
		return err
	}

	if p.Targets().Find(name) == nil {
		return fmt.Errorf("%w: %s", target.ErrTargetNotFound, name)
	}

	if err = params.Validate(); err != nil {
		return err
	}

	if err = target.SaveParams(p.Dir(), name, params); err != nil {
		return err
	}

	s.printf("Saved remote parameters of %s to %s", name, target.ParamsPath(p.Dir(), name))

	return nil
}
