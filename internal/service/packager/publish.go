package packager

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/ext-packager/internal/logger"
	manifestrepo "github.com/oshokin/ext-packager/internal/repository/manifest"
	"github.com/oshokin/ext-packager/internal/repository/target"
	"github.com/oshokin/ext-packager/internal/service/project"
	"github.com/oshokin/ext-packager/internal/service/publish"
)

// PublishOptions select the target and the publish behavior.
type PublishOptions struct {
	// Target is the target name.
	Target string
	// Clean purges the target before uploading.
	Clean bool
	// PublishKey requires the public key to be present and published.
	PublishKey bool
}

// Publish writes pending edits and mirrors the distribution tree to a target.
func (s *Session) Publish(ctx context.Context, opts *PublishOptions) (*publish.Result, error) {
	p, err := s.Project(ctx)
	if err != nil {
		return nil, err
	}

	t := p.Targets().Find(opts.Target)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", target.ErrTargetNotFound, opts.Target)
	}

	if err = s.manager.Save(ctx); err != nil {
		return nil, fmt.Errorf("save project before publish: %w", err)
	}

	transport, err := publish.TransportFor(t, p.Dir(), s.cfg.FTPTimeout)
	if err != nil {
		return nil, err
	}

	publisher, err := s.manager.Publisher()
	if err != nil {
		return nil, err
	}

	engine := publish.NewEngine(transport, publish.Options{
		DistDir:             p.DistDir(),
		ManifestPath:        manifestrepo.Filename,
		PublicKeyPath:       project.PublicKeyFilename,
		RemoteManifestPath:  t.ManifestPath,
		RemotePublicKeyPath: t.PublicKeyPath,
		PublishPublicKey:    opts.PublishKey,
		Clean:               opts.Clean,
	},
		publish.WithProgress(s.progress),
		publish.WithStamp(func(ctx context.Context, at time.Time) error {
			return s.manager.Edit(ctx, func(p *project.Project) error {
				return p.Stamp(ctx, at)
			})
		}),
	)

	ctx = logger.WithFields(ctx, "target", t.Name, "destination", transport.Describe())
	s.printf("Publishing %s to %s", p.Name(), transport.Describe())

	result, err := publisher.Publish(ctx, engine)
	if err != nil {
		return nil, err
	}

	s.printf("Published %d files in %d directories in %s (id %s)",
		result.Summary.Files, result.Summary.Dirs, result.Summary.Duration.Round(time.Millisecond), result.ID)

	return result, nil
}

// progress renders publish state changes. It runs on the publish worker while the session waits.
func (s *Session) progress(state publish.State) {
	switch state.Stage {
	case publish.StageUploading:
		s.printf("  %s %d/%d", state.Stage, state.Step, state.Total)
	case publish.StageFailed:
		s.printf("  %v", state.Failure)
	default:
		if state.Stage != s.lastStage {
			s.printf("  %s", state.Stage)
		}
	}

	s.lastStage = state.Stage
}
