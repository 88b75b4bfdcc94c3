package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/ext-packager/internal/config"
	"github.com/oshokin/ext-packager/internal/logger"
	"github.com/oshokin/ext-packager/internal/service/project"
	"github.com/oshokin/ext-packager/internal/service/publish"
)

// Options contains inputs shared by every workflow.
type Options struct {
	// ConfigPath is the settings file; empty means config.DefaultConfigFilename.
	ConfigPath string
	// ProjectFile is the project to work on; empty means the project used last.
	ProjectFile string
	// LogLevel overrides the configured level when set.
	LogLevel string
	// Out receives summaries; nil means standard output.
	Out io.Writer
}

// errProjectRequired is returned when no project was named and none was used before.
var errProjectRequired = errors.New("no project given, use --project or create one with \"project new\"")

// Session is one command invocation against the settings and, usually, a project.
type Session struct {
	cfg         *config.Config
	cfgPath     string
	projectFile string
	manager     *project.Manager
	out         io.Writer
	lastStage   publish.Stage
}

// Start loads the settings and prepares a session. The project is opened lazily.
func Start(ctx context.Context, opts *Options) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	logger.SetLevel(level)

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	s := &Session{
		cfg:         cfg,
		cfgPath:     opts.ConfigPath,
		projectFile: opts.ProjectFile,
		manager:     project.NewManager(cfg),
		out:         out,
	}

	s.manager.Subscribe(project.EventSaved, func(ctx context.Context, _ project.Event, p *project.Project) {
		logger.DebugKV(ctx, "Project written", "file", p.File())
	})

	logger.DebugKV(ctx, "Session started", "config", opts.ConfigPath, "log_level", cfg.LogLevel)

	return s, nil
}

// Config returns the loaded settings.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Manager returns the application context of the session.
func (s *Session) Manager() *project.Manager {
	return s.manager
}

// Close flushes pending project writes and persists the settings.
func (s *Session) Close(ctx context.Context) error {
	err := s.manager.Shutdown(ctx)

	if saveErr := config.Save(s.cfgPath, s.cfg); saveErr != nil {
		logger.ErrorKV(ctx, "Unable to save settings", "path", s.cfgPath, "error", saveErr)

		if err == nil {
			err = fmt.Errorf("save settings: %w", saveErr)
		}
	}

	return err
}

// Project returns the open project, opening the requested or last used one on first use.
func (s *Session) Project(ctx context.Context) (*project.Project, error) {
	if p, err := s.manager.Current(); err == nil {
		return p, nil
	}

	file := s.projectFile
	if file == "" {
		file = s.cfg.LastProject
	}

	if file == "" {
		return nil, errProjectRequired
	}

	p, err := s.manager.Open(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("open project %s: %w", file, err)
	}

	return p, nil
}

// printf writes a line of human output. Write errors to the terminal are not actionable.
func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}
