package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/ext-packager/internal/domain/manifest"
	"github.com/oshokin/ext-packager/internal/logger"
	manifestrepo "github.com/oshokin/ext-packager/internal/repository/manifest"
	"github.com/oshokin/ext-packager/internal/repository/target"
	"github.com/oshokin/ext-packager/internal/version"
)

// fixedSteps are the upload units besides the top-level version directories:
// public key, manifest and the files at the root of the extension tree.
const fixedSteps = 3

// StampFunc records the generation time in the manifest document before it is uploaded.
type StampFunc func(ctx context.Context, at time.Time) error

// Options describe what to publish.
type Options struct {
	// DistDir is the local distribution root.
	DistDir string
	// ManifestPath is the manifest location relative to DistDir.
	ManifestPath string
	// PublicKeyPath is the public key location relative to DistDir.
	PublicKeyPath string
	// RemoteManifestPath and RemotePublicKeyPath override the destination names.
	RemoteManifestPath  string
	RemotePublicKeyPath string
	// PublishPublicKey requires the public key to exist. A present key is always uploaded.
	PublishPublicKey bool
	// Clean purges the target before uploading.
	Clean bool
}

// Summary describes a finished publish.
type Summary struct {
	Files    int
	Dirs     int
	Duration time.Duration
}

// Engine runs one publish through the state machine.
type Engine struct {
	transport Transport
	opts      Options
	stamp     StampFunc
	progress  func(State)
	now       func() time.Time

	mu    sync.Mutex
	state State
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithProgress registers a callback receiving every state change.
func WithProgress(fn func(State)) EngineOption {
	return func(e *Engine) {
		e.progress = fn
	}
}

// WithStamp replaces the default stamping of the manifest document on disk.
func WithStamp(fn StampFunc) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.stamp = fn
		}
	}
}

// withClock replaces time.Now.
func withClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine prepares a publish of opts through transport.
func NewEngine(transport Transport, opts Options, engineOpts ...EngineOption) *Engine {
	if opts.ManifestPath == "" {
		opts.ManifestPath = manifestrepo.Filename
	}

	if opts.PublicKeyPath == "" {
		opts.PublicKeyPath = target.DefaultPublicKeyPath
	}

	if opts.RemoteManifestPath == "" {
		opts.RemoteManifestPath = opts.ManifestPath
	}

	if opts.RemotePublicKeyPath == "" {
		opts.RemotePublicKeyPath = opts.PublicKeyPath
	}

	e := &Engine{
		transport: transport,
		opts:      opts,
		now:       time.Now,
	}
	e.stamp = e.stampOnDisk

	for _, opt := range engineOpts {
		opt(e)
	}

	return e
}

// State returns the latest state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// plan is the validated local input of a publish.
type plan struct {
	manifestPath  string
	publicKeyPath string
	extensionsDir string
	topDirs       []string
}

// Run executes the publish. The transport is closed on every exit path.
func (e *Engine) Run(ctx context.Context) (summary *Summary, err error) {
	started := e.now()
	ctx = logger.WithKV(ctx, "target", e.transport.Describe())

	defer func() {
		if closeErr := e.transport.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Unable to close transport", "error", closeErr)
		}
	}()

	e.set(State{Stage: StageValidating})

	p, err := e.preflight()
	if err != nil {
		return nil, e.fail(ctx, StageValidating, failedPath(err, e.opts.DistDir), err)
	}

	total := fixedSteps + len(p.topDirs)
	e.set(State{Stage: StageValidating, Total: total})

	if err = e.transport.Connect(ctx); err != nil {
		return nil, e.fail(ctx, StageValidating, failedPath(err, e.transport.Describe()), err)
	}

	if e.opts.Clean {
		e.set(State{Stage: StageCleaning, Total: total})
		logger.Info(ctx, "Cleaning target")

		if err = e.transport.Clean(ctx); err != nil {
			return nil, e.fail(ctx, StageCleaning, failedPath(err, e.transport.Describe()), err)
		}
	}

	summary = new(Summary)
	u := &uploader{engine: e, summary: summary, total: total}

	if err = u.run(ctx, p); err != nil {
		return nil, e.fail(ctx, StageUploading, failedPath(err, ""), err)
	}

	summary.Duration = e.now().Sub(started)
	e.set(State{Stage: StageComplete, Step: total, Total: total})
	logger.InfoKV(ctx, "Publish complete", "files", summary.Files, "dirs", summary.Dirs, "duration", summary.Duration)

	return summary, nil
}

// preflight confirms every required local input exists before anything destructive happens.
func (e *Engine) preflight() (*plan, error) {
	root := filepath.Clean(e.opts.DistDir)
	if err := requireDir(root); err != nil {
		return nil, err
	}

	p := &plan{
		manifestPath:  filepath.Join(root, filepath.FromSlash(e.opts.ManifestPath)),
		publicKeyPath: filepath.Join(root, filepath.FromSlash(e.opts.PublicKeyPath)),
		extensionsDir: filepath.Join(root, manifest.ExtensionsDir),
	}

	if err := requireReadable(p.manifestPath); err != nil {
		return nil, err
	}

	if err := requireDir(p.extensionsDir); err != nil {
		return nil, err
	}

	if e.opts.PublishPublicKey {
		if err := requireReadable(p.publicKeyPath); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(p.publicKeyPath); err != nil {
		p.publicKeyPath = ""
	}

	entries, err := os.ReadDir(p.extensionsDir)
	if err != nil {
		return nil, preflightError(p.extensionsDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			p.topDirs = append(p.topDirs, entry.Name())
		}
	}

	return p, nil
}

func requireDir(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return preflightError(p, err)
	}

	if !info.IsDir() {
		return preflightError(p, errNotADirectory)
	}

	return nil
}

func requireReadable(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return preflightError(p, err)
	}

	return f.Close()
}

func preflightError(p string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}

	return &fs.PathError{Op: "preflight", Path: p, Err: fmt.Errorf("%w: %w", ErrPreflightFailed, err)}
}

// stampOnDisk sets the generation time and generator of the manifest document.
func (e *Engine) stampOnDisk(ctx context.Context, at time.Time) error {
	repo := manifestrepo.NewFileRepository(filepath.Join(e.opts.DistDir, filepath.FromSlash(e.opts.ManifestPath)))

	m, err := repo.Load(ctx)
	if err != nil {
		return err
	}

	at = at.UTC()
	m.ManifestGenerated = &at
	m.Generator = version.Generator()

	return repo.Save(ctx, m)
}

func (e *Engine) set(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()

	if e.progress != nil {
		e.progress(s)
	}
}

func (e *Engine) fail(ctx context.Context, stage Stage, p string, err error) error {
	failure := &Failure{Stage: stage, Path: p, Err: err}

	current := e.State()
	e.set(State{Stage: StageFailed, Step: current.Step, Total: current.Total, Failure: failure})
	logger.ErrorKV(ctx, "Publish failed", "stage", stage.String(), "path", p, "error", err)

	return failure
}

// uploader copies the local tree in the documented order.
type uploader struct {
	engine  *Engine
	summary *Summary
	step    int
	total   int
}

func (u *uploader) run(ctx context.Context, p *plan) error {
	u.advance(0)

	if p.publicKeyPath != "" {
		if err := u.uploadFile(ctx, p.publicKeyPath, u.engine.opts.RemotePublicKeyPath); err != nil {
			return err
		}
	}

	u.advance(1)

	if err := u.engine.stamp(ctx, u.engine.now()); err != nil {
		return &fs.PathError{Op: "stamp", Path: p.manifestPath, Err: err}
	}

	if err := u.uploadFile(ctx, p.manifestPath, u.engine.opts.RemoteManifestPath); err != nil {
		return err
	}

	u.advance(1)

	if err := u.uploadTree(ctx, p.extensionsDir, manifest.ExtensionsDir, false); err != nil {
		return err
	}

	u.advance(1)

	for _, dir := range p.topDirs {
		local := filepath.Join(p.extensionsDir, dir)
		if err := u.uploadTree(ctx, local, path.Join(manifest.ExtensionsDir, dir), true); err != nil {
			return err
		}

		u.advance(1)
	}

	return nil
}

// uploadTree creates remote and copies the files of local into it. Subdirectories are only
// followed when recurse is set.
func (u *uploader) uploadTree(ctx context.Context, local, remote string, recurse bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := u.engine.transport.MakeDir(ctx, remote); err != nil {
		return err
	}

	u.summary.Dirs++

	entries, err := os.ReadDir(local)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		localPath := filepath.Join(local, entry.Name())
		remotePath := path.Join(remote, entry.Name())

		if entry.IsDir() {
			if !recurse {
				continue
			}

			if err = u.uploadTree(ctx, localPath, remotePath, true); err != nil {
				return err
			}

			continue
		}

		if err = u.uploadFile(ctx, localPath, remotePath); err != nil {
			return err
		}
	}

	return nil
}

func (u *uploader) uploadFile(ctx context.Context, local, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(local)
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	if err = u.engine.transport.Upload(ctx, remote, f); err != nil {
		return err
	}

	u.summary.Files++
	logger.DebugKV(ctx, "Uploaded file", "path", remote)

	return nil
}

func (u *uploader) advance(n int) {
	u.step += n
	u.engine.set(State{Stage: StageUploading, Step: u.step, Total: u.total})
}
