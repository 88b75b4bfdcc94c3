package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/go-ps"
	"golang.org/x/sync/semaphore"

	"github.com/oshokin/ext-packager/internal/config"
	"github.com/oshokin/ext-packager/internal/logger"
	"github.com/oshokin/ext-packager/internal/service/common"
)

// MarkerFilename marks a running publish inside the project directory, so a second process
// publishing the same project is rejected.
const MarkerFilename = ".publish.lock"

// Result is the outcome of a publish started by a Publisher.
type Result struct {
	// ID identifies the operation in logs.
	ID      string
	Summary *Summary
}

// Publisher runs publishes of one project, one at a time.
type Publisher struct {
	// sem admits a single in-flight publish within this process.
	sem *semaphore.Weighted
	// markerPath guards against publishes from other processes.
	markerPath string
}

// NewPublisher returns a publisher for the project stored in projectDir.
func NewPublisher(projectDir string) *Publisher {
	return &Publisher{
		sem:        semaphore.NewWeighted(1),
		markerPath: filepath.Join(projectDir, MarkerFilename),
	}
}

// Start runs engine on a dedicated worker. A second call while a publish is in flight fails
// with ErrPublishInProgress instead of queueing.
func (p *Publisher) Start(ctx context.Context, engine *Engine) (<-chan common.Result[*Result], error) {
	if !p.sem.TryAcquire(1) {
		return nil, ErrPublishInProgress
	}

	if err := p.acquireMarker(ctx); err != nil {
		p.sem.Release(1)
		return nil, err
	}

	id := uuid.NewString()
	ctx = logger.WithKV(ctx, "publish_id", id)

	if actor, err := common.DetectActor(); err == nil {
		ctx = logger.WithKV(ctx, "actor", actor.String())
	}

	logger.Info(ctx, "Publish started")

	results := common.Go(ctx, "publish", func(ctx context.Context) (*Result, error) {
		defer p.sem.Release(1)
		defer p.releaseMarker(ctx)

		summary, err := engine.Run(ctx)
		if err != nil {
			return nil, err
		}

		return &Result{ID: id, Summary: summary}, nil
	})

	return results, nil
}

// Publish starts a publish and waits for its result.
func (p *Publisher) Publish(ctx context.Context, engine *Engine) (*Result, error) {
	results, err := p.Start(ctx, engine)
	if err != nil {
		return nil, err
	}

	return common.Wait(ctx, results)
}

// acquireMarker writes the marker file. An existing marker whose process is gone is stale
// and replaced; a marker naming a live process, this one included, blocks the publish.
func (p *Publisher) acquireMarker(ctx context.Context) error {
	if pid, ok := readMarker(p.markerPath); ok {
		if processAlive(pid) {
			return fmt.Errorf("%w: process %d holds %s", ErrPublishInProgress, pid, p.markerPath)
		}

		logger.InfoKV(ctx, "Removing stale publish marker", "path", p.markerPath, "pid", pid)

		if err := os.Remove(p.markerPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale publish marker: %w", err)
		}
	}

	f, err := os.OpenFile(p.markerPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrPublishInProgress
		}

		return fmt.Errorf("create publish marker: %w", err)
	}

	if _, err = f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = f.Close()
		return fmt.Errorf("write publish marker: %w", err)
	}

	return f.Close()
}

func (p *Publisher) releaseMarker(ctx context.Context) {
	if err := os.Remove(p.markerPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove publish marker", "path", p.markerPath, "error", err)
	}
}

// readMarker returns the process id recorded in the marker. Unreadable markers report pid 0.
func readMarker(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, true
	}

	return pid, true
}

// processAlive reports whether a process with the given id is running.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := ps.FindProcess(pid)

	return err == nil && process != nil
}
