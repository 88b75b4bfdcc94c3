package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oshokin/ext-packager/internal/config"
)

// errNotADirectory is returned when the local target path is a file.
var errNotADirectory = errors.New("not a directory")

// LocalTransport publishes into a directory.
type LocalTransport struct {
	// fs is the filesystem holding the base directory.
	fs afero.Fs
	// base is the target directory.
	base string
}

// LocalOption configures a LocalTransport.
type LocalOption func(*LocalTransport)

// WithFs replaces the operating system filesystem.
func WithFs(fsys afero.Fs) LocalOption {
	return func(t *LocalTransport) {
		if fsys != nil {
			t.fs = fsys
		}
	}
}

// NewLocalTransport returns a transport writing under base.
func NewLocalTransport(base string, opts ...LocalOption) *LocalTransport {
	t := &LocalTransport{
		fs:   afero.NewOsFs(),
		base: filepath.Clean(base),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Connect creates the base directory when needed.
func (t *LocalTransport) Connect(_ context.Context) error {
	if err := t.fs.MkdirAll(t.base, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	info, err := t.fs.Stat(t.base)
	if err != nil {
		return fmt.Errorf("stat target directory: %w", err)
	}

	if !info.IsDir() {
		return &fs.PathError{Op: "open", Path: t.base, Err: errNotADirectory}
	}

	return nil
}

// Clean removes the contents of the base directory bottom-up.
func (t *LocalTransport) Clean(ctx context.Context) error {
	return t.purge(ctx, t.base, false)
}

func (t *LocalTransport) purge(ctx context.Context, dir string, removeSelf bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := afero.ReadDir(t.fs, dir)
	if err != nil {
		return &fs.PathError{Op: "readdir", Path: dir, Err: err}
	}

	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if err = t.purge(ctx, p, true); err != nil {
				return err
			}

			continue
		}

		if err = t.fs.Remove(p); err != nil {
			return &fs.PathError{Op: "remove", Path: p, Err: unwrapPathError(err)}
		}
	}

	if !removeSelf {
		return nil
	}

	if err = t.fs.Remove(dir); err != nil {
		return &fs.PathError{Op: "remove", Path: dir, Err: unwrapPathError(err)}
	}

	return nil
}

// MakeDir creates rel under the base directory.
func (t *LocalTransport) MakeDir(_ context.Context, rel string) error {
	p := t.resolve(rel)
	if err := t.fs.MkdirAll(p, config.DefaultDirPermissions); err != nil {
		return &fs.PathError{Op: "mkdir", Path: p, Err: unwrapPathError(err)}
	}

	return nil
}

// Upload writes r to rel under the base directory.
func (t *LocalTransport) Upload(_ context.Context, rel string, r io.Reader) error {
	p := t.resolve(rel)

	if err := t.fs.MkdirAll(filepath.Dir(p), config.DefaultDirPermissions); err != nil {
		return &fs.PathError{Op: "mkdir", Path: filepath.Dir(p), Err: unwrapPathError(err)}
	}

	f, err := t.fs.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.DefaultDistFilePermissions)
	if err != nil {
		return &fs.PathError{Op: "create", Path: p, Err: unwrapPathError(err)}
	}

	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		return &fs.PathError{Op: "write", Path: p, Err: err}
	}

	if err = f.Close(); err != nil {
		return &fs.PathError{Op: "close", Path: p, Err: err}
	}

	return nil
}

// Close is a no-op for local directories.
func (t *LocalTransport) Close() error {
	return nil
}

// Describe returns the base directory.
func (t *LocalTransport) Describe() string {
	return t.base
}

func (t *LocalTransport) resolve(rel string) string {
	return filepath.Join(t.base, filepath.FromSlash(path.Clean("/"+rel)))
}

// unwrapPathError strips an inner PathError so the outer one carries the path once.
func unwrapPathError(err error) error {
	if pathErr, ok := err.(*fs.PathError); ok { //nolint:errorlint // Only the direct wrapper is stripped.
		return pathErr.Err
	}

	return err
}
