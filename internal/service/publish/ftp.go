package publish

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"go.uber.org/multierr"

	"github.com/oshokin/ext-packager/internal/config"
	"github.com/oshokin/ext-packager/internal/repository/target"
)

// defaultFTPPort is appended to hosts given without a port.
const defaultFTPPort = "21"

// ftpConn is the subset of *ftp.ServerConn used by the transport.
type ftpConn interface {
	Login(user, password string) error
	Type(transferType ftp.TransferType) error
	List(path string) ([]*ftp.Entry, error)
	Delete(path string) error
	RemoveDir(path string) error
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Logout() error
	Quit() error
}

// dialFunc opens a control connection to addr.
type dialFunc func(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error)

// FTPTransport publishes into a directory on an FTP server.
// The connection is owned by the transport and never shared.
type FTPTransport struct {
	params  target.RemoteParams
	base    string
	timeout time.Duration
	dial    dialFunc
	conn    ftpConn
	// dirs caches remote directories known to exist.
	dirs map[string]struct{}
}

// FTPOption configures an FTPTransport.
type FTPOption func(*FTPTransport)

// WithTimeout bounds dialing and each command.
func WithTimeout(timeout time.Duration) FTPOption {
	return func(t *FTPTransport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// withDialer replaces the network dialer.
func withDialer(dial dialFunc) FTPOption {
	return func(t *FTPTransport) {
		t.dial = dial
	}
}

// NewFTPTransport returns a transport for the given remote parameters.
func NewFTPTransport(params *target.RemoteParams, opts ...FTPOption) *FTPTransport {
	base := path.Clean("/" + strings.TrimSpace(params.TargetDir))

	t := &FTPTransport{
		params:  *params,
		base:    base,
		timeout: config.DefaultFTPTimeout,
		dial:    dialServer,
		dirs:    make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func dialServer(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// Connect dials the server, logs in, switches to binary transfers and creates the base
// directory when it does not exist yet.
func (t *FTPTransport) Connect(ctx context.Context) error {
	if err := t.params.Validate(); err != nil {
		return err
	}

	addr := t.params.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultFTPPort)
	}

	conn, err := t.dial(ctx, addr, t.timeout)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}

	if err = conn.Login(t.params.Username, t.params.Password); err != nil {
		_ = conn.Quit()
		return fmt.Errorf("login to %s as %s: %w", addr, t.params.Username, err)
	}

	t.conn = conn

	if err = conn.Type(ftp.TransferTypeBinary); err != nil {
		return fmt.Errorf("switch to binary mode: %w", err)
	}

	t.dirs = make(map[string]struct{})

	return t.ensureDir(t.base)
}

// Clean deletes files and directories below the base directory, children first.
func (t *FTPTransport) Clean(ctx context.Context) error {
	if err := t.purge(ctx, t.base); err != nil {
		return err
	}

	t.dirs = map[string]struct{}{t.base: {}}

	return nil
}

func (t *FTPTransport) purge(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := t.conn.List(dir)
	if err != nil {
		return &fs.PathError{Op: "list", Path: dir, Err: err}
	}

	for _, entry := range entries {
		name := path.Base(entry.Name)
		if name == "." || name == ".." || name == "/" {
			continue
		}

		p := path.Join(dir, name)

		if entry.Type == ftp.EntryTypeFolder {
			if err = t.purge(ctx, p); err != nil {
				return err
			}

			if err = t.conn.RemoveDir(p); err != nil {
				return &fs.PathError{Op: "rmdir", Path: p, Err: err}
			}

			continue
		}

		if err = t.conn.Delete(p); err != nil {
			return &fs.PathError{Op: "delete", Path: p, Err: err}
		}
	}

	return nil
}

// MakeDir creates rel and its parents below the base directory.
func (t *FTPTransport) MakeDir(_ context.Context, rel string) error {
	return t.ensureDir(t.resolve(rel))
}

// Upload stores r at rel, creating missing parents first.
func (t *FTPTransport) Upload(ctx context.Context, rel string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p := t.resolve(rel)
	if err := t.ensureDir(path.Dir(p)); err != nil {
		return err
	}

	if err := t.conn.Stor(p, r); err != nil {
		return &fs.PathError{Op: "stor", Path: p, Err: err}
	}

	return nil
}

func (t *FTPTransport) ensureDir(dir string) error {
	if _, ok := t.dirs[dir]; ok || dir == "/" {
		return nil
	}

	if err := t.ensureDir(path.Dir(dir)); err != nil {
		return err
	}

	if err := t.conn.MakeDir(dir); err != nil {
		// The directory may already exist; listing it proves that.
		if _, listErr := t.conn.List(dir); listErr != nil {
			return &fs.PathError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	t.dirs[dir] = struct{}{}

	return nil
}

// Close logs out and disconnects. Both steps run even if the first fails.
func (t *FTPTransport) Close() error {
	if t.conn == nil {
		return nil
	}

	conn := t.conn
	t.conn = nil

	return multierr.Combine(conn.Logout(), conn.Quit())
}

// Describe returns host and base directory.
func (t *FTPTransport) Describe() string {
	return "ftp://" + t.params.Host + t.base
}

func (t *FTPTransport) resolve(rel string) string {
	return path.Join(t.base, path.Clean("/"+rel))
}
