package publish

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/ext-packager/internal/service/common"
)

// blockingTransport waits in Connect until released.
type blockingTransport struct {
	*LocalTransport
	entered chan struct{}
	release chan struct{}
}

func (b *blockingTransport) Connect(ctx context.Context) error {
	close(b.entered)
	<-b.release

	return b.LocalTransport.Connect(ctx)
}

// TestPublisher_RejectsConcurrentPublish refuses a second publish while one is in flight.
func TestPublisher_RejectsConcurrentPublish(t *testing.T) {
	t.Parallel()

	var (
		ctx        = context.Background()
		projectDir = t.TempDir()
		dist       = distFixture(t, false)
		publisher  = NewPublisher(projectDir)
		blocking   = &blockingTransport{
			LocalTransport: NewLocalTransport("/target", WithFs(afero.NewMemMapFs())),
			entered:        make(chan struct{}),
			release:        make(chan struct{}),
		}
	)

	results, err := publisher.Start(ctx, NewEngine(blocking, Options{DistDir: dist}))
	require.NoError(t, err)

	<-blocking.entered

	_, err = publisher.Start(ctx, NewEngine(NewLocalTransport("/other", WithFs(afero.NewMemMapFs())), Options{DistDir: dist}))
	require.ErrorIs(t, err, ErrPublishInProgress)

	_, err = os.Stat(filepath.Join(projectDir, MarkerFilename))
	require.NoError(t, err)

	close(blocking.release)

	result, err := common.Wait(ctx, results)
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	require.Positive(t, result.Summary.Files)

	_, err = os.Stat(filepath.Join(projectDir, MarkerFilename))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = publisher.Publish(ctx, NewEngine(NewLocalTransport("/again", WithFs(afero.NewMemMapFs())), Options{DistDir: dist}))
	require.NoError(t, err)
}

// TestPublisher_Marker honours live markers and replaces stale ones.
func TestPublisher_Marker(t *testing.T) {
	t.Parallel()

	var (
		ctx        = context.Background()
		projectDir = t.TempDir()
		dist       = distFixture(t, false)
		publisher  = NewPublisher(projectDir)
		marker     = filepath.Join(projectDir, MarkerFilename)
		newEngine  = func() *Engine {
			return NewEngine(NewLocalTransport("/target", WithFs(afero.NewMemMapFs())), Options{DistDir: dist})
		}
	)

	require.NoError(t, os.WriteFile(marker, []byte(strconv.Itoa(os.Getpid())), 0o600))

	_, err := publisher.Publish(ctx, newEngine())
	require.ErrorIs(t, err, ErrPublishInProgress)

	// A process id far above any pid_max belongs to no running process.
	require.NoError(t, os.WriteFile(marker, []byte("2147483600"), 0o600))

	_, err = publisher.Publish(ctx, newEngine())
	require.NoError(t, err)

	_, err = os.Stat(marker)
	require.ErrorIs(t, err, os.ErrNotExist)
}
