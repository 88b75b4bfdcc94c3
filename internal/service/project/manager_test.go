package project

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ext-packager/internal/config"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(m *Manager) {
	for _, e := range []Event{EventWillLoad, EventLoaded, EventSaved, EventClosed} {
		m.Subscribe(e, func(_ context.Context, event Event, _ *Project) {
			r.mu.Lock()
			r.events = append(r.events, event)
			r.mu.Unlock()
		})
	}
}

func (r *recorder) take() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.events
	r.events = nil

	return events
}

func newTestManager(delay time.Duration) *Manager {
	cfg := config.Default()
	cfg.SaveDelay = delay

	return NewManager(cfg)
}

func TestManagerEventOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(time.Hour)
	rec := &recorder{}
	rec.listen(m)

	_, err := m.Current()
	require.ErrorIs(t, err, ErrNoProject)

	first, err := m.Create(ctx, t.TempDir(), "First", "Editor")
	require.NoError(t, err)
	require.Equal(t, []Event{EventWillLoad, EventLoaded}, rec.take())
	require.Equal(t, first.File(), m.Config().LastProject)

	require.NoError(t, m.Save(ctx))
	require.Equal(t, []Event{EventSaved}, rec.take())

	second, err := m.Create(ctx, t.TempDir(), "Second", "Editor")
	require.NoError(t, err)
	require.Equal(t, []Event{EventClosed, EventWillLoad, EventLoaded}, rec.take())

	current, err := m.Current()
	require.NoError(t, err)
	require.Same(t, second, current)

	reopened, err := m.Open(ctx, first.File())
	require.NoError(t, err)
	require.Equal(t, "First", reopened.Name())
	require.Equal(t, []Event{EventClosed, EventWillLoad, EventLoaded}, rec.take())

	require.NoError(t, m.Shutdown(ctx))
	require.Equal(t, []Event{EventClosed}, rec.take())
}

func TestManagerCloseFlushesPendingSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(time.Hour)
	rec := &recorder{}
	rec.listen(m)

	p, err := m.Create(ctx, t.TempDir(), "Acme", "Editor")
	require.NoError(t, err)
	rec.take()

	require.NoError(t, m.Edit(ctx, func(p *Project) error {
		_, err := p.Manifest().AddApplicationVersion("2.0")
		return err
	}))
	require.True(t, m.saver.Pending(p.File()))
	require.Empty(t, rec.take())

	require.NoError(t, m.Close(ctx))
	require.Equal(t, []Event{EventSaved, EventClosed}, rec.take())

	opened, err := Open(ctx, p.File())
	require.NoError(t, err)
	require.NotNil(t, opened.Manifest().FindApplicationVersion("2.0"))
}

func TestManagerTouchCoalescesSaves(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(20 * time.Millisecond)

	var saves atomic.Int32

	m.Subscribe(EventSaved, func(context.Context, Event, *Project) {
		saves.Add(1)
	})

	_, err := m.Create(ctx, t.TempDir(), "Acme", "Editor")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		m.Touch(ctx)
	}

	require.Eventually(t, func() bool { return saves.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Never(t, func() bool { return saves.Load() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestManagerEditWithoutProject(t *testing.T) {
	t.Parallel()

	m := newTestManager(time.Hour)

	err := m.Edit(context.Background(), func(*Project) error { return nil })
	require.ErrorIs(t, err, ErrNoProject)

	_, err = m.Publisher()
	require.ErrorIs(t, err, ErrNoProject)
}

func TestManagerPublisherPerProject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(time.Hour)
	dir := t.TempDir()

	_, err := m.Create(ctx, filepath.Join(dir, "a"), "A", "Editor")
	require.NoError(t, err)

	first, err := m.Publisher()
	require.NoError(t, err)

	again, err := m.Publisher()
	require.NoError(t, err)
	require.Same(t, first, again)

	_, err = m.Create(ctx, filepath.Join(dir, "b"), "B", "Editor")
	require.NoError(t, err)

	other, err := m.Publisher()
	require.NoError(t, err)
	require.NotSame(t, first, other)
}
