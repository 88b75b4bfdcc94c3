package project

import (
	"context"
	"errors"
	"sync"

	"github.com/oshokin/ext-packager/internal/config"
	"github.com/oshokin/ext-packager/internal/logger"
	"github.com/oshokin/ext-packager/internal/service/publish"
)

// Event is a project lifecycle notification.
type Event int

const (
	// EventWillLoad fires before a project is opened or created. The project argument is nil.
	EventWillLoad Event = iota
	// EventLoaded fires once the project became current.
	EventLoaded
	// EventSaved fires after the project was written to disk.
	EventSaved
	// EventClosed fires after the current project was closed.
	EventClosed
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case EventWillLoad:
		return "will-load"
	case EventLoaded:
		return "loaded"
	case EventSaved:
		return "saved"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Listener receives project events. Listeners run synchronously on the caller's goroutine.
type Listener func(ctx context.Context, event Event, p *Project)

// ErrNoProject is returned when an operation needs an open project.
var ErrNoProject = errors.New("no project is open")

// Manager is the application context: settings, the current project and its subscribers.
type Manager struct {
	cfg   *config.Config
	saver *Debouncer

	mu         sync.Mutex
	current    *Project
	publishers map[string]*publish.Publisher

	// editMu keeps a single writer on the current project's manifest.
	editMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   map[Event][]Listener
}

// NewManager returns a manager using cfg. A nil cfg means defaults.
func NewManager(cfg *config.Config) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Manager{
		cfg:        cfg,
		saver:      NewDebouncer(cfg.SaveDelay),
		publishers: make(map[string]*publish.Publisher),
		listeners:  make(map[Event][]Listener),
	}
}

// Config returns the settings the manager was created with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Subscribe registers fn for event.
func (m *Manager) Subscribe(event Event, fn Listener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	m.listeners[event] = append(m.listeners[event], fn)
}

// Create makes a new project and makes it current.
func (m *Manager) Create(ctx context.Context, dir, name, applicationName string) (*Project, error) {
	if err := m.Close(ctx); err != nil {
		return nil, err
	}

	m.emit(ctx, EventWillLoad, nil)

	p, err := Create(ctx, dir, name, applicationName)
	if err != nil {
		return nil, err
	}

	m.setCurrent(ctx, p)

	return p, nil
}

// Open opens the project file and makes it current.
func (m *Manager) Open(ctx context.Context, file string) (*Project, error) {
	if err := m.Close(ctx); err != nil {
		return nil, err
	}

	m.emit(ctx, EventWillLoad, nil)

	p, err := Open(ctx, file)
	if err != nil {
		return nil, err
	}

	m.setCurrent(ctx, p)

	return p, nil
}

func (m *Manager) setCurrent(ctx context.Context, p *Project) {
	m.mu.Lock()
	m.current = p
	m.mu.Unlock()

	m.cfg.LastProject = p.File()

	m.emit(ctx, EventLoaded, p)
}

// Current returns the open project.
func (m *Manager) Current() (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil, ErrNoProject
	}

	return m.current, nil
}

// Edit runs fn as the single writer of the current project and schedules a save. The save is
// scheduled even when fn fails, since fn may have changed the catalog before failing.
func (m *Manager) Edit(ctx context.Context, fn func(p *Project) error) error {
	p, err := m.Current()
	if err != nil {
		return err
	}

	m.editMu.Lock()
	err = fn(p)
	m.editMu.Unlock()

	m.Touch(ctx)

	return err
}

// Touch schedules a coalesced save of the current project.
func (m *Manager) Touch(ctx context.Context) {
	p, err := m.Current()
	if err != nil {
		return
	}

	ctx = context.WithoutCancel(ctx)

	m.saver.Schedule(p.File(), func() {
		if err := m.save(ctx, p); err != nil {
			logger.ErrorKV(ctx, "Deferred save failed", "project", p.Name(), "error", err)
		}
	})
}

// Save writes the current project now, replacing any pending deferred save.
func (m *Manager) Save(ctx context.Context) error {
	p, err := m.Current()
	if err != nil {
		return err
	}

	m.saver.Flush(p.File())

	return m.save(ctx, p)
}

func (m *Manager) save(ctx context.Context, p *Project) error {
	m.editMu.Lock()
	err := p.Save(ctx)
	m.editMu.Unlock()

	if err != nil {
		return err
	}

	m.emit(ctx, EventSaved, p)

	return nil
}

// Close flushes pending saves and closes the current project. Closing with no project is a no-op.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	p := m.current
	m.mu.Unlock()

	if p == nil {
		return nil
	}

	m.saver.Flush(p.File())

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	m.emit(ctx, EventClosed, p)

	return nil
}

// Shutdown closes the current project and stops deferred saves.
func (m *Manager) Shutdown(ctx context.Context) error {
	err := m.Close(ctx)
	m.saver.Stop()

	return err
}

// Publisher returns the publisher guarding the current project.
func (m *Manager) Publisher() (*publish.Publisher, error) {
	p, err := m.Current()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pub, ok := m.publishers[p.Dir()]
	if !ok {
		pub = publish.NewPublisher(p.Dir())
		m.publishers[p.Dir()] = pub
	}

	return pub, nil
}

func (m *Manager) emit(ctx context.Context, event Event, p *Project) {
	m.listenersMu.RLock()
	listeners := append([]Listener(nil), m.listeners[event]...)
	m.listenersMu.RUnlock()

	logger.DebugKV(ctx, "Project event", "event", event.String())

	for _, fn := range listeners {
		fn(ctx, event, p)
	}
}
