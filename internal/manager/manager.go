package manager

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	crdb "github.com/cockroachdb/errors"

	"github.com/roach88/bal/internal/engine"
	"github.com/roach88/bal/internal/library"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/store"
	"github.com/roach88/bal/internal/subst"
)

// Identity of the manager.
const (
	DefaultIdentifier = "org.openassetio.examples.manager.bal"
	DisplayName       = "Basic Asset Library 📖"

	// IdentifierEnv overrides the identifier, so that several copies can
	// be registered side by side.
	IdentifierEnv = "OPENASSETIO_BAL_IDENTIFIER"

	// InfoReferencePrefix is the Info key holding the reference prefix.
	InfoReferencePrefix = "entityReferencesMatchPrefix"
)

// ErrNotInitialized is returned by batch calls made before Initialize.
var ErrNotInitialized = errors.New("manager is not initialized")

// ErrNoLibrary is returned by Initialize when no library source is set.
var ErrNoLibrary = errors.New("'library_path'/" + LibraryPathEnv + " not set or is empty")

// Journal records successful publications.
type Journal interface {
	Append(ctx context.Context, p store.Publication) (int64, error)
}

// Manager is the batch boundary over an engine.
//
// Thread-safety: all methods are safe for concurrent use. Initialize and
// library reloads swap state atomically with respect to batch calls.
type Manager struct {
	mu       sync.RWMutex
	settings Settings
	engine   *engine.Engine
	codec    *ref.Codec
	caps     map[Capability]bool

	logger    *slog.Logger
	sleep     SleepFunc
	ids       IDGenerator
	journal   Journal
	env       subst.Environment
	lookupEnv func(string) (string, bool)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithSleeper replaces the simulated latency sleep, for tests.
func WithSleeper(s SleepFunc) Option {
	return func(m *Manager) { m.sleep = s }
}

// WithIDGenerator sets the batch id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) { m.ids = g }
}

// WithJournal records every successful register in j.
func WithJournal(j Journal) Option {
	return func(m *Manager) { m.journal = j }
}

// WithEnvironment sets the substitution environment used by the engine.
func WithEnvironment(env subst.Environment) Option {
	return func(m *Manager) { m.env = env }
}

// WithLookupEnv replaces os.LookupEnv for settings fallbacks.
func WithLookupEnv(f func(string) (string, bool)) Option {
	return func(m *Manager) { m.lookupEnv = f }
}

// New creates an uninitialized manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		settings:  DefaultSettings(),
		logger:    slog.Default(),
		sleep:     contextSleep,
		ids:       UUIDv7Generator{},
		env:       subst.OSEnvironment{},
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Identifier returns the manager identifier.
func (m *Manager) Identifier() string {
	if id, ok := m.lookupEnv(IdentifierEnv); ok && id != "" {
		return id
	}
	return DefaultIdentifier
}

// DisplayName returns the human-readable manager name.
func (m *Manager) DisplayName() string {
	return DisplayName
}

// Info returns static manager information, including the reference prefix
// for the configured scheme.
func (m *Manager) Info() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	codec := m.codec
	if codec == nil {
		codec = ref.MustCodec(m.settings.EntityReferenceURLScheme)
	}
	return map[string]any{InfoReferencePrefix: codec.Prefix()}
}

// Settings returns a copy of the current settings.
func (m *Manager) Settings() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Map()
}

// Initialize validates and applies settings, then loads the library.
//
// Keys absent from settings keep their previous values. library_json, when
// set, takes precedence over library_path. With neither set the
// BAL_LIBRARY_PATH environment variable is used. On any error the manager
// keeps its previous state.
func (m *Manager) Initialize(settings map[string]any) error {
	m.mu.RLock()
	current := m.settings
	m.mu.RUnlock()

	next, err := current.Apply(settings)
	if err != nil {
		return err
	}

	if next.LibraryPath == "" && next.LibraryJSON == "" {
		m.logger.Debug("library_path not in settings or is empty, checking environment", "env", LibraryPathEnv)
		if p, ok := m.lookupEnv(LibraryPathEnv); ok {
			next.LibraryPath = p
		}
	}
	if next.LibraryPath == "" && next.LibraryJSON == "" {
		return crdb.WithHint(crdb.WithStack(ErrNoLibrary),
			"set library_path or library_json, or export "+LibraryPathEnv)
	}

	codec, err := ref.NewCodec(next.EntityReferenceURLScheme)
	if err != nil {
		return err
	}

	var lib *library.Library
	if next.LibraryJSON != "" {
		m.logger.Debug("loading inline library")
		lib, err = library.Parse([]byte(next.LibraryJSON))
	} else {
		m.logger.Debug("loading library", "path", next.LibraryPath)
		lib, err = library.Load(next.LibraryPath)
	}
	if err != nil {
		return err
	}

	caps, err := capabilitySet(lib.Capabilities)
	if err != nil {
		return crdb.Wrap(err, "initialize")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings = next
	m.codec = codec
	m.caps = caps
	if m.engine == nil {
		m.engine = engine.New(lib, engine.WithEnvironment(m.env), engine.WithLogger(m.logger))
	} else {
		m.engine.Reload(lib)
	}

	m.logger.Debug("manager initialized",
		"entities", len(lib.Entities),
		"latency_ms", next.SimulatedQueryLatencyMS,
		"scheme", next.EntityReferenceURLScheme)
	return nil
}

// Engine returns the engine, or nil before Initialize.
func (m *Manager) Engine() *engine.Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine
}

// Codec returns the reference codec for the configured scheme, or nil
// before Initialize.
func (m *Manager) Codec() *ref.Codec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.codec
}

// HasCapability reports whether the loaded library allows c.
func (m *Manager) HasCapability(c Capability) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.caps[c]
}

// reload swaps in a library loaded outside Initialize.
func (m *Manager) reload(lib *library.Library) error {
	caps, err := capabilitySet(lib.Capabilities)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine == nil {
		return ErrNotInitialized
	}
	m.caps = caps
	m.engine.Reload(lib)
	return nil
}

// state is what a batch needs from the manager, read once.
type state struct {
	engine   *engine.Engine
	codec    *ref.Codec
	caps     map[Capability]bool
	latency  float64
	settings Settings
}

func (m *Manager) current() (state, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.engine == nil {
		return state{}, ErrNotInitialized
	}
	return state{
		engine:   m.engine,
		codec:    m.codec,
		caps:     m.caps,
		latency:  m.settings.SimulatedQueryLatencyMS,
		settings: m.settings,
	}, nil
}
