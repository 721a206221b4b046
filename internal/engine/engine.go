package engine

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/bal/internal/library"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/subst"
	"github.com/roach88/bal/internal/trait"
)

// Engine owns the current library and hands out snapshots of it.
//
// Thread-safety model:
//   - Snapshot(), Library(): safe from any goroutine (read lock)
//   - Reload(), CreateOrUpdate(): safe from any goroutine (write lock)
//   - Snapshot methods: lock-free, they never see later writes
type Engine struct {
	mu     sync.RWMutex
	lib    *library.Library
	env    subst.Environment
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithEnvironment sets the fallback environment for substitution.
// Default: the process environment.
func WithEnvironment(env subst.Environment) Option {
	return func(e *Engine) {
		e.env = env
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine over lib. A nil lib is treated as library.Empty().
func New(lib *library.Library, opts ...Option) *Engine {
	if lib == nil {
		lib = library.Empty()
	}
	e := &Engine{
		lib:    lib,
		env:    subst.OSEnvironment{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot captures the current library for a batch of queries.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return &Snapshot{lib: e.lib, env: e.env}
}

// Library returns the current library. It must not be mutated.
func (e *Engine) Library() *library.Library {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lib
}

// Reload replaces the library wholesale. Snapshots taken earlier keep
// answering from the library they captured.
func (e *Engine) Reload(lib *library.Library) {
	if lib == nil {
		lib = library.Empty()
	}
	e.mu.Lock()
	e.lib = lib
	e.mu.Unlock()

	e.logger.Debug("library replaced", "path", lib.Path, "entities", len(lib.Entities))
}

// CreateOrUpdate appends a new version holding traits to the named entity,
// creating the entity if it does not exist. It returns loc pinned to the
// new version tag.
//
// No compatibility check is made against earlier versions; callers that
// need one use Snapshot.ValidatePublish first.
func (e *Engine) CreateOrUpdate(loc ref.Locator, traits trait.Data) (ref.Locator, error) {
	return e.Publish(loc, traits, nil)
}

// CommitFunc is called with the locator of a version about to be
// published. Returning an error abandons the publication. It runs under
// the engine's write lock and must not call back into the engine.
type CommitFunc func(created ref.Locator) error

// Publish is CreateOrUpdate with a commit hook. commit runs under the
// write lock after the new version is built and before it becomes
// visible, so a failed commit leaves the library exactly as it was and
// the tag commit sees is the tag readers will see.
func (e *Engine) Publish(loc ref.Locator, traits trait.Data, commit CommitFunc) (ref.Locator, error) {
	if loc.Name == "" {
		return ref.Locator{}, errors.New("create or update: entity name is empty")
	}
	if traits == nil {
		traits = trait.Data{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.lib.CloneForWrite(loc.Name)
	_, tag := next.AppendVersion(loc.Name, traits.Clone())
	created := loc.WithVersion(tag)
	if commit != nil {
		if err := commit(created); err != nil {
			return ref.Locator{}, err
		}
	}
	e.lib = next

	e.logger.Debug("entity version created", "entity", loc.Name, "version", tag)
	return created, nil
}

// Snapshot answers queries against one library value.
type Snapshot struct {
	lib *library.Library
	env subst.Environment
}

// Library returns the captured library. It must not be mutated.
func (s *Snapshot) Library() *library.Library {
	return s.lib
}
