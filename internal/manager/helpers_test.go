package manager

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bal/internal/store"
	"github.com/roach88/bal/internal/subst"
	"github.com/roach88/bal/internal/testutil"
	"github.com/roach88/bal/internal/trait"
)

const testLibraryPath = "testdata/library.json"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mapLookup isolates tests from the process environment.
func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

type fixture struct {
	m       *Manager
	sleeper *testutil.RecordingSleeper
	journal *memJournal
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		sleeper: testutil.NewRecordingSleeper(),
		journal: &memJournal{},
	}
	base := []Option{
		WithLogger(discardLogger()),
		WithSleeper(f.sleeper.Sleep),
		WithIDGenerator(testutil.NewSequentialIDGenerator("")),
		WithJournal(f.journal),
		WithEnvironment(subst.MapEnvironment{}),
		WithLookupEnv(mapLookup(nil)),
	}
	f.m = New(append(base, opts...)...)
	return f
}

// newInitialized returns a fixture initialized with the test library.
func newInitialized(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := newFixture(t, opts...)
	require.NoError(t, f.m.Initialize(map[string]any{SettingLibraryPath: testLibraryPath}))
	return f
}

// memJournal records publications in memory.
type memJournal struct {
	mu   sync.Mutex
	pubs []store.Publication
	err  error
}

func (j *memJournal) Append(_ context.Context, p store.Publication) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return 0, j.err
	}
	p.Seq = int64(len(j.pubs) + 1)
	j.pubs = append(j.pubs, p)
	return p.Seq, nil
}

// results collects the callbacks of one batch call.
type results[T any] struct {
	ok   map[int]T
	errs map[int]BatchElementError
}

func newResults[T any]() *results[T] {
	return &results[T]{ok: map[int]T{}, errs: map[int]BatchElementError{}}
}

func (r *results[T]) success(idx int, v T) { r.ok[idx] = v }

func (r *results[T]) failure(idx int, err BatchElementError) { r.errs[idx] = err }

func stringTrait(value string) trait.Data {
	return trait.Data{"string": trait.Properties{"value": trait.String(value)}}
}
