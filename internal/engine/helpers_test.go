package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bal/internal/library"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/subst"
)

const testLibraryPath = "testdata/library.json"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadTestLibrary(t *testing.T) *library.Library {
	t.Helper()
	lib, err := library.Load(testLibraryPath)
	require.NoError(t, err)
	return lib
}

func newTestEngine(t *testing.T, lib *library.Library) *Engine {
	t.Helper()
	return New(lib, WithEnvironment(subst.MapEnvironment{}), WithLogger(discardLogger()))
}

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	return newTestEngine(t, loadTestLibrary(t)).Snapshot()
}

func read(name string) ref.Locator {
	return ref.NewLocator(name, ref.Read)
}

func write(name string) ref.Locator {
	return ref.NewLocator(name, ref.Write)
}

func names(locs []ref.Locator) []string {
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.String())
	}
	return out
}
