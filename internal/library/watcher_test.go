package library

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"entities": {}}`), 0o644))

	var latest atomic.Pointer[Library]
	w, err := NewWatcher(path, func(lib *Library) error {
		latest.Store(lib)
		return nil
	}, WithDebounce(10*time.Millisecond), WithWatchLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte(`{"entities": {"fresh": {"versions": []}}}`), 0o644))

	require.Eventually(t, func() bool {
		lib := latest.Load()
		if lib == nil {
			return false
		}
		_, ok := lib.Entity("fresh")
		return ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherKeepsPreviousOnBadDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"entities": {}}`), 0o644))

	var calls atomic.Int32
	w, err := NewWatcher(path, func(*Library) error {
		calls.Add(1)
		return nil
	}, WithDebounce(10*time.Millisecond), WithWatchLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"entities": {}}`), 0o644))

	var calls atomic.Int32
	w, err := NewWatcher(path, func(*Library) error {
		calls.Add(1)
		return nil
	}, WithDebounce(10*time.Millisecond), WithWatchLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
