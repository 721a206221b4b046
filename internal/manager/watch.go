package manager

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/bal/internal/library"
)

// Watch reloads the library whenever its file changes, until ctx is
// cancelled. Publications made since the last load are discarded by a
// reload. It fails immediately when the library was given inline.
func (m *Manager) Watch(ctx context.Context, debounce time.Duration) error {
	st, err := m.current()
	if err != nil {
		return err
	}
	if st.settings.LibraryJSON != "" || st.settings.LibraryPath == "" {
		return errors.New("watch: library is not backed by a file")
	}

	opts := []library.WatcherOption{library.WithWatchLogger(m.logger)}
	if debounce > 0 {
		opts = append(opts, library.WithDebounce(debounce))
	}
	w, err := library.NewWatcher(st.settings.LibraryPath, m.reload, opts...)
	if err != nil {
		return err
	}
	defer w.Close()

	m.logger.Info("watching library", "path", st.settings.LibraryPath)
	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
