package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/bal/internal/library"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the library whenever its file changes",
		Long: `Load the library and reload it on every change to its file until
interrupted. Invalid edits are logged and the previous library is kept.

Run with --verbose to see each reload.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", library.DefaultDebounce, "delay before reloading after a change")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.out.VerboseLog("Watching %s", s.cfg.LibraryPath)
	if err := s.manager.Watch(ctx, opts.Debounce); err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeConfig, "watch failed", err)
	}
	return nil
}
