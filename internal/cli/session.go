package cli

import (
	"errors"
	"log/slog"

	crdb "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/bal/internal/manager"
	"github.com/roach88/bal/internal/store"
)

// session is an initialized manager plus the resources it holds for the
// duration of one command.
type session struct {
	cfg     *Config
	manager *manager.Manager
	journal *store.Store
	out     *OutputFormatter
}

// openSession loads configuration and initializes a manager. When a
// journal is configured its publications are replayed first, so that
// earlier registers are visible. Errors are already reported through the
// formatter.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	if cfg.File != "" {
		out.VerboseLog("Using config file %s", cfg.File)
	}

	mopts := []manager.Option{manager.WithLogger(newLogger(opts, cmd))}

	var journal *store.Store
	if cfg.JournalPath != "" {
		journal, err = store.Open(cfg.JournalPath)
		if err != nil {
			return nil, out.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
		}
		mopts = append(mopts, manager.WithJournal(journal))
	}

	s := &session{cfg: cfg, manager: manager.New(mopts...), journal: journal, out: out}

	if err := s.manager.Initialize(cfg.Settings()); err != nil {
		s.Close()
		if hint := crdb.FlattenHints(err); hint != "" {
			out.VerboseLog("Hint: %s", hint)
		}
		return nil, out.Fail(ExitCommandError, ErrCodeInit, "failed to initialize manager", err)
	}

	if journal != nil {
		res, err := journal.Replay(cmd.Context(), s.manager.Engine())
		if err != nil {
			s.Close()
			var div *store.DivergenceError
			if errors.As(err, &div) {
				return nil, out.Fail(ExitFailure, ErrCodeDivergence, "journal does not match library", err)
			}
			return nil, out.Fail(ExitCommandError, ErrCodeJournal, "failed to replay journal", err)
		}
		out.VerboseLog("Replayed %d publication(s) from %s", res.Applied, cfg.JournalPath)
	}

	return s, nil
}

// Close releases the journal, if any.
func (s *session) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

// newLogger logs to stderr: warnings only, or everything with --verbose.
func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
