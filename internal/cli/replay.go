package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/bal/internal/manager"
	"github.com/roach88/bal/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Entity string // list only this entity's publications
	Batch  string // list only this batch's publications
}

// PublicationSummary is one journaled publication.
type PublicationSummary struct {
	Seq       int64  `json:"seq"`
	BatchID   string `json:"batch_id"`
	Reference string `json:"reference"`
	Access    string `json:"access"`
}

// ReplayReport holds the replay result.
type ReplayReport struct {
	Journal       string               `json:"journal"`
	Publications  []PublicationSummary `json:"publications"`
	Applied       int                  `json:"applied"`
	LastSeq       int64                `json:"last_seq"`
	Deterministic bool                 `json:"deterministic"`
	Divergence    string               `json:"divergence,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the publish journal and verify determinism",
		Long: `Replay every journaled publication against the library, in order, and
check each one is assigned the version it was journaled with.

A mismatch means the library document changed underneath the journal.

Exit codes:
  0 - Journal replays deterministically
  1 - Replay diverged
  2 - Command error (journal not found, library invalid, etc.)

Examples:
  bal replay --journal ./bal.db --library ./library.json
  bal replay --journal ./bal.db --entity shot --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "list only publications of this entity")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "list only publications of this batch id")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	if cfg.JournalPath == "" {
		return out.Fail(ExitCommandError, ErrCodeConfig, "--journal is required", nil)
	}
	// store.Open would create a missing database.
	if _, err := os.Stat(cfg.JournalPath); err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, fmt.Sprintf("journal not found: %s", cfg.JournalPath), nil)
	}

	st, err := store.Open(cfg.JournalPath)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	defer st.Close()

	// No WithJournal: replaying must not append.
	m := manager.New(manager.WithLogger(newLogger(opts.RootOptions, cmd)))
	if err := m.Initialize(cfg.Settings()); err != nil {
		return out.Fail(ExitCommandError, ErrCodeInit, "failed to initialize manager", err)
	}

	var pubs []store.Publication
	switch {
	case opts.Entity != "":
		pubs, err = st.ReadEntity(ctx, opts.Entity)
	case opts.Batch != "":
		pubs, err = st.ReadBatch(ctx, opts.Batch)
	default:
		pubs, err = st.ReadAll(ctx)
	}
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, "failed to read journal", err)
	}

	report := ReplayReport{
		Journal:       cfg.JournalPath,
		Publications:  make([]PublicationSummary, len(pubs)),
		Deterministic: true,
	}
	codec := m.Codec()
	for i, p := range pubs {
		report.Publications[i] = PublicationSummary{
			Seq:       p.Seq,
			BatchID:   p.BatchID,
			Reference: codec.Format(p.Locator()),
			Access:    string(p.Access),
		}
	}

	res, err := st.Replay(ctx, m.Engine())
	report.Applied = res.Applied
	report.LastSeq = res.LastSeq
	if err != nil {
		var div *store.DivergenceError
		if !errors.As(err, &div) {
			return out.Fail(ExitCommandError, ErrCodeJournal, "replay failed", err)
		}
		report.Deterministic = false
		report.Divergence = div.Error()
	}

	if err := writeReplay(out, report); err != nil {
		return err
	}
	if !report.Deterministic {
		return NewExitError(ExitFailure, "replay diverged")
	}
	return nil
}

func writeReplay(out *OutputFormatter, report ReplayReport) error {
	if out.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report}
		if !report.Deterministic {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeDivergence, Message: report.Divergence}
		}
		return out.encode(resp)
	}

	w := out.Writer
	if len(report.Publications) == 0 && report.Applied == 0 {
		fmt.Fprintln(w, "No publications in journal.")
		return nil
	}
	for _, p := range report.Publications {
		fmt.Fprintf(w, "%6d  %s  %s\n", p.Seq, p.Reference, p.BatchID)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Replayed %d publication(s), last seq %d\n", report.Applied, report.LastSeq)
	if !report.Deterministic {
		fmt.Fprintf(w, "✗ %s\n", report.Divergence)
		return nil
	}
	fmt.Fprintln(w, "✓ Deterministic")
	return nil
}
