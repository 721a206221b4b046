package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/bal/internal/manager"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigFile  string
	LibraryPath string
	Scheme      string
	LatencyMS   float64
	JournalPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bal CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bal",
		Short: "BAL - Basic Asset Library",
		Long: `Query and publish entities in a JSON asset library.

Configuration is read from flags, BAL_* environment variables and an
optional bal.toml/bal.yaml in the working directory (or --config).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default ./bal.{toml,yaml,json})")
	pf.StringVarP(&opts.LibraryPath, "library", "l", "", "path to the library JSON document")
	pf.StringVar(&opts.Scheme, "scheme", manager.DefaultSettings().EntityReferenceURLScheme, "entity reference URL scheme")
	pf.Float64Var(&opts.LatencyMS, "latency", manager.DefaultSimulatedQueryLatencyMS, "simulated query latency in milliseconds")
	pf.StringVar(&opts.JournalPath, "journal", "", "SQLite publish journal (replayed on start, appended on register)")

	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewExistsCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewTraitsCommand(opts))
	cmd.AddCommand(NewPolicyCommand(opts))
	cmd.AddCommand(NewDefaultCommand(opts))
	cmd.AddCommand(NewRelatedCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
