package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	crdb "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/bal/internal/library"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Schema bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Path     string   `json:"path"`
	Entities int      `json:"entities,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Hint     string   `json:"hint,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [library.json]",
		Short: "Validate a library document",
		Long: `Validate a library document against the library schema and load it.

The document defaults to the configured library path. --schema prints the
CUE schema instead.

Exit codes:
  0 - Library is valid
  1 - Library is invalid
  2 - Command error (no library given)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Schema, "schema", false, "print the library schema and exit")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	if opts.Schema {
		if out.Format == "json" {
			return out.Success(map[string]string{"schema": library.Schema()})
		}
		fmt.Fprint(out.Writer, library.Schema())
		return nil
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadConfig(opts.RootOptions, cmd)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
		}
		path = cfg.LibraryPath
	}
	if path == "" {
		return out.Fail(ExitCommandError, ErrCodeConfig, "no library given: pass a path or set --library", nil)
	}

	if _, err := os.Stat(path); err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, fmt.Sprintf("library not found: %s", path), nil)
	}

	out.VerboseLog("Validating %s", path)

	lib, err := library.Load(path)
	if err != nil {
		result := ValidationResult{
			Path:   path,
			Errors: validationErrors(err),
			Hint:   crdb.FlattenHints(err),
		}
		if err := writeValidation(out, result); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "library is invalid", err)
	}

	return writeValidation(out, ValidationResult{
		Valid:    true,
		Path:     lib.Path,
		Entities: len(lib.Entities),
	})
}

// validationErrors returns one entry per problem. Schema failures list
// each violation separately.
func validationErrors(err error) []string {
	msg := err.Error()
	var ce *library.ConfigError
	if errors.As(err, &ce) {
		msg = ce.Err.Error()
	}
	if rest, ok := strings.CutPrefix(msg, "schema: "); ok {
		return strings.Split(rest, "; ")
	}
	return []string{msg}
}

func writeValidation(out *OutputFormatter, result ValidationResult) error {
	if out.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeInvalid, Message: "library is invalid", Details: result.Errors}
		}
		return out.encode(resp)
	}

	if result.Valid {
		fmt.Fprintf(out.Writer, "✓ %s is valid (%d entities)\n", result.Path, result.Entities)
		return nil
	}

	fmt.Fprintf(out.Writer, "✗ %s is invalid\n", result.Path)
	for _, e := range result.Errors {
		fmt.Fprintf(out.Writer, "  %s\n", e)
	}
	if result.Hint != "" {
		out.VerboseLog("Hint: %s", result.Hint)
	}
	return nil
}
